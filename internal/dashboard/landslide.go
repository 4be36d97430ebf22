package dashboard

import (
	"github.com/okian/slopewatch/internal/adapters/source"
	"github.com/okian/slopewatch/internal/domain/model"
	"github.com/okian/slopewatch/internal/domain/risk"
)

// Names used by the landslide dashboard.
const (
	Landslide = "landslide"

	SeriesSoil1     = "soil1"
	SeriesSoil2     = "soil2"
	SeriesTilt      = "tilt"
	SeriesVibration = "vibration"

	IndicatorDanger = "landslide_danger"
	TextRainStatus  = "rain_status"
)

// LandslideLayout is what the landslide dashboard draws.
var LandslideLayout = Layout{
	Charts:     []string{SeriesSoil1, SeriesSoil2, SeriesTilt, SeriesVibration},
	Indicators: []string{IndicatorDanger},
	Texts:      []string{TextRainStatus},
}

// LandslideDashboard tracks the raw slope sensors, the danger level and the
// rain status.
type LandslideDashboard struct {
	*base
}

// NewLandslide creates the landslide dashboard polling f.
func NewLandslide(f source.Fetcher, surfaces Surfaces, opts ...Option) *LandslideDashboard {
	b, o := newBase(Landslide, LandslideLayout, surfaces, opts)
	d := &LandslideDashboard{base: b}
	b.attach(f, d, o)
	return d
}

// Prepare decodes and validates a landslide payload.
func (d *LandslideDashboard) Prepare(body []byte) (func(), error) {
	s, err := model.DecodeLandslide(body)
	if err != nil {
		return nil, err
	}
	return func() { d.apply(s) }, nil
}

func (d *LandslideDashboard) apply(s model.LandslideSample) {
	d.push(s.Label, map[string]float64{
		SeriesSoil1:     s.Soil1,
		SeriesSoil2:     s.Soil2,
		SeriesTilt:      s.Tilt,
		SeriesVibration: s.Vibration,
	})
	d.setRisk(IndicatorDanger, s.Danger)
	d.setText(TextRainStatus, risk.RainLabel(s.Rain))
}

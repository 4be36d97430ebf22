package dashboard

import (
	"github.com/okian/slopewatch/internal/adapters/source"
	"github.com/okian/slopewatch/internal/domain/model"
	"github.com/okian/slopewatch/internal/domain/risk"
)

// Names used by the combined dashboard. Each series has an indicator of the
// same name.
const (
	Combined = "combined"

	SeriesLandslide = "landslide"
	SeriesFlood     = "flood"
	SeriesCombined  = "combined"
)

// CombinedLayout is what the combined dashboard draws.
var CombinedLayout = Layout{
	Charts:     []string{SeriesLandslide, SeriesFlood, SeriesCombined},
	Indicators: []string{SeriesLandslide, SeriesFlood, SeriesCombined},
}

// CombinedDashboard tracks the landslide, flood and combined risk scores.
type CombinedDashboard struct {
	*base
}

// NewCombined creates the combined dashboard polling f.
func NewCombined(f source.Fetcher, surfaces Surfaces, opts ...Option) *CombinedDashboard {
	b, o := newBase(Combined, CombinedLayout, surfaces, opts)
	d := &CombinedDashboard{base: b}
	b.attach(f, d, o)
	return d
}

// Prepare decodes and validates a combined payload.
func (d *CombinedDashboard) Prepare(body []byte) (func(), error) {
	s, err := model.DecodeCombined(body)
	if err != nil {
		return nil, err
	}
	return func() { d.apply(s) }, nil
}

func (d *CombinedDashboard) apply(s model.CombinedSample) {
	d.push(s.Label, map[string]float64{
		SeriesLandslide: s.Landslide,
		SeriesFlood:     s.Flood,
		SeriesCombined:  s.Combined,
	})
	d.setRisk(SeriesLandslide, risk.Number(s.Landslide))
	d.setRisk(SeriesFlood, risk.Number(s.Flood))
	d.setRisk(SeriesCombined, risk.Number(s.Combined))
}

package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/okian/slopewatch/internal/domain/history"
	"github.com/okian/slopewatch/pkg/metrics"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default PNG sizes.
const (
	DefaultWidth  = 480
	DefaultHeight = 200
	maxXTicks     = 6
)

// ErrEmptyChart is returned when a chart has no points to draw.
var ErrEmptyChart = errors.New("chart has no points")

// PNGOptions controls chart rendering.
type PNGOptions struct {
	Width  int
	Height int
	// Mini hides axes and the title, as on the combined overview.
	Mini  bool
	Title string
	Color drawing.Color
}

// RenderPNG draws snap as a line chart.
func RenderPNG(w io.Writer, snap history.Snapshot, opts PNGOptions) error {
	err := renderPNG(w, snap, opts)
	metrics.RecordChartRender(err == nil)
	return err
}

func renderPNG(w io.Writer, snap history.Snapshot, opts PNGOptions) error {
	if snap.Len() == 0 {
		return ErrEmptyChart
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Color.IsZero() {
		opts.Color = chart.ColorBlue
	}

	xs := make([]float64, snap.Len())
	for i := range xs {
		xs[i] = float64(i)
	}
	ys := append([]float64(nil), snap.Values...)

	// go-chart needs a non-degenerate X range; widen a single point into a flat segment.
	if len(xs) == 1 {
		xs = append(xs, 1)
		ys = append(ys, ys[0])
	}

	lo, hi := ys[0], ys[0]
	for _, y := range ys {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	series := chart.ContinuousSeries{
		Name:    snap.Name,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor: opts.Color,
			StrokeWidth: 2,
			FillColor:   opts.Color.WithAlpha(48),
		},
	}

	ch := chart.Chart{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 12}},
		XAxis: chart.XAxis{
			Ticks: xTicks(snap.Labels),
			Range: &chart.ContinuousRange{Min: 0, Max: xs[len(xs)-1]},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: []chart.Series{series},
	}
	if opts.Mini {
		ch.XAxis.Style = chart.Style{Hidden: true}
		ch.YAxis.Style = chart.Style{Hidden: true}
	} else {
		ch.Title = opts.Title
		if ch.Title == "" {
			ch.Title = snap.Name
		}
	}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", snap.Name, err)
	}
	return nil
}

// xTicks spreads at most maxXTicks label ticks over the window.
func xTicks(labels []string) []chart.Tick {
	n := len(labels)
	if n == 0 {
		return nil
	}
	step := max(1, (n+maxXTicks-1)/maxXTicks)
	ticks := make([]chart.Tick, 0, maxXTicks+1)
	for i := 0; i < n; i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	if last := n - 1; ticks[len(ticks)-1].Value != float64(last) {
		ticks = append(ticks, chart.Tick{Value: float64(last), Label: labels[last]})
	}
	return ticks
}

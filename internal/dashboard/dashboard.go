package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/okian/slopewatch/internal/adapters/source"
	"github.com/okian/slopewatch/internal/domain/history"
	"github.com/okian/slopewatch/internal/domain/risk"
	"github.com/okian/slopewatch/pkg/logger"
	"github.com/okian/slopewatch/pkg/metrics"
)

// ChartSurface is a chart able to redraw itself from a series snapshot.
type ChartSurface interface {
	Redraw(snap history.Snapshot)
}

// Surfaces are the display handles a dashboard draws on, keyed by name.
// Missing entries are simply not drawn.
type Surfaces struct {
	Charts     map[string]ChartSurface
	Indicators map[string]risk.Indicator
	Texts      map[string]risk.TextSurface
}

// Layout names the surfaces a dashboard draws.
type Layout struct {
	Charts     []string
	Indicators []string
	Texts      []string
}

// Snapshot is the current view of a dashboard.
type Snapshot struct {
	Dashboard  string                      `json:"dashboard"`
	Series     map[string]history.Snapshot `json:"series"`
	Indicators map[string]risk.Reading     `json:"indicators"`
	Labels     map[string]string           `json:"labels,omitempty"`
	Sequence   uint64                      `json:"sequence"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// base carries what both dashboards share: the series, the last shown
// indicator readings and labels, and the poller.
type base struct {
	name       string
	layout     Layout
	series     map[string]*history.Series
	surfaces   Surfaces
	classifier *risk.Classifier
	logger     logger.Logger
	poller     *Poller

	mu       sync.RWMutex
	readings map[string]risk.Reading
	labels   map[string]string
}

func newBase(name string, layout Layout, surfaces Surfaces, opts []Option) (*base, options) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named(name)
	}

	b := &base{
		name:       name,
		layout:     layout,
		series:     make(map[string]*history.Series, len(layout.Charts)),
		surfaces:   surfaces,
		classifier: o.classifier,
		logger:     o.logger,
		readings:   make(map[string]risk.Reading, len(layout.Indicators)),
		labels:     make(map[string]string, len(layout.Texts)),
	}
	for _, c := range layout.Charts {
		b.series[c] = history.New(c, history.WithCap(o.cap))
	}
	return b, o
}

func (b *base) attach(f source.Fetcher, h Handler, o options) {
	b.poller = newPoller(b.name, f, h, o)
}

// Name returns the dashboard name.
func (b *base) Name() string { return b.name }

// Layout returns the surfaces the dashboard draws.
func (b *base) Layout() Layout { return b.layout }

// Run polls until ctx is cancelled.
func (b *base) Run(ctx context.Context) { b.poller.Run(ctx) }

// Stats returns the poll counters.
func (b *base) Stats() Stats { return b.poller.Stats() }

// Series returns a copy of the named series.
func (b *base) Series(name string) (history.Snapshot, bool) {
	s, ok := b.series[name]
	if !ok {
		return history.Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Snapshot returns the current view. It is taken under the poller's apply
// lock, so series, readings and labels always come from the same cycle.
func (b *base) Snapshot() Snapshot {
	var snap Snapshot
	b.poller.view(func(seq uint64, at time.Time) {
		snap = b.copyState(seq, at)
	})
	return snap
}

func (b *base) copyState(seq uint64, at time.Time) Snapshot {
	snap := Snapshot{
		Dashboard:  b.name,
		Series:     make(map[string]history.Snapshot, len(b.series)),
		Indicators: make(map[string]risk.Reading, len(b.readings)),
		Sequence:   seq,
		UpdatedAt:  at,
	}
	for name, s := range b.series {
		snap.Series[name] = s.Snapshot()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for name, r := range b.readings {
		snap.Indicators[name] = r
	}
	if len(b.labels) > 0 {
		snap.Labels = make(map[string]string, len(b.labels))
		for name, l := range b.labels {
			snap.Labels[name] = l
		}
	}
	return snap
}

// push appends one point to each named series, then redraws their charts.
func (b *base) push(label string, points map[string]float64) {
	for _, name := range b.layout.Charts {
		v, ok := points[name]
		if !ok {
			continue
		}
		b.series[name].Append(label, v)
	}
	for _, name := range b.layout.Charts {
		if _, ok := points[name]; !ok {
			continue
		}
		snap := b.series[name].Snapshot()
		metrics.UpdateHistoryLength(b.name, name, snap.Len())
		if c := b.surfaces.Charts[name]; c != nil {
			c.Redraw(snap)
		}
	}
}

func (b *base) setRisk(name string, v risk.Value) {
	r := b.classifier.SetRiskBox(b.surfaces.Indicators[name], v)

	b.mu.Lock()
	b.readings[name] = r
	b.mu.Unlock()

	f, _ := v.Float()
	metrics.UpdateRisk(b.name, name, f, r.Severity.Rank())
}

func (b *base) setText(name, text string) {
	if t := b.surfaces.Texts[name]; t != nil {
		t.SetText(text)
	}

	b.mu.Lock()
	b.labels[name] = text
	b.mu.Unlock()
}

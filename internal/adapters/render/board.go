// Package render holds the rendering surfaces the dashboards draw on: chart,
// indicator and text handles grouped on a Board, plus PNG chart output.
package render

import (
	"sync"
	"time"

	"github.com/okian/slopewatch/internal/domain/history"
	"github.com/okian/slopewatch/internal/domain/risk"
)

// Kind identifies which surface produced an Event.
type Kind string

// Surface kinds.
const (
	KindChart     Kind = "chart"
	KindIndicator Kind = "indicator"
	KindText      Kind = "text"
)

// Event describes one redraw. Exactly one of Chart, Reading or Text is
// meaningful, according to Kind.
type Event struct {
	Dashboard string            `json:"dashboard"`
	Name      string            `json:"name"`
	Kind      Kind              `json:"type"`
	Chart     *history.Snapshot `json:"chart,omitempty"`
	Reading   *risk.Reading     `json:"reading,omitempty"`
	Text      string            `json:"text,omitempty"`
	At        time.Time         `json:"at"`
}

// Listener observes redraws.
type Listener interface {
	OnRender(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

// OnRender calls f.
func (f ListenerFunc) OnRender(ev Event) { f(ev) }

// Snapshot is the rendered state of a board.
type Snapshot struct {
	Dashboard  string                      `json:"dashboard"`
	Charts     map[string]history.Snapshot `json:"charts"`
	Indicators map[string]risk.Reading     `json:"indicators"`
	Texts      map[string]string           `json:"texts"`
	Redraws    uint64                      `json:"redraws"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// Board groups the surfaces of one dashboard page. Handles are created once
// and stay valid for the board's lifetime.
type Board struct {
	mu         sync.RWMutex
	dashboard  string
	charts     map[string]*Chart
	indicators map[string]*IndicatorBox
	texts      map[string]*TextBox
	listeners  []Listener
	redraws    uint64
	updatedAt  time.Time
	now        func() time.Time
}

// BoardOption applies a configuration option to a Board.
type BoardOption func(*Board)

// WithListener registers a listener at construction time.
func WithListener(l Listener) BoardOption {
	return func(b *Board) {
		if l != nil {
			b.listeners = append(b.listeners, l)
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) BoardOption {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBoard creates an empty board for dashboard.
func NewBoard(dashboard string, opts ...BoardOption) *Board {
	b := &Board{
		dashboard:  dashboard,
		charts:     make(map[string]*Chart),
		indicators: make(map[string]*IndicatorBox),
		texts:      make(map[string]*TextBox),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dashboard returns the board's dashboard name.
func (b *Board) Dashboard() string { return b.dashboard }

// Subscribe adds a listener for subsequent redraws.
func (b *Board) Subscribe(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Chart returns the chart handle called name, creating it on first use.
func (b *Board) Chart(name string) *Chart {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.charts[name]; ok {
		return c
	}
	c := &Chart{board: b, name: name}
	b.charts[name] = c
	return c
}

// Indicator returns the indicator handle called name, creating it on first use.
func (b *Board) Indicator(name string) *IndicatorBox {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.indicators[name]; ok {
		return i
	}
	i := &IndicatorBox{board: b, name: name}
	b.indicators[name] = i
	return i
}

// Text returns the text handle called name, creating it on first use.
func (b *Board) Text(name string) *TextBox {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.texts[name]; ok {
		return t
	}
	t := &TextBox{board: b, name: name}
	b.texts[name] = t
	return t
}

// LookupChart returns an existing chart handle.
func (b *Board) LookupChart(name string) (*Chart, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.charts[name]
	return c, ok
}

// Snapshot copies the rendered state of every surface.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	charts := make([]*Chart, 0, len(b.charts))
	for _, c := range b.charts {
		charts = append(charts, c)
	}
	indicators := make([]*IndicatorBox, 0, len(b.indicators))
	for _, i := range b.indicators {
		indicators = append(indicators, i)
	}
	texts := make([]*TextBox, 0, len(b.texts))
	for _, t := range b.texts {
		texts = append(texts, t)
	}
	snap := Snapshot{
		Dashboard:  b.dashboard,
		Charts:     make(map[string]history.Snapshot, len(charts)),
		Indicators: make(map[string]risk.Reading, len(indicators)),
		Texts:      make(map[string]string, len(texts)),
		Redraws:    b.redraws,
		UpdatedAt:  b.updatedAt,
	}
	b.mu.RUnlock()

	for _, c := range charts {
		snap.Charts[c.name] = c.Snapshot()
	}
	for _, i := range indicators {
		snap.Indicators[i.name] = i.Reading()
	}
	for _, t := range texts {
		snap.Texts[t.name] = t.Value()
	}
	return snap
}

// emit stamps ev, bumps counters and notifies listeners outside the lock.
func (b *Board) emit(ev Event) {
	b.mu.Lock()
	ev.Dashboard = b.dashboard
	ev.At = b.now()
	b.redraws++
	b.updatedAt = ev.At
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.Unlock()

	for _, l := range listeners {
		l.OnRender(ev)
	}
}

// Chart is a long-lived line chart handle.
type Chart struct {
	board *Board
	name  string

	mu   sync.RWMutex
	snap history.Snapshot
}

// Name returns the chart name.
func (c *Chart) Name() string { return c.name }

// Redraw replaces the drawn series with snap.
func (c *Chart) Redraw(snap history.Snapshot) {
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	c.board.emit(Event{Name: c.name, Kind: KindChart, Chart: &snap})
}

// Snapshot returns what the chart currently shows.
func (c *Chart) Snapshot() history.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.snap
	s.Labels = append([]string{}, s.Labels...)
	s.Values = append([]float64{}, s.Values...)
	if s.Name == "" {
		s.Name = c.name
	}
	return s
}

// IndicatorBox is a long-lived risk indicator handle.
type IndicatorBox struct {
	board *Board
	name  string

	mu      sync.RWMutex
	reading risk.Reading
}

// Name returns the indicator name.
func (i *IndicatorBox) Name() string { return i.name }

// SetRisk shows r.
func (i *IndicatorBox) SetRisk(r risk.Reading) {
	i.mu.Lock()
	i.reading = r
	i.mu.Unlock()
	i.board.emit(Event{Name: i.name, Kind: KindIndicator, Reading: &r})
}

// Reading returns what the indicator currently shows.
func (i *IndicatorBox) Reading() risk.Reading {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.reading
}

// TextBox is a long-lived text label handle.
type TextBox struct {
	board *Board
	name  string

	mu   sync.RWMutex
	text string
}

// Name returns the label name.
func (t *TextBox) Name() string { return t.name }

// SetText shows text.
func (t *TextBox) SetText(text string) {
	t.mu.Lock()
	t.text = text
	t.mu.Unlock()
	t.board.emit(Event{Name: t.name, Kind: KindText, Text: text})
}

// Value returns the label text.
func (t *TextBox) Value() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

// Package history holds the fixed-capacity FIFO windows that back live charts.
package history

import (
	"sync"
)

// DefaultCap is the window length used when no positive cap is configured.
const DefaultCap = 30

// Point is one (label, value) sample. Label is the server-supplied timestamp,
// kept opaque.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Snapshot is a copy of a series taken at one instant.
type Snapshot struct {
	Name   string    `json:"name"`
	Cap    int       `json:"cap"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of points in the snapshot.
func (s Snapshot) Len() int { return len(s.Values) }

// Last returns the newest point, if any.
func (s Snapshot) Last() (Point, bool) {
	if len(s.Values) == 0 {
		return Point{}, false
	}
	i := len(s.Values) - 1
	return Point{Label: s.Labels[i], Value: s.Values[i]}, true
}

// Series is a bounded history buffer. Labels and values share one append and
// one trim so they stay index-aligned.
type Series struct {
	mu     sync.RWMutex
	name   string
	cap    int
	labels []string
	values []float64
}

// Option applies a configuration option to a Series.
type Option func(*Series)

// WithCap sets the window length. Non-positive values keep the default.
func WithCap(n int) Option {
	return func(s *Series) {
		if n > 0 {
			s.cap = n
		}
	}
}

// New creates an empty series.
func New(name string, opts ...Option) *Series {
	s := &Series{
		name: name,
		cap:  DefaultCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.labels = make([]string, 0, s.cap+1)
	s.values = make([]float64, 0, s.cap+1)
	return s
}

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// Cap returns the configured window length.
func (s *Series) Cap() int { return s.cap }

// Append adds one point and drops the oldest ones beyond the cap.
func (s *Series) Append(label string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.labels = append(s.labels, label)
	s.values = append(s.values, value)

	if over := len(s.values) - s.cap; over > 0 {
		// Shift in place so the backing arrays do not grow without bound.
		n := copy(s.labels, s.labels[over:])
		clear(s.labels[n:])
		s.labels = s.labels[:n]
		s.values = s.values[:copy(s.values, s.values[over:])]
	}
}

// AppendPoint is Append for a Point.
func (s *Series) AppendPoint(p Point) { s.Append(p.Label, p.Value) }

// Len returns the number of buffered points.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot copies the buffer.
func (s *Series) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Name:   s.name,
		Cap:    s.cap,
		Labels: append([]string(nil), s.labels...),
		Values: append([]float64(nil), s.values...),
	}
}

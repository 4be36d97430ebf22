// Package simsource is a synthetic stand-in for the upstream risk service. It
// serves /api/combined and /api/landslide from a random walk of sensor
// readings scored by fixed rules.
package simsource

import (
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/slopewatch/pkg/logger"
)

// Default source configuration constants.
const (
	DefaultWindow   = 30
	DefaultInterval = time.Second
	fallbackLabel   = "NA"
)

// Source keeps a bounded window of readings and serves them.
type Source struct {
	runID     string
	gen       *Generator
	window    int
	errorRate float64
	now       func() time.Time
	logger    logger.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	readings []Reading
	served   uint64
	injected uint64
}

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithWindow sets how many readings the landslide arrays carry.
func WithWindow(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithErrorRate sets the probability of answering with an error marker.
func WithErrorRate(p float64) Option {
	return func(s *Source) {
		if p >= 0 && p <= 1 {
			s.errorRate = p
		}
	}
}

// WithSeed makes the generated walk and error injection reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Source) {
		s.gen = NewGenerator(seed)
		s.rng = rand.New(rand.NewPCG(seed, ^seed))
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a source with no readings yet.
func New(opts ...Option) *Source {
	seed := rand.Uint64()
	s := &Source{
		runID:  uuid.NewString(),
		gen:    NewGenerator(seed),
		rng:    rand.New(rand.NewPCG(seed, ^seed)),
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("simsource")
	}
	return s
}

// RunID identifies this source instance.
func (s *Source) RunID() string { return s.runID }

// Tick generates one reading and returns it.
func (s *Source) Tick() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.gen.Next(s.now())
	s.readings = append(s.readings, r)
	if over := len(s.readings) - s.window; over > 0 {
		s.readings = s.readings[:copy(s.readings, s.readings[over:])]
	}
	return r
}

// Run ticks every interval until ctx is cancelled.
func (s *Source) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "synthetic source started",
		logger.String("runID", s.runID),
		logger.Duration("interval", interval),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "synthetic source stopped")
			return
		case <-ticker.C:
			r := s.Tick()
			s.logger.Debug(ctx, "reading generated",
				logger.String("timestamp", r.Timestamp),
				logger.Float64("landslide", LandslideRisk(r)),
				logger.Float64("flood", FloodRisk(r)),
			)
		}
	}
}

// Len returns the number of buffered readings.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

// Stats reports how many responses were served and how many carried an
// injected error.
func (s *Source) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"runID":    s.runID,
		"readings": len(s.readings),
		"served":   s.served,
		"injected": s.injected,
	}
}

// Handler returns the upstream API routes.
func (s *Source) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/combined", s.handleCombined)
	mux.HandleFunc("GET /api/landslide", s.handleLandslide)
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.Stats())
	})
	return mux
}

type combinedBody struct {
	Scores
	Timestamp string `json:"timestamp"`
}

type landslideBody struct {
	Labels          []string `json:"labels"`
	Soil1           []int    `json:"soil1"`
	Soil2           []int    `json:"soil2"`
	Tilt            []int    `json:"tilt"`
	Vibration       []int    `json:"vibration"`
	Rain            []int    `json:"rain"`
	LandslideDanger float64  `json:"landslide_danger"`
}

type errorBody struct {
	Error any `json:"error"`
}

func (s *Source) handleCombined(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.served++

	if s.inject() {
		writeJSON(w, errorBody{Error: true})
		return
	}
	if len(s.readings) == 0 {
		writeJSON(w, combinedBody{Timestamp: fallbackLabel})
		return
	}
	last := s.readings[len(s.readings)-1]
	writeJSON(w, combinedBody{Scores: round(Score(last)), Timestamp: last.Timestamp})
}

func (s *Source) handleLandslide(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.served++

	if s.inject() {
		writeJSON(w, errorBody{Error: true})
		return
	}
	if len(s.readings) == 0 {
		writeJSON(w, errorBody{Error: "no readings yet"})
		return
	}

	n := len(s.readings)
	body := landslideBody{
		Labels:    make([]string, n),
		Soil1:     make([]int, n),
		Soil2:     make([]int, n),
		Tilt:      make([]int, n),
		Vibration: make([]int, n),
		Rain:      make([]int, n),
	}
	for i, r := range s.readings {
		body.Labels[i] = r.Timestamp
		body.Soil1[i] = r.Soil1
		body.Soil2[i] = r.Soil2
		body.Tilt[i] = r.Tilt()
		body.Rain[i] = r.Rain
		if r.Vibrating() {
			body.Vibration[i] = 1
		}
	}
	body.LandslideDanger = roundTenth(LandslideRisk(s.readings[n-1]))
	writeJSON(w, body)
}

// inject must be called with mu held.
func (s *Source) inject() bool {
	if s.errorRate <= 0 || s.rng.Float64() >= s.errorRate {
		return false
	}
	s.injected++
	return true
}

func round(sc Scores) Scores {
	return Scores{
		Landslide: roundTenth(sc.Landslide),
		Flood:     roundTenth(sc.Flood),
		Combined:  roundTenth(sc.Combined),
	}
}

func roundTenth(f float64) float64 { return math.Round(f*10) / 10 }

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

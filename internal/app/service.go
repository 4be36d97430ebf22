// Package service wires the dashboards, their rendering surfaces and the
// fan-out adapters into one long-running service.
package service

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/slopewatch/internal/adapters/mqtt"
	"github.com/okian/slopewatch/internal/adapters/render"
	"github.com/okian/slopewatch/internal/adapters/source"
	"github.com/okian/slopewatch/internal/adapters/ws"
	"github.com/okian/slopewatch/internal/dashboard"
	"github.com/okian/slopewatch/internal/domain/history"
	"github.com/okian/slopewatch/internal/domain/risk"
	"github.com/okian/slopewatch/pkg/logger"
	"github.com/okian/slopewatch/pkg/metrics"
)

// Default upstream endpoints.
const (
	DefaultCombinedURL  = "http://localhost:5000/api/combined"
	DefaultLandslideURL = "http://localhost:5000/api/landslide"
)

// Service runs the combined and landslide dashboards and exposes their state.
type Service struct {
	mu sync.RWMutex

	// Configuration
	combinedURL    string
	landslideURL   string
	combinedSrc    source.Fetcher
	landslideSrc   source.Fetcher
	interval       time.Duration
	requestTimeout time.Duration
	historyCap     int
	medium, high   float64
	mqttConfig     mqtt.ClientConfig
	mqttTopic      string

	// Core components
	boards    map[string]*render.Board
	combined  *dashboard.CombinedDashboard
	landslide *dashboard.LandslideDashboard
	hub       *ws.Hub
	mqttConn  paho.Client
	publisher atomic.Pointer[mqtt.Publisher]

	// State
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithUpstream sets the two endpoint URLs polled by the dashboards.
func WithUpstream(combinedURL, landslideURL string) Option {
	return func(s *Service) {
		if combinedURL != "" {
			s.combinedURL = combinedURL
		}
		if landslideURL != "" {
			s.landslideURL = landslideURL
		}
	}
}

// WithFetchers replaces the HTTP fetchers. Nil entries keep the default.
func WithFetchers(combined, landslide source.Fetcher) Option {
	return func(s *Service) {
		s.combinedSrc = combined
		s.landslideSrc = landslide
	}
}

// WithInterval sets the poll period.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRequestTimeout bounds each upstream request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.requestTimeout = d
		}
	}
}

// WithHistoryCap sets the window length of every chart.
func WithHistoryCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyCap = n
		}
	}
}

// WithRiskThresholds sets the numeric medium and high boundaries.
func WithRiskThresholds(medium, high float64) Option {
	return func(s *Service) {
		if medium < high {
			s.medium, s.high = medium, high
		}
	}
}

// WithMQTT enables the indicator publisher. An empty broker disables it.
func WithMQTT(cfg mqtt.ClientConfig, topic string) Option {
	return func(s *Service) {
		s.mqttConfig = cfg
		if topic != "" {
			s.mqttTopic = topic
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		combinedURL:    DefaultCombinedURL,
		landslideURL:   DefaultLandslideURL,
		interval:       dashboard.DefaultInterval,
		requestTimeout: source.DefaultTimeout,
		historyCap:     history.DefaultCap,
		medium:         risk.DefaultMediumThreshold,
		high:           risk.DefaultHighThreshold,
		mqttTopic:      "slopewatch/" + mqtt.PlaceholderDashboard + "/" + mqtt.PlaceholderIndicator,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.combinedSrc == nil {
		s.combinedSrc = source.NewHTTPFetcher(s.combinedURL, source.WithTimeout(s.requestTimeout))
	}
	if s.landslideSrc == nil {
		s.landslideSrc = source.NewHTTPFetcher(s.landslideURL, source.WithTimeout(s.requestTimeout))
	}

	combinedBoard := render.NewBoard(dashboard.Combined)
	landslideBoard := render.NewBoard(dashboard.Landslide)
	s.boards = map[string]*render.Board{
		dashboard.Combined:  combinedBoard,
		dashboard.Landslide: landslideBoard,
	}

	s.hub = ws.NewHub(ws.WithBoards(combinedBoard, landslideBoard), ws.WithLogger(s.logger.Named("ws")))
	combinedBoard.Subscribe(s.hub)
	landslideBoard.Subscribe(s.hub)
	combinedBoard.Subscribe(render.ListenerFunc(s.forwardMQTT))
	landslideBoard.Subscribe(render.ListenerFunc(s.forwardMQTT))

	dashOpts := []dashboard.Option{
		dashboard.WithInterval(s.interval),
		dashboard.WithCap(s.historyCap),
		dashboard.WithClassifier(risk.NewClassifier(risk.WithThresholds(s.medium, s.high))),
	}
	s.combined = dashboard.NewCombined(s.combinedSrc,
		boardSurfaces(combinedBoard, dashboard.CombinedLayout),
		append(dashOpts, dashboard.WithLogger(s.logger.Named(dashboard.Combined)))...,
	)
	s.landslide = dashboard.NewLandslide(s.landslideSrc,
		boardSurfaces(landslideBoard, dashboard.LandslideLayout),
		append(dashOpts, dashboard.WithLogger(s.logger.Named(dashboard.Landslide)))...,
	)
	return s
}

// boardSurfaces hands out the board's handles for everything layout names.
func boardSurfaces(b *render.Board, layout dashboard.Layout) dashboard.Surfaces {
	s := dashboard.Surfaces{
		Charts:     make(map[string]dashboard.ChartSurface, len(layout.Charts)),
		Indicators: make(map[string]risk.Indicator, len(layout.Indicators)),
		Texts:      make(map[string]risk.TextSurface, len(layout.Texts)),
	}
	for _, name := range layout.Charts {
		s.Charts[name] = b.Chart(name)
	}
	for _, name := range layout.Indicators {
		s.Indicators[name] = b.Indicator(name)
	}
	for _, name := range layout.Texts {
		s.Texts[name] = b.Text(name)
	}
	return s
}

// Start launches the hub, the optional MQTT publisher and both pollers.
// They run until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting dashboard service...")
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.goRun(func() { s.hub.Run(runCtx) })

	if s.mqttConfig.Broker != "" {
		conn, err := mqtt.Connect(runCtx, s.mqttConfig, s.logger.Named("mqtt"))
		if err != nil {
			s.logger.Warn(ctx, "mqtt disabled", logger.Error(err))
		} else {
			s.mqttConn = conn
			pub := mqtt.NewPublisher(conn, s.mqttTopic, mqtt.WithLogger(s.logger.Named("mqtt")))
			s.publisher.Store(pub)
			s.goRun(func() { pub.Start(runCtx) })
		}
	}

	s.goRun(func() { s.combined.Run(runCtx) })
	s.goRun(func() { s.landslide.Run(runCtx) })

	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.Duration("interval", s.interval),
		logger.Int("historyCap", s.historyCap),
		logger.Bool("mqtt", s.publisher.Load() != nil),
	)
	return nil
}

// forwardMQTT hands redraws to the publisher of the current run, if any.
func (s *Service) forwardMQTT(ev render.Event) {
	if pub := s.publisher.Load(); pub != nil {
		pub.OnRender(ev)
	}
}

func (s *Service) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Stop cancels every loop and waits for them to return.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping dashboard service...")
	s.cancel()
	s.wg.Wait()
	s.publisher.Store(nil)

	if s.mqttConn != nil {
		mqtt.Disconnect(s.mqttConn)
		s.mqttConn = nil
	}

	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

// Board returns the rendering board of the named dashboard.
func (s *Service) Board(name string) (*render.Board, bool) {
	b, ok := s.boards[name]
	return b, ok
}

// View returns the current view of the named dashboard.
func (s *Service) View(name string) (dashboard.Snapshot, bool) {
	switch name {
	case dashboard.Combined:
		return s.combined.Snapshot(), true
	case dashboard.Landslide:
		return s.landslide.Snapshot(), true
	}
	return dashboard.Snapshot{}, false
}

// Hub returns the websocket hub serving live viewers.
func (s *Service) Hub() *ws.Hub { return s.hub }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"intervalMs":   s.interval.Milliseconds(),
		"historyCap":   s.historyCap,
		"mqttEnabled":  s.publisher.Load() != nil,
		"wsClients":    s.hub.Clients(),
		"combinedURL":  s.combinedURL,
		"landslideURL": s.landslideURL,
	}

	dashboards := map[string]interface{}{}
	for name, d := range map[string]interface {
		Stats() dashboard.Stats
		Snapshot() dashboard.Snapshot
	}{
		dashboard.Combined:  s.combined,
		dashboard.Landslide: s.landslide,
	} {
		snap := d.Snapshot()
		lengths := make(map[string]int, len(snap.Series))
		for series, h := range snap.Series {
			lengths[series] = h.Len()
			metrics.UpdateHistoryLength(name, series, h.Len())
		}
		dashboards[name] = map[string]interface{}{
			"polls":         d.Stats(),
			"bufferLengths": lengths,
		}
	}
	stats["dashboards"] = dashboards
	return stats
}

// Live serves the websocket feed.
func (s *Service) Live() http.Handler { return s.hub }

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/slopewatch/internal/adapters/render"
	"github.com/okian/slopewatch/internal/dashboard"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// View returns the current view of a dashboard by name.
	View(name string) (dashboard.Snapshot, bool)

	// Board returns the rendering surfaces of a dashboard by name.
	Board(name string) (*render.Board, bool)

	// Live serves the websocket feed.
	Live() http.Handler
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	viewHandler      *ViewHandler
	chartHandler     *ChartHandler
	liveHandler      http.Handler
	dashboardHandler *dashboardHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithChartSize sets the default size of rendered charts.
func WithChartSize(width, height int) Option {
	return func(s *Server) {
		if width > 0 {
			s.chartHandler.width = width
		}
		if height > 0 {
			s.chartHandler.height = height
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		viewHandler:      NewViewHandler(deps),
		chartHandler:     NewChartHandler(deps),
		liveHandler:      deps.Live(),
		dashboardHandler: newDashboardHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /api/view/{dashboard}", MetricsMiddleware(s.viewHandler.HandleGetView, "view"))
	mux.HandleFunc("GET /charts/{dashboard}/{file}", MetricsMiddleware(s.chartHandler.HandleGetChart, "charts"))
	mux.Handle("/ws", s.liveHandler)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

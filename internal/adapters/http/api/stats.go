package api

import (
	"fmt"
	"net/http"
)

// StatsProvider reports service statistics. Per-dashboard poll counters are
// expected under the "dashboards" key, keyed by dashboard name.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves service and per-dashboard poll statistics.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats. With ?dashboard=<name> only that
// dashboard's poll counters and buffer lengths are returned.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	stats := h.statsProvider.GetStats()
	name := r.URL.Query().Get("dashboard")
	if name == "" {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	dashboards, _ := stats["dashboards"].(map[string]interface{})
	d, ok := dashboards[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %q", ErrUnknownView, name))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

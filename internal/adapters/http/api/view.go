package api

import (
	"fmt"
	"net/http"

	"github.com/okian/slopewatch/internal/dashboard"
)

// ViewDependencies defines the interface for view lookups.
type ViewDependencies interface {
	View(name string) (dashboard.Snapshot, bool)
}

// ViewHandler serves dashboard snapshots.
type ViewHandler struct {
	deps ViewDependencies
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies) *ViewHandler {
	return &ViewHandler{deps: deps}
}

// HandleGetView handles GET /api/view/{dashboard} requests.
func (h *ViewHandler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("dashboard")
	view, ok := h.deps.View(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %q", ErrUnknownView, name))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/slopewatch/internal/adapters/render"
)

// BoardDependencies defines the interface for rendering surface lookups.
type BoardDependencies interface {
	Board(name string) (*render.Board, bool)
}

// ChartHandler renders chart surfaces as PNG images.
type ChartHandler struct {
	deps   BoardDependencies
	width  int
	height int
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps BoardDependencies) *ChartHandler {
	return &ChartHandler{
		deps:   deps,
		width:  render.DefaultWidth,
		height: render.DefaultHeight,
	}
}

// HandleGetChart handles GET /charts/{dashboard}/{series}.png requests.
// Query parameters: mini=1 hides axes; w and h override the size.
func (h *ChartHandler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("dashboard")
	file := r.PathValue("file")
	series, ok := strings.CutSuffix(file, ".png")
	if !ok || series == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: expected <series>.png", ErrBadRequest))
		return
	}

	board, ok := h.deps.Board(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %q", ErrUnknownView, name))
		return
	}
	chart, ok := board.LookupChart(series)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %q", ErrUnknownSeries, series))
		return
	}

	q := r.URL.Query()
	opts := render.PNGOptions{
		Width:  positiveInt(q.Get("w"), h.width),
		Height: positiveInt(q.Get("h"), h.height),
		Mini:   q.Get("mini") == "1" || q.Get("mini") == "true",
		Title:  series,
	}

	var buf bytes.Buffer
	if err := render.RenderPNG(&buf, chart.Snapshot(), opts); err != nil {
		if errors.Is(err, render.ErrEmptyChart) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%w: %w", ErrRender, err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

const maxChartSide = 2000

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxChartSide)
}

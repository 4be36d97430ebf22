package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrServe         = errors.New("swagger serve failed")
	ErrBadRequest    = errors.New("bad request")
	ErrUnknownView   = errors.New("unknown dashboard")
	ErrUnknownSeries = errors.New("unknown series")
	ErrRender        = errors.New("chart render failed")
)

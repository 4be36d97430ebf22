package model

import "errors"

// Sentinel kinds for payload rejection. A rejected payload must not touch any
// buffer or indicator.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUpstreamError    = errors.New("upstream reported error")
	ErrShapeMismatch    = errors.New("payload shape mismatch")
)

// Package model contains the payload shapes exchanged with the upstream risk
// service and the validated samples derived from them.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/okian/slopewatch/internal/domain/risk"
)

// CombinedPayload is the body of GET /api/combined.
type CombinedPayload struct {
	Timestamp Label           `json:"timestamp"`
	Landslide risk.Value      `json:"landslide"`
	Flood     risk.Value      `json:"flood"`
	Combined  risk.Value      `json:"combined"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// LandslidePayload is the body of GET /api/landslide. Only the last element
// of each array is consumed per poll.
type LandslidePayload struct {
	Labels          []Label         `json:"labels"`
	Soil1           []risk.Value    `json:"soil1"`
	Soil2           []risk.Value    `json:"soil2"`
	Tilt            []risk.Value    `json:"tilt"`
	Vibration       []risk.Value    `json:"vibration"`
	Rain            []risk.Value    `json:"rain"`
	LandslideDanger risk.Value      `json:"landslide_danger"`
	Error           json.RawMessage `json:"error,omitempty"`
}

// CombinedSample is a validated combined payload.
type CombinedSample struct {
	Label     string
	Landslide float64
	Flood     float64
	Combined  float64
}

// LandslideSample is the newest reading of a validated landslide payload.
type LandslideSample struct {
	Label     string
	Soil1     float64
	Soil2     float64
	Tilt      float64
	Vibration float64
	Rain      risk.Value
	Danger    risk.Value
}

// DecodeCombined parses and validates a combined payload.
func DecodeCombined(data []byte) (CombinedSample, error) {
	var p CombinedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return CombinedSample{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return p.Sample()
}

// DecodeLandslide parses and validates a landslide payload.
func DecodeLandslide(data []byte) (LandslideSample, error) {
	var p LandslidePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return LandslideSample{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return p.Sample()
}

// Sample validates p and extracts the values the combined dashboard shows.
func (p CombinedPayload) Sample() (CombinedSample, error) {
	if errorMarked(p.Error) {
		return CombinedSample{}, ErrUpstreamError
	}
	if p.Timestamp == "" {
		return CombinedSample{}, fmt.Errorf("%w: missing timestamp", ErrShapeMismatch)
	}

	var (
		s   = CombinedSample{Label: p.Timestamp.String()}
		err error
	)
	if s.Landslide, err = numeric("landslide", p.Landslide); err != nil {
		return CombinedSample{}, err
	}
	if s.Flood, err = numeric("flood", p.Flood); err != nil {
		return CombinedSample{}, err
	}
	if s.Combined, err = numeric("combined", p.Combined); err != nil {
		return CombinedSample{}, err
	}
	return s, nil
}

// Sample validates p and extracts the newest reading of every series.
func (p LandslidePayload) Sample() (LandslideSample, error) {
	if errorMarked(p.Error) {
		return LandslideSample{}, ErrUpstreamError
	}
	if len(p.Labels) == 0 || p.Labels[len(p.Labels)-1] == "" {
		return LandslideSample{}, fmt.Errorf("%w: missing labels", ErrShapeMismatch)
	}

	var (
		s   = LandslideSample{Label: p.Labels[len(p.Labels)-1].String()}
		err error
	)
	if s.Soil1, err = lastNumeric("soil1", p.Soil1); err != nil {
		return LandslideSample{}, err
	}
	if s.Soil2, err = lastNumeric("soil2", p.Soil2); err != nil {
		return LandslideSample{}, err
	}
	if s.Tilt, err = lastNumeric("tilt", p.Tilt); err != nil {
		return LandslideSample{}, err
	}
	if s.Vibration, err = lastNumeric("vibration", p.Vibration); err != nil {
		return LandslideSample{}, err
	}
	if len(p.Rain) == 0 {
		return LandslideSample{}, fmt.Errorf("%w: rain is empty", ErrShapeMismatch)
	}
	s.Rain = p.Rain[len(p.Rain)-1]
	if !p.LandslideDanger.IsSet() {
		return LandslideSample{}, fmt.Errorf("%w: missing landslide_danger", ErrShapeMismatch)
	}
	s.Danger = p.LandslideDanger
	return s, nil
}

func numeric(field string, v risk.Value) (float64, error) {
	f, ok := v.Float()
	if !ok || v.Kind() != risk.KindNumber {
		return 0, fmt.Errorf("%w: %s must be numeric", ErrShapeMismatch, field)
	}
	return f, nil
}

func lastNumeric(field string, vs []risk.Value) (float64, error) {
	if len(vs) == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrShapeMismatch, field)
	}
	return numeric(field, vs[len(vs)-1])
}

// errorMarked reports whether the error field is present and truthy.
// Objects and arrays count as truthy.
func errorMarked(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v risk.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	return v.Truthy()
}

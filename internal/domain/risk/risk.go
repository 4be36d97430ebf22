// Package risk turns scalar or categorical risk values into displayable
// readings with a severity class.
package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Default thresholds on the 0..100 scale produced by the upstream scorer.
const (
	DefaultMediumThreshold = 30
	DefaultHighThreshold   = 60
)

// Rain status labels.
const (
	LabelRaining = "Raining"
	LabelNoRain  = "No Rain"
)

// Severity is the visual class of an indicator.
type Severity uint8

// Severities, in increasing order.
const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Rank is the numeric order of s, used for gauges.
func (s Severity) Rank() int { return int(s) }

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	*s = ParseSeverity(name)
	return nil
}

// ParseSeverity maps category names used by upstream services to a Severity.
func ParseSeverity(name string) Severity {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low", "safe", "normal", "ok", "none":
		return SeverityLow
	case "medium", "moderate", "warning", "elevated":
		return SeverityMedium
	case "high", "danger", "critical", "severe", "alert":
		return SeverityHigh
	}
	return SeverityUnknown
}

// Reading is what a risk indicator shows: the formatted value and its class.
type Reading struct {
	Value    Value    `json:"value"`
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

// Indicator is a display element able to show a reading.
type Indicator interface {
	SetRisk(r Reading)
}

// TextSurface is a display element showing plain text.
type TextSurface interface {
	SetText(text string)
}

// Classifier derives severities from values.
type Classifier struct {
	medium float64
	high   float64
}

// Option applies a configuration option to a Classifier.
type Option func(*Classifier)

// WithThresholds sets the numeric medium and high boundaries (inclusive).
// Ignored unless medium < high.
func WithThresholds(medium, high float64) Option {
	return func(c *Classifier) {
		if medium < high {
			c.medium = medium
			c.high = high
		}
	}
}

// NewClassifier creates a classifier with default thresholds.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		medium: DefaultMediumThreshold,
		high:   DefaultHighThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Thresholds returns the medium and high boundaries.
func (c *Classifier) Thresholds() (medium, high float64) {
	return c.medium, c.high
}

// Classify returns the severity of v.
func (c *Classifier) Classify(v Value) Severity {
	switch v.Kind() {
	case KindNumber:
		f, _ := v.Float()
		switch {
		case math.IsNaN(f):
			return SeverityUnknown
		case f >= c.high:
			return SeverityHigh
		case f >= c.medium:
			return SeverityMedium
		default:
			return SeverityLow
		}
	case KindBool:
		if v.Truthy() {
			return SeverityHigh
		}
		return SeverityLow
	case KindText:
		return ParseSeverity(v.String())
	}
	return SeverityUnknown
}

// Read builds the reading for v.
func (c *Classifier) Read(v Value) Reading {
	return Reading{
		Value:    v,
		Text:     v.String(),
		Severity: c.Classify(v),
	}
}

// SetRiskBox shows v on ind with its derived severity and returns what was shown.
func (c *Classifier) SetRiskBox(ind Indicator, v Value) Reading {
	r := c.Read(v)
	if ind != nil {
		ind.SetRisk(r)
	}
	return r
}

// RainLabel returns the rain status text for the latest rain reading.
func RainLabel(v Value) string {
	if v.Truthy() {
		return LabelRaining
	}
	return LabelNoRain
}

// String implements fmt.Stringer for logs.
func (r Reading) String() string {
	return fmt.Sprintf("%s (%s)", r.Text, r.Severity)
}

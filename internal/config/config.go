// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Durations are configured in milliseconds and exposed through helpers.
// - Provide New() to build a Config with defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// UpstreamURL is the base URL of the service exposing the risk endpoints.
	UpstreamURL string `koanf:"upstream_url"`

	// CombinedPath and LandslidePath are the endpoints each dashboard polls.
	CombinedPath  string `koanf:"combined_path"`
	LandslidePath string `koanf:"landslide_path"`

	// PollIntervalMS is the fixed delay between poll cycles.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// RequestTimeoutMS bounds a single fetch. Zero disables the timeout.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// HistoryCap is the number of points each chart keeps.
	HistoryCap int `koanf:"history_cap"`

	// RiskMediumThreshold and RiskHighThreshold split numeric risk values
	// into low / medium / high.
	RiskMediumThreshold float64 `koanf:"risk_medium_threshold"`
	RiskHighThreshold   float64 `koanf:"risk_high_threshold"`

	// MQTTBroker enables indicator publishing when non-empty, e.g. "tcp://localhost:1883".
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTClientID string `koanf:"mqtt_client_id"`
	MQTTUsername string `koanf:"mqtt_username"`
	MQTTPassword string `koanf:"mqtt_password"`
	// MQTTTopic may contain {dashboard} and {indicator} placeholders.
	MQTTTopic string `koanf:"mqtt_topic"`

	// ChartWidth and ChartHeight size rendered PNG charts in pixels.
	ChartWidth  int `koanf:"chart_width"`
	ChartHeight int `koanf:"chart_height"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		UpstreamURL:         "http://localhost:5000",
		CombinedPath:        "/api/combined",
		LandslidePath:       "/api/landslide",
		PollIntervalMS:      1500,
		RequestTimeoutMS:    10_000,
		HistoryCap:          30,
		RiskMediumThreshold: 30,
		RiskHighThreshold:   60,
		MQTTClientID:        "slopewatch",
		MQTTTopic:           "slopewatch/{dashboard}/{indicator}",
		ChartWidth:          480,
		ChartHeight:         200,
	}
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-fetch timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// CombinedURL joins the upstream base URL with the combined endpoint.
func (c *Config) CombinedURL() string {
	return joinURL(c.UpstreamURL, c.CombinedPath)
}

// LandslideURL joins the upstream base URL with the landslide endpoint.
func (c *Config) LandslideURL() string {
	return joinURL(c.UpstreamURL, c.LandslidePath)
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.UpstreamURL) == "":
		return fmt.Errorf("%w: upstream_url must not be empty", ErrInvalidConfig)
	case c.PollIntervalMS <= 0:
		return fmt.Errorf("%w: poll_interval_ms must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS < 0:
		return fmt.Errorf("%w: request_timeout_ms must not be negative", ErrInvalidConfig)
	case c.HistoryCap <= 0:
		return fmt.Errorf("%w: history_cap must be positive", ErrInvalidConfig)
	case c.RiskMediumThreshold >= c.RiskHighThreshold:
		return fmt.Errorf("%w: risk_medium_threshold must be below risk_high_threshold", ErrInvalidConfig)
	case c.ChartWidth <= 0 || c.ChartHeight <= 0:
		return fmt.Errorf("%w: chart size must be positive", ErrInvalidConfig)
	}
	return nil
}

func joinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

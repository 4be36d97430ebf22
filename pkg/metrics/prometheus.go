// Package metrics provides Prometheus metrics for the slopewatch dashboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome classifies how a poll cycle ended.
type Outcome string

// Poll cycle outcomes.
const (
	OutcomeApplied        Outcome = "applied"
	OutcomeStale          Outcome = "stale"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeMalformed      Outcome = "malformed"
	OutcomeUpstreamError  Outcome = "upstream_error"
	OutcomeShapeMismatch  Outcome = "shape_mismatch"
)

// Validate reports whether o is one of the known outcomes.
func (o Outcome) Validate() error {
	switch o {
	case OutcomeApplied, OutcomeStale, OutcomeTransportError,
		OutcomeMalformed, OutcomeUpstreamError, OutcomeShapeMismatch:
		return nil
	}
	return ErrUnknownOutcome
}

// Manager manages all Prometheus metrics for the dashboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Poll loop
	pollCycles   *prometheus.CounterVec
	pollLatency  *prometheus.HistogramVec
	pollInflight *prometheus.GaugeVec

	// Rendered state
	bufferLength *prometheus.GaugeVec
	riskValue    *prometheus.GaugeVec
	riskSeverity *prometheus.GaugeVec
	chartRenders *prometheus.CounterVec

	// Fan-out
	wsClients     prometheus.Gauge
	wsMessages    prometheus.Counter
	wsDropped     prometheus.Counter
	mqttPublishes *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "slopewatch",
		subsystem:        "dashboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.pollCycles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "poll_cycles_total",
		Help:        "Poll cycles by dashboard and outcome",
		ConstLabels: m.constLabels,
	}, []string{"dashboard", "outcome"})

	m.pollLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "poll_latency_milliseconds",
		Help:        "Upstream fetch latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"dashboard"})

	m.pollInflight = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "poll_inflight",
		Help:        "Fetches currently awaiting a response",
		ConstLabels: m.constLabels,
	}, []string{"dashboard"})

	m.bufferLength = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "history_length",
		Help:        "Points currently held by each history buffer",
		ConstLabels: m.constLabels,
	}, []string{"dashboard", "series"})

	m.riskValue = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "risk_value",
		Help:        "Last numeric value shown by each risk indicator",
		ConstLabels: m.constLabels,
	}, []string{"dashboard", "indicator"})

	m.riskSeverity = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "risk_severity",
		Help:        "Severity rank of each risk indicator (0 unknown, 1 low, 2 medium, 3 high)",
		ConstLabels: m.constLabels,
	}, []string{"dashboard", "indicator"})

	m.chartRenders = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "chart_renders_total",
		Help:        "PNG chart renders by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ws_clients",
		Help:        "Connected websocket viewers",
		ConstLabels: m.constLabels,
	})

	m.wsMessages = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ws_messages_total",
		Help:        "Update frames broadcast to websocket viewers",
		ConstLabels: m.constLabels,
	})

	m.wsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ws_dropped_clients_total",
		Help:        "Viewers disconnected because their send buffer was full",
		ConstLabels: m.constLabels,
	})

	m.mqttPublishes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "mqtt_publishes_total",
		Help:        "Risk indicator publishes by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_errors_total",
		Help:        "HTTP responses with status >= 400 by endpoint and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})
}

// RecordPollCycle counts one finished poll cycle. Unknown outcomes are
// recorded as "unknown" rather than dropped.
func (m *Manager) RecordPollCycle(dashboard string, outcome Outcome) {
	if !m.enabled {
		return
	}
	if outcome.Validate() != nil {
		outcome = "unknown"
	}
	m.pollCycles.WithLabelValues(dashboard, string(outcome)).Inc()
}

// RecordPollLatency records upstream fetch latency in milliseconds.
func (m *Manager) RecordPollLatency(dashboard string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.pollLatency.WithLabelValues(dashboard).Observe(latencyMs)
}

// AddPollInflight adjusts the in-flight fetch gauge by delta.
func (m *Manager) AddPollInflight(dashboard string, delta float64) {
	if !m.enabled {
		return
	}
	m.pollInflight.WithLabelValues(dashboard).Add(delta)
}

// UpdateHistoryLength sets the current length of a history buffer.
func (m *Manager) UpdateHistoryLength(dashboard, series string, n int) {
	if !m.enabled {
		return
	}
	m.bufferLength.WithLabelValues(dashboard, series).Set(float64(n))
}

// UpdateRisk sets the value and severity rank shown by an indicator.
func (m *Manager) UpdateRisk(dashboard, indicator string, value float64, severityRank int) {
	if !m.enabled {
		return
	}
	m.riskValue.WithLabelValues(dashboard, indicator).Set(value)
	m.riskSeverity.WithLabelValues(dashboard, indicator).Set(float64(severityRank))
}

// RecordChartRender counts a chart render attempt.
func (m *Manager) RecordChartRender(ok bool) {
	if !m.enabled {
		return
	}
	m.chartRenders.WithLabelValues(resultLabel(ok)).Inc()
}

// UpdateWSClients sets the connected viewer count.
func (m *Manager) UpdateWSClients(n int) {
	if !m.enabled {
		return
	}
	m.wsClients.Set(float64(n))
}

// RecordWSMessage counts a broadcast frame.
func (m *Manager) RecordWSMessage() {
	if !m.enabled {
		return
	}
	m.wsMessages.Inc()
}

// RecordWSDropped counts a viewer dropped for backpressure.
func (m *Manager) RecordWSDropped() {
	if !m.enabled {
		return
	}
	m.wsDropped.Inc()
}

// RecordMQTTPublish counts a publish attempt.
func (m *Manager) RecordMQTTPublish(ok bool) {
	if !m.enabled {
		return
	}
	m.mqttPublishes.WithLabelValues(resultLabel(ok)).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response by endpoint.
func (m *Manager) RecordHTTPError(endpoint, method, errorType string) {
	if !m.enabled {
		return
	}
	m.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates goroutine count.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	if !m.enabled {
		return
	}
	m.systemGoroutineCount.Set(float64(count))
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// Default returns the process-wide manager backed by the custom registry.
func Default() *Manager {
	return globalManager
}

// RecordPollCycle counts a poll cycle on the global manager.
func RecordPollCycle(dashboard string, outcome Outcome) {
	globalManager.RecordPollCycle(dashboard, outcome)
}

// RecordPollLatency records fetch latency on the global manager.
func RecordPollLatency(dashboard string, latencyMs float64) {
	globalManager.RecordPollLatency(dashboard, latencyMs)
}

// AddPollInflight adjusts the in-flight gauge on the global manager.
func AddPollInflight(dashboard string, delta float64) {
	globalManager.AddPollInflight(dashboard, delta)
}

// UpdateHistoryLength sets a buffer length on the global manager.
func UpdateHistoryLength(dashboard, series string, n int) {
	globalManager.UpdateHistoryLength(dashboard, series, n)
}

// UpdateRisk sets indicator gauges on the global manager.
func UpdateRisk(dashboard, indicator string, value float64, severityRank int) {
	globalManager.UpdateRisk(dashboard, indicator, value, severityRank)
}

// RecordChartRender counts a chart render on the global manager.
func RecordChartRender(ok bool) {
	globalManager.RecordChartRender(ok)
}

// UpdateWSClients sets the viewer count on the global manager.
func UpdateWSClients(n int) {
	globalManager.UpdateWSClients(n)
}

// RecordWSMessage counts a broadcast frame on the global manager.
func RecordWSMessage() {
	globalManager.RecordWSMessage()
}

// RecordWSDropped counts a dropped viewer on the global manager.
func RecordWSDropped() {
	globalManager.RecordWSDropped()
}

// RecordMQTTPublish counts a publish on the global manager.
func RecordMQTTPublish(ok bool) {
	globalManager.RecordMQTTPublish(ok)
}

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPError records an HTTP error on the global manager.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.RecordHTTPError(endpoint, method, errorType)
}

// UpdateSystemMemoryUsage updates memory usage on the global manager.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.UpdateSystemMemoryUsage(bytes)
}

// UpdateSystemGoroutineCount updates goroutine count on the global manager.
func UpdateSystemGoroutineCount(count int) {
	globalManager.UpdateSystemGoroutineCount(count)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation statuses recorded per metric.
const (
	StatusOK      = "ok"
	StatusUnknown = "unknown"
	StatusFailed  = "failed"
)

// UnknownMetricLabel replaces client-supplied names that resolve to no metric,
// keeping the metric label bounded by the registry.
const UnknownMetricLabel = "unknown"

// Score stages recorded per produced score.
const (
	StageRaw         = "raw"
	StageTransformed = "transformed"
	StageNormalized  = "normalized"
)

// Manager manages all Prometheus metrics for the scoring service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Evaluation Metrics
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	metricEvaluations  *prometheus.CounterVec
	metricLatency      *prometheus.HistogramVec
	scoreStages        *prometheus.CounterVec
	outOfDomain        *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "dval",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.evaluationsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "evaluations_total",
		Help:        "Total number of evaluation runs by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.evaluationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "evaluation_duration_milliseconds",
		Help:        "Wall time of a full evaluation run in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.metricEvaluations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "metric_evaluations_total",
		Help:        "Metric computations by metric name and status",
		ConstLabels: labels,
	}, []string{"metric", "status"})

	m.metricLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "metric_latency_milliseconds",
		Help:        "Latency of a single metric computation in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"metric"})

	m.scoreStages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scores_total",
		Help:        "Produced scores by the lifecycle stage they reached",
		ConstLabels: labels,
	}, []string{"stage"})

	m.outOfDomain = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "out_of_domain_total",
		Help:        "Raw or baseline values rejected by a transformation",
		ConstLabels: labels,
	}, []string{"metric"})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Errors by component and type",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// SetEnabled switches recording on or off.
func (m *Manager) SetEnabled(enabled bool) { m.enabled.Store(enabled) }

// RecordEvaluation counts a finished run and its duration.
func (m *Manager) RecordEvaluation(outcome string, durationMs float64) {
	if !m.Enabled() {
		return
	}
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
	m.evaluationDuration.Observe(durationMs)
}

// RecordMetricEvaluation counts one metric computation.
func (m *Manager) RecordMetricEvaluation(metric, status string, latencyMs float64) error {
	switch status {
	case StatusOK, StatusUnknown, StatusFailed:
	default:
		return fmt.Errorf("%q: %w", status, ErrUnknownStatus)
	}
	if !m.Enabled() {
		return nil
	}
	if status == StatusUnknown {
		metric = UnknownMetricLabel
	}
	m.metricEvaluations.WithLabelValues(metric, status).Inc()
	if status != StatusUnknown {
		m.metricLatency.WithLabelValues(metric).Observe(latencyMs)
	}
	return nil
}

// RecordScoreStage counts a produced score by the stage it reached.
func (m *Manager) RecordScoreStage(stage string) {
	if m.Enabled() {
		m.scoreStages.WithLabelValues(stage).Inc()
	}
}

// RecordOutOfDomain counts a value a transformation rejected.
func (m *Manager) RecordOutOfDomain(metric string) {
	if m.Enabled() {
		m.outOfDomain.WithLabelValues(metric).Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.Enabled() {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.Enabled() {
		m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// Package-level helpers recording on the global manager.

// SetEnabled switches the global manager on or off.
func SetEnabled(enabled bool) { globalManager.SetEnabled(enabled) }

// RecordEvaluation counts a finished run on the global manager.
func RecordEvaluation(outcome string, durationMs float64) {
	globalManager.RecordEvaluation(outcome, durationMs)
}

// RecordMetricEvaluation counts one metric computation on the global manager.
func RecordMetricEvaluation(metric, status string, latencyMs float64) error {
	return globalManager.RecordMetricEvaluation(metric, status, latencyMs)
}

// RecordScoreStage counts a produced score on the global manager.
func RecordScoreStage(stage string) { globalManager.RecordScoreStage(stage) }

// RecordOutOfDomain counts a rejected value on the global manager.
func RecordOutOfDomain(metric string) { globalManager.RecordOutOfDomain(metric) }

// RecordHTTPRequest counts an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent records an error on the global manager.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

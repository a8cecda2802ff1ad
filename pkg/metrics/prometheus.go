// Package metrics provides Prometheus metrics for the TQI scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the TQI service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Engine metrics
	recomputes       *prometheus.CounterVec
	recomputeLatency prometheus.Histogram
	validationErrors *prometheus.CounterVec
	lastComposite    prometheus.Gauge
	lastPopulation   prometheus.Gauge
	sweepRuns        prometheus.Counter
	sweepLatency     prometheus.Histogram

	// Session metrics
	activeSessions  prometheus.Gauge
	sessionsCreated prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "tqi",
		subsystem:        "engine",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
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

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	// A disabled manager still needs live collectors; they simply go unregistered.
	var reg prometheus.Registerer = prometheus.NewRegistry()
	if m.enabled {
		reg = m.registry
	}
	auto := promauto.With(reg)

	m.recomputes = auto.NewCounterVec(
		m.counterOpts("recomputes_total", "Completed recomputes by trigger (create, plan, target, weights, filter, reseed, score)"),
		[]string{"trigger"},
	)
	m.recomputeLatency = auto.NewHistogram(
		m.histogramOpts("recompute_latency_milliseconds", "Generate -> aggregate -> score cycle latency in milliseconds", m.histogramBuckets),
	)
	m.validationErrors = auto.NewCounterVec(
		m.counterOpts("validation_errors_total", "Rejected inputs by kind (invalid_plan, invalid_weights, invalid_sweep, invalid_roster)"),
		[]string{"kind"},
	)
	m.lastComposite = auto.NewGauge(m.gaugeOpts("last_composite_score", "Composite score of the most recent recompute"))
	m.lastPopulation = auto.NewGauge(m.gaugeOpts("last_population_count", "Filtered population size of the most recent recompute"))
	m.sweepRuns = auto.NewCounter(m.counterOpts("sweep_replicates_total", "Monte Carlo replicates executed"))
	m.sweepLatency = auto.NewHistogram(
		m.histogramOpts("sweep_latency_milliseconds", "Whole-sweep latency in milliseconds", m.histogramBuckets),
	)

	m.activeSessions = auto.NewGauge(m.gaugeOpts("active_sessions", "Sessions currently held in the store"))
	m.sessionsCreated = auto.NewCounter(m.counterOpts("sessions_created_total", "Sessions created since start"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Enabled reports whether the manager registers its collectors.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordRecompute records one finished recompute.
func (m *Manager) RecordRecompute(trigger string, latencyMs, composite float64, population int) {
	m.recomputes.WithLabelValues(trigger).Inc()
	m.recomputeLatency.Observe(latencyMs)
	m.lastComposite.Set(composite)
	m.lastPopulation.Set(float64(population))
}

// RecordValidationError counts a rejected input.
func (m *Manager) RecordValidationError(kind string) {
	m.validationErrors.WithLabelValues(kind).Inc()
}

// RecordSweep records a finished sweep of n replicates.
func (m *Manager) RecordSweep(n int, latencyMs float64) {
	m.sweepRuns.Add(float64(n))
	m.sweepLatency.Observe(latencyMs)
}

// Package-level recorders on the global manager.

// RecordRecompute records one finished recompute.
func RecordRecompute(trigger string, latencyMs, composite float64, population int) {
	globalManager.RecordRecompute(trigger, latencyMs, composite, population)
}

// RecordValidationError counts a rejected input of the given kind.
func RecordValidationError(kind string) {
	globalManager.RecordValidationError(kind)
}

// RecordSweep records a finished sweep of n replicates.
func RecordSweep(n int, latencyMs float64) {
	globalManager.RecordSweep(n, latencyMs)
}

// UpdateActiveSessions sets the number of live sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

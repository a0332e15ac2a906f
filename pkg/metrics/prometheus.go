package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes used as the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// latencyBuckets covers upstream API round trips in milliseconds.
var latencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the wbstats service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Upstream fetch metrics
	fetchRequests  *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	fetchPages     *prometheus.CounterVec
	recordsFetched *prometheus.CounterVec

	// Pipeline stage metrics
	stageLatency *prometheus.HistogramVec
	stageRows    *prometheus.HistogramVec

	// Output metrics
	reportsWritten *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
}

// Namespace prefixes every metric name.
const Namespace = "wbstats"

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
		namespace:        Namespace,
		histogramBuckets: latencyBuckets,
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
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)

	m.fetchRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_requests_total",
		Help:        "World Bank API calls by operation and outcome",
		ConstLabels: m.constLabels,
	}, []string{"op", "outcome"})

	m.fetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_latency_milliseconds",
		Help:        "Latency of a complete paged World Bank fetch in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.fetchPages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_pages_total",
		Help:        "Pages read from the World Bank API by operation",
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.recordsFetched = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_fetched_total",
		Help:        "Raw records decoded from World Bank responses by operation",
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.stageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_latency_milliseconds",
		Help:        "Latency of pipeline stages (normalize, regional, pivot, series) in milliseconds",
		Buckets:     []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500},
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.stageRows = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_rows",
		Help:        "Rows entering each pipeline stage",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.reportsWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reports_written_total",
		Help:        "Report artifacts written by kind and format",
		ConstLabels: m.constLabels,
	}, []string{"kind", "format"})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
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
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Errors by component and error type",
			ConstLabels: m.constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Errors by HTTP endpoint, method and error type",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)
}

// RecordFetch counts one World Bank call.
func (m *Manager) RecordFetch(op string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.fetchRequests.WithLabelValues(op, outcome).Inc()
}

// RecordFetchLatency records the latency of a paged fetch in milliseconds.
func (m *Manager) RecordFetchLatency(op string, latencyMs float64) {
	m.fetchLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordPagesFetched adds n pages for op.
func (m *Manager) RecordPagesFetched(op string, n int) {
	m.fetchPages.WithLabelValues(op).Add(float64(n))
}

// RecordRecordsFetched adds n decoded records for op.
func (m *Manager) RecordRecordsFetched(op string, n int) {
	m.recordsFetched.WithLabelValues(op).Add(float64(n))
}

// RecordStage records the latency and input size of a pipeline stage.
func (m *Manager) RecordStage(stage string, rows int, latencyMs float64) {
	m.stageLatency.WithLabelValues(stage).Observe(latencyMs)
	m.stageRows.WithLabelValues(stage).Observe(float64(rows))
}

// RecordReportWritten counts one written artifact.
func (m *Manager) RecordReportWritten(kind, format string) {
	m.reportsWritten.WithLabelValues(kind, format).Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method string, status int, durationMs float64) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordFetch counts one World Bank call on the global manager.
func RecordFetch(op string, err error) { globalManager.RecordFetch(op, err) }

// RecordFetchLatency records fetch latency on the global manager.
func RecordFetchLatency(op string, latencyMs float64) {
	globalManager.RecordFetchLatency(op, latencyMs)
}

// RecordPagesFetched adds fetched pages on the global manager.
func RecordPagesFetched(op string, n int) { globalManager.RecordPagesFetched(op, n) }

// RecordRecordsFetched adds decoded records on the global manager.
func RecordRecordsFetched(op string, n int) { globalManager.RecordRecordsFetched(op, n) }

// RecordStage records a pipeline stage on the global manager.
func RecordStage(stage string, rows int, latencyMs float64) {
	globalManager.RecordStage(stage, rows, latencyMs)
}

// RecordReportWritten counts a written artifact on the global manager.
func RecordReportWritten(kind, format string) { globalManager.RecordReportWritten(kind, format) }

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method string, status int, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, status, durationMs)
}

// RecordErrorByComponent records a component error on the global manager.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// RecordErrorByEndpoint records an endpoint error on the global manager.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

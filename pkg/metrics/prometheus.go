// Package metrics provides Prometheus metrics for the rulcast session service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds; prediction services answer in tens to thousands of ms.
var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// RUL buckets in operating cycles.
var defaultRULBuckets = []float64{10, 25, 50, 75, 100, 125, 150, 200, 300}

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	rulBuckets       []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Submission lifecycle
	submissionsTotal   prometheus.Counter
	submissionsIgnored prometheus.Counter
	predictionsOK      prometheus.Counter
	predictionsFailed  *prometheus.CounterVec
	staleResponses     prometheus.Counter
	predictionLatency  prometheus.Histogram
	predictedRUL       prometheus.Histogram
	failureTypes       *prometheus.CounterVec

	// Sessions and history
	activeSessions   prometheus.Gauge
	sessionsOpened   prometheus.Counter
	sessionsExpired  prometheus.Counter
	historyEntries   prometheus.Gauge
	subscriberDrops  prometheus.Counter
	notificationDrop prometheus.Counter

	// Dispatch queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Dispatch workers
	workerCount             prometheus.Gauge
	workerBusyCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
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
		namespace:        "rulcast",
		subsystem:        "session",
		histogramBuckets: defaultLatencyBuckets,
		rulBuckets:       defaultRULBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	// A disabled manager still builds collectors so callers never nil-check,
	// but they are registered nowhere.
	if !m.enabled {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.submissionsTotal = m.counter("submissions_total", "Submissions that passed validation and were dispatched")
	m.submissionsIgnored = m.counter("submissions_ignored_total", "Submit attempts ignored because a request was already in flight")
	m.predictionsOK = m.counter("predictions_succeeded_total", "Predictions appended to a session history")
	m.predictionsFailed = m.counterVec("predictions_failed_total", "Failed submissions by failure kind", "kind")
	m.staleResponses = m.counter("stale_responses_total", "Prediction responses discarded because a newer request superseded them")
	m.predictionLatency = m.histogram("prediction_latency_milliseconds", "Round trip to the prediction service in milliseconds", m.histogramBuckets)
	m.predictedRUL = m.histogram("predicted_rul", "Distribution of predicted remaining useful life values", m.rulBuckets)
	m.failureTypes = m.counterVec("failure_types_total", "Predictions by returned failure type", "failure_type")

	m.activeSessions = m.gauge("active_sessions", "Sessions currently held in memory")
	m.sessionsOpened = m.counter("sessions_opened_total", "Sessions opened")
	m.sessionsExpired = m.counter("sessions_expired_total", "Sessions closed by idle expiry or eviction")
	m.historyEntries = m.gauge("history_entries", "History entries held across all sessions")
	m.subscriberDrops = m.counter("subscriber_drops_total", "Stream events dropped because a subscriber was slow")
	m.notificationDrop = m.counter("notification_drops_total", "Notifications dropped because the outbox was full")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the dispatch queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum dispatch queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Dispatch queue utilization ratio (size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by the dispatch queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Dispatch workers started")
	m.workerBusyCount = m.gauge("worker_busy_count", "Dispatch workers currently waiting on the prediction service")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Job handling time in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of failed operations in milliseconds", m.histogramBuckets, "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})
}

// Submission lifecycle.

func RecordSubmission()        { globalManager.submissionsTotal.Inc() }
func RecordSubmissionIgnored() { globalManager.submissionsIgnored.Inc() }
func RecordStaleResponse()     { globalManager.staleResponses.Inc() }

// RecordPredictionSucceeded counts a stored prediction and observes its RUL.
func RecordPredictionSucceeded(failureType string, rul float64) {
	globalManager.predictionsOK.Inc()
	globalManager.predictedRUL.Observe(rul)
	globalManager.failureTypes.WithLabelValues(failureType).Inc()
}

// RecordPredictionFailed counts a failed submission by kind (validation, service, malformed, busy, internal).
func RecordPredictionFailed(kind string) {
	globalManager.predictionsFailed.WithLabelValues(kind).Inc()
}

func RecordPredictionLatency(latencyMs float64) { globalManager.predictionLatency.Observe(latencyMs) }

// Sessions and history.

func UpdateActiveSessions(count int)  { globalManager.activeSessions.Set(float64(count)) }
func RecordSessionOpened()            { globalManager.sessionsOpened.Inc() }
func RecordSessionExpired()           { globalManager.sessionsExpired.Inc() }
func UpdateHistoryEntries(count int)  { globalManager.historyEntries.Set(float64(count)) }
func AddHistoryEntries(delta int)     { globalManager.historyEntries.Add(float64(delta)) }
func RecordSubscriberDrop()           { globalManager.subscriberDrops.Inc() }
func RecordNotificationDrop()         { globalManager.notificationDrop.Inc() }

// Dispatch queue.

func UpdateQueueSize(size int)                   { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int)           { globalManager.queueCapacity.Set(float64(capacity)) }
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }
func RecordQueueEnqueue()                        { globalManager.queueEnqueueRate.Inc() }
func RecordQueueDequeue()                        { globalManager.queueDequeueRate.Inc() }
func RecordQueueEnqueueError()                   { globalManager.queueEnqueueErrors.Inc() }
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Dispatch workers.

func UpdateWorkerCount(count int)     { globalManager.workerCount.Set(float64(count)) }
func IncWorkerBusy()                  { globalManager.workerBusyCount.Inc() }
func DecWorkerBusy()                  { globalManager.workerBusyCount.Dec() }
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// HTTP.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

func UpdateSystemMemoryUsage(bytes uint64)    { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int)    { globalManager.systemGoroutineCount.Set(float64(count)) }
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

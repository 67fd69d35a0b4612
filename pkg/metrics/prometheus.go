// Package metrics provides Prometheus metrics for the solvedboard crawler and API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// defaultRunBuckets spans a quick rerun up to a run that hits the timeout.
var defaultRunBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the solvedboard service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	runBuckets      []float64
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	metricPrefix    string
	registry        prometheus.Registerer

	// Source metrics - outbound calls to the ranking service
	sourceRequests        *prometheus.CounterVec
	sourceRequestDuration *prometheus.HistogramVec
	sourceRetries         *prometheus.CounterVec

	// Pipeline metrics
	pipelineRuns            *prometheus.CounterVec
	pipelineRunDuration     prometheus.Histogram
	pipelineLastSuccessUnix prometheus.Gauge
	pipelineMembers         prometheus.Gauge
	memberFetchFailures     prometheus.Counter
	pipelineRunning         prometheus.Gauge

	// Snapshot metrics
	snapshotWrites        *prometheus.CounterVec
	snapshotWriteDuration prometheus.Histogram
	snapshotAgeSeconds    prometheus.Gauge

	// Refresh queue metrics
	refreshQueueSize     prometheus.Gauge
	refreshRequests      *prometheus.CounterVec
	refreshWorkerLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
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
		namespace:       "solvedboard",
		subsystem:       "crawler",
		latencyBuckets:  prometheus.DefBuckets,
		runBuckets:      defaultRunBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		constLabels:     make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often runtime gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.constLabels)

	m.sourceRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("source_requests_total"),
		Help:        "Requests sent to the ranking service by endpoint and status",
		ConstLabels: constLabels,
	}, []string{"endpoint", "status"})

	m.sourceRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("source_request_duration_seconds"),
		Help:        "Latency of ranking service requests in seconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint"})

	m.sourceRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("source_retries_total"),
		Help:        "Retried ranking service requests by endpoint",
		ConstLabels: constLabels,
	}, []string{"endpoint"})

	m.pipelineRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("pipeline_runs_total"),
		Help:        "Pipeline runs by outcome (success, partial, failed)",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.pipelineRunDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("pipeline_run_duration_seconds"),
		Help:        "Wall time of a full pipeline run",
		Buckets:     m.runBuckets,
		ConstLabels: constLabels,
	})

	m.pipelineLastSuccessUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("pipeline_last_success_unix"),
		Help:        "Unix time of the last snapshot that was published",
		ConstLabels: constLabels,
	})

	m.pipelineMembers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("members"),
		Help:        "Members in the current snapshot",
		ConstLabels: constLabels,
	})

	m.memberFetchFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("member_fetch_failures_total"),
		Help:        "Member profile or solved-list fetches that failed and were degraded",
		ConstLabels: constLabels,
	})

	m.pipelineRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("pipeline_running"),
		Help:        "1 while a pipeline run is in progress",
		ConstLabels: constLabels,
	})

	m.snapshotWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_writes_total"),
		Help:        "Snapshot persistence attempts by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.snapshotWriteDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_write_duration_seconds"),
		Help:        "Time spent writing a snapshot to disk",
		Buckets:     m.latencyBuckets,
		ConstLabels: constLabels,
	})

	m.snapshotAgeSeconds = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("snapshot_age_seconds"),
		Help:        "Age of the served snapshot at the last freshness check",
		ConstLabels: constLabels,
	})

	m.refreshQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("refresh_queue_size"),
		Help:        "Pending refresh requests",
		ConstLabels: constLabels,
	})

	m.refreshRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("refresh_requests_total"),
		Help:        "Refresh requests by trigger and result (accepted, rejected)",
		ConstLabels: constLabels,
	}, []string{"trigger", "result"})

	m.refreshWorkerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("refresh_wait_seconds"),
		Help:        "Time a refresh request waited in the queue before a worker picked it up",
		Buckets:     m.latencyBuckets,
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.name("requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.name("request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     prometheus.ExponentialBuckets(0.5, 2, 14),
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and type",
		ConstLabels: constLabels,
	}, []string{"component", "error_type"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "HTTP errors by endpoint, method and type",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("memory_bytes"),
		Help:        "Heap bytes allocated",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("goroutines"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})
}

// Source metrics.

func RecordSourceRequest(endpoint, status string, d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.sourceRequests.WithLabelValues(endpoint, status).Inc()
	globalManager.sourceRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func RecordSourceRetry(endpoint string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sourceRetries.WithLabelValues(endpoint).Inc()
}

// Pipeline metrics.

func RecordPipelineRun(outcome string, d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.pipelineRuns.WithLabelValues(outcome).Inc()
	globalManager.pipelineRunDuration.Observe(d.Seconds())
}

func UpdatePipelineLastSuccess(t time.Time) {
	globalManager.pipelineLastSuccessUnix.Set(float64(t.Unix()))
}

func UpdatePipelineMembers(count int) {
	globalManager.pipelineMembers.Set(float64(count))
}

func RecordMemberFetchFailure() {
	globalManager.memberFetchFailures.Inc()
}

func SetPipelineRunning(running bool) {
	if running {
		globalManager.pipelineRunning.Set(1)
		return
	}
	globalManager.pipelineRunning.Set(0)
}

// Snapshot metrics.

func RecordSnapshotWrite(outcome string, d time.Duration) {
	globalManager.snapshotWrites.WithLabelValues(outcome).Inc()
	globalManager.snapshotWriteDuration.Observe(d.Seconds())
}

func UpdateSnapshotAge(age time.Duration) {
	globalManager.snapshotAgeSeconds.Set(age.Seconds())
}

// Refresh queue metrics.

func UpdateRefreshQueueSize(size int) {
	globalManager.refreshQueueSize.Set(float64(size))
}

func RecordRefreshRequest(trigger, result string) {
	globalManager.refreshRequests.WithLabelValues(trigger, result).Inc()
}

func RecordRefreshWait(d time.Duration) {
	globalManager.refreshWorkerLatency.Observe(d.Seconds())
}

// HTTP metrics.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RefreshInterval is how often the process should sample runtime gauges.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the registry backing the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

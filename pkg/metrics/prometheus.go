// Package metrics provides Prometheus metrics for the SOAR integration adapters.
package metrics

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector exported by the adapters.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Commands
	commandsExecuted *prometheus.CounterVec
	commandLatency   *prometheus.HistogramVec

	// Vendor APIs
	vendorRequests        *prometheus.CounterVec
	vendorRequestDuration *prometheus.HistogramVec
	vendorErrors          *prometheus.CounterVec
	breakerState          *prometheus.GaugeVec

	// Incident fetching
	fetchRuns              *prometheus.CounterVec
	alertsFetched          prometheus.Counter
	incidentsImported      prometheus.Counter
	incidentsDuplicate     prometheus.Counter
	alertsOutsideWindow    prometheus.Counter
	lastFetchUnix          prometheus.Gauge
	checkpointOperations   *prometheus.CounterVec
	checkpointLatency      *prometheus.HistogramVec

	// Incident queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// installed pairs the package-level manager with its own registry, which
// keeps default Go collectors out of the scrape.
type installed struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[installed] //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the package-level collectors with ones built from opts
// on a fresh registry. Call it at startup; values recorded before are lost.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	all := append(append([]Option(nil), opts...), WithPrometheusRegistry(registry))
	current.Store(&installed{manager: NewManager(all...), registry: registry})
}

func global() *Manager {
	return current.Load().manager
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "soarbridge",
		subsystem:        "adapters",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.commandsExecuted = auto.NewCounterVec(
		m.counterOpts("commands_executed_total", "Commands executed by integration, command and outcome"),
		[]string{"integration", "command", "outcome"},
	)
	m.commandLatency = auto.NewHistogramVec(
		m.histogramOpts("command_latency_milliseconds", "Command execution latency in milliseconds", m.histogramBuckets),
		[]string{"integration", "command"},
	)

	m.vendorRequests = auto.NewCounterVec(
		m.counterOpts("vendor_requests_total", "Outbound vendor API requests by vendor, method and status"),
		[]string{"vendor", "method", "status_code"},
	)
	m.vendorRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("vendor_request_duration_milliseconds", "Outbound vendor API latency in milliseconds", m.histogramBuckets),
		[]string{"vendor", "method"},
	)
	m.vendorErrors = auto.NewCounterVec(
		m.counterOpts("vendor_errors_total", "Outbound vendor API failures by kind"),
		[]string{"vendor", "kind"},
	)
	m.breakerState = auto.NewGaugeVec(
		m.gaugeOpts("circuit_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)"),
		[]string{"name"},
	)

	m.fetchRuns = auto.NewCounterVec(
		m.counterOpts("fetch_runs_total", "Incident fetch runs by outcome"),
		[]string{"outcome"},
	)
	m.alertsFetched = auto.NewCounter(m.counterOpts("alerts_fetched_total", "Alerts returned by the ratings API"))
	m.incidentsImported = auto.NewCounter(m.counterOpts("incidents_imported_total", "Alerts turned into incidents"))
	m.incidentsDuplicate = auto.NewCounter(m.counterOpts("incidents_duplicate_total", "Alerts skipped because they were already imported"))
	m.alertsOutsideWindow = auto.NewCounter(m.counterOpts("alerts_outside_window_total", "Alerts skipped because they predate the fetch window"))
	m.lastFetchUnix = auto.NewGauge(m.gaugeOpts("last_fetch_unix", "Unix time of the last successful fetch"))
	m.checkpointOperations = auto.NewCounterVec(
		m.counterOpts("checkpoint_operations_total", "Checkpoint store operations by backend, operation and outcome"),
		[]string{"backend", "operation", "outcome"},
	)
	m.checkpointLatency = auto.NewHistogramVec(
		m.histogramOpts("checkpoint_latency_milliseconds", "Checkpoint store latency in milliseconds", m.histogramBuckets),
		[]string{"backend", "operation"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("incident_queue_size", "Incidents waiting to be pulled by the host"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("incident_queue_capacity", "Maximum incident queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("incident_queue_enqueued_total", "Incidents enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("incident_queue_dequeued_total", "Incidents pulled by the host"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("incident_queue_enqueue_errors_total", "Incidents dropped because the queue was full or closed"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// RecordCommand records one command execution.
func RecordCommand(integration, command, outcome string, latencyMs float64) {
	global().commandsExecuted.WithLabelValues(integration, command, outcome).Inc()
	global().commandLatency.WithLabelValues(integration, command).Observe(latencyMs)
}

// RecordVendorRequest records an outbound vendor request that produced a response.
func RecordVendorRequest(vendor, method string, statusCode int, latencyMs float64) {
	global().vendorRequests.WithLabelValues(vendor, method, strconv.Itoa(statusCode)).Inc()
	global().vendorRequestDuration.WithLabelValues(vendor, method).Observe(latencyMs)
}

// RecordVendorError records an outbound vendor failure (transport, breaker, decode).
func RecordVendorError(vendor, kind string) {
	global().vendorErrors.WithLabelValues(vendor, kind).Inc()
}

// UpdateBreakerState sets the state gauge of a named circuit breaker.
func UpdateBreakerState(name string, state int) {
	global().breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordFetchRun records the outcome of a fetch-incidents run.
func RecordFetchRun(outcome string) {
	global().fetchRuns.WithLabelValues(outcome).Inc()
}

// RecordAlertsFetched adds to the number of alerts returned by the vendor.
func RecordAlertsFetched(n int) {
	global().alertsFetched.Add(float64(n))
}

// RecordIncidentsImported adds to the number of incidents created.
func RecordIncidentsImported(n int) {
	global().incidentsImported.Add(float64(n))
}

// RecordIncidentDuplicate increments the duplicate alert counter.
func RecordIncidentDuplicate() {
	global().incidentsDuplicate.Inc()
}

// RecordAlertOutsideWindow increments the out-of-window alert counter.
func RecordAlertOutsideWindow() {
	global().alertsOutsideWindow.Inc()
}

// UpdateLastFetch sets the last successful fetch time.
func UpdateLastFetch(t time.Time) {
	global().lastFetchUnix.Set(float64(t.Unix()))
}

// RecordCheckpointOperation records a checkpoint load or save.
func RecordCheckpointOperation(backend, operation, outcome string, latencyMs float64) {
	global().checkpointOperations.WithLabelValues(backend, operation, outcome).Inc()
	global().checkpointLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current incident queue size.
func UpdateQueueSize(size int) {
	global().queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the incident queue capacity.
func UpdateQueueCapacity(capacity int) {
	global().queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	global().queueEnqueued.Inc()
}

// RecordQueueDequeue adds n drained incidents.
func RecordQueueDequeue(n int) {
	global().queueDequeued.Add(float64(n))
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	global().queueEnqueueErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	global().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	global().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	global().errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	global().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	global().systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	global().systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often process gauges should be refreshed.
func RefreshInterval() time.Duration {
	return global().refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}

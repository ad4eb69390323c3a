// Package metrics provides Prometheus metrics for the mlgate governance service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dashboard load outcomes.
const (
	OutcomeRendered = "rendered"
	OutcomeErrored  = "errored"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Gate results for supply-chain scans and dataset validation.
const (
	ResultPassed = "passed"
	ResultFailed = "failed"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Dashboard loader
	dashboardLoads        *prometheus.CounterVec
	dashboardLoadDuration *prometheus.HistogramVec

	// Registry
	registryOperations *prometheus.CounterVec
	registryModels     prometheus.Gauge
	deployments        prometheus.Counter
	rollbacks          prometheus.Counter

	// Drift
	driftScore  prometheus.Gauge
	driftAlerts prometheus.Counter

	// Supply chain and data gates
	supplyChainScans      *prometheus.CounterVec
	dataValidations       *prometheus.CounterVec
	dataValidationQuality prometheus.Gauge

	// Audit pipeline
	auditQueueSize      prometheus.Gauge
	auditQueueCapacity  prometheus.Gauge
	auditEnqueued       prometheus.Counter
	auditDequeued       prometheus.Counter
	auditDropped        *prometheus.CounterVec
	auditPersisted      prometheus.Counter
	auditPersistErrors  prometheus.Counter
	auditWorkerCount    prometheus.Gauge
	auditPersistLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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
		namespace:        "mlgate",
		subsystem:        "governance",
		histogramBuckets: prometheus.DefBuckets,
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

	m.dashboardLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dashboard_loads_total",
		Help:      "Dashboard loads by terminal outcome",
	}, []string{"outcome"})

	m.dashboardLoadDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dashboard_load_duration_milliseconds",
		Help:      "Time from fetch start to the last region write",
		Buckets:   m.histogramBuckets,
	}, []string{"outcome"})

	m.registryOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "registry_operations_total",
		Help:      "Model registry operations by kind and result",
	}, []string{"operation", "result"})

	m.registryModels = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "registry_models",
		Help:      "Number of models in the registry",
	})

	m.deployments = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "deployments_total",
		Help:      "Successful model deployments",
	})

	m.rollbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rollbacks_total",
		Help:      "Successful rollbacks to a previous model",
	})

	m.driftScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "drift_score",
		Help:      "Last computed population stability index",
	})

	m.driftAlerts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "drift_alerts_total",
		Help:      "Samples whose PSI exceeded the drift threshold",
	})

	m.supplyChainScans = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "supply_chain_scans_total",
		Help:      "SBOM policy scans by result",
	}, []string{"result"})

	m.dataValidations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "data_validations_total",
		Help:      "Dataset validations by result",
	}, []string{"result"})

	m.dataValidationQuality = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "data_quality_score",
		Help:      "Quality score of the last validated dataset",
	})

	m.auditQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_queue_size",
		Help:      "Audit events waiting to be persisted",
	})

	m.auditQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_queue_capacity",
		Help:      "Maximum number of queued audit events",
	})

	m.auditEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_enqueued_total",
		Help:      "Audit events accepted by the queue",
	})

	m.auditDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_dequeued_total",
		Help:      "Audit events handed to workers",
	})

	m.auditDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_dropped_total",
		Help:      "Audit events dropped before persistence",
	}, []string{"reason"})

	m.auditPersisted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_persisted_total",
		Help:      "Audit events written to the registry store",
	})

	m.auditPersistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_persist_errors_total",
		Help:      "Audit events that failed to persist",
	})

	m.auditWorkerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_worker_count",
		Help:      "Running audit workers",
	})

	m.auditPersistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_persist_latency_milliseconds",
		Help:      "Audit event persistence latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_type_total",
		Help:      "Errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Dashboard Metrics Functions.

// RecordDashboardLoad counts a finished dashboard load and its duration.
func RecordDashboardLoad(outcome string, durationMs float64) {
	globalManager.dashboardLoads.WithLabelValues(outcome).Inc()
	globalManager.dashboardLoadDuration.WithLabelValues(outcome).Observe(durationMs)
}

// Registry Metrics Functions.

// RecordRegistryOperation counts a registry operation by result ("ok" or an error type).
func RecordRegistryOperation(operation, result string) {
	globalManager.registryOperations.WithLabelValues(operation, result).Inc()
}

// UpdateRegistryModels sets the number of registered models.
func UpdateRegistryModels(count int) {
	globalManager.registryModels.Set(float64(count))
}

// RecordDeployment increments the deployment counter.
func RecordDeployment() {
	globalManager.deployments.Inc()
}

// RecordRollback increments the rollback counter.
func RecordRollback() {
	globalManager.rollbacks.Inc()
}

// Drift Metrics Functions.

// UpdateDriftScore sets the last computed drift score.
func UpdateDriftScore(score float64) {
	globalManager.driftScore.Set(score)
}

// RecordDriftAlert increments the drift alert counter.
func RecordDriftAlert() {
	globalManager.driftAlerts.Inc()
}

// Supply Chain And Data Metrics Functions.

// RecordSupplyChainScan counts one SBOM policy scan.
func RecordSupplyChainScan(result string) {
	globalManager.supplyChainScans.WithLabelValues(result).Inc()
}

// RecordDataValidation counts one dataset validation and keeps its quality score.
func RecordDataValidation(result string, quality float64) {
	globalManager.dataValidations.WithLabelValues(result).Inc()
	globalManager.dataValidationQuality.Set(quality)
}

// Audit Metrics Functions.

// UpdateAuditQueueSize sets the current audit backlog.
func UpdateAuditQueueSize(size int) {
	globalManager.auditQueueSize.Set(float64(size))
}

// UpdateAuditQueueCapacity sets the audit queue capacity.
func UpdateAuditQueueCapacity(capacity int) {
	globalManager.auditQueueCapacity.Set(float64(capacity))
}

// RecordAuditEnqueue increments the enqueue counter.
func RecordAuditEnqueue() {
	globalManager.auditEnqueued.Inc()
}

// RecordAuditDequeue increments the dequeue counter.
func RecordAuditDequeue() {
	globalManager.auditDequeued.Inc()
}

// RecordAuditDropped counts an audit event that never reached a worker.
func RecordAuditDropped(reason string) {
	globalManager.auditDropped.WithLabelValues(reason).Inc()
}

// RecordAuditPersisted counts a persisted audit event and its latency.
func RecordAuditPersisted(latencyMs float64) {
	globalManager.auditPersisted.Inc()
	globalManager.auditPersistLatency.Observe(latencyMs)
}

// RecordAuditPersistError increments the persistence error counter.
func RecordAuditPersistError() {
	globalManager.auditPersistErrors.Inc()
}

// UpdateAuditWorkerCount sets the number of running audit workers.
func UpdateAuditWorkerCount(count int) {
	globalManager.auditWorkerCount.Set(float64(count))
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package metrics provides Prometheus metrics for the path animation runtime.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector exported by the runtime.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Path model
	nodeMutations   *prometheus.CounterVec
	mutationRejects *prometheus.CounterVec
	nodeCount       prometheus.Gauge
	pathResets      prometheus.Counter

	// Sampling
	sampleLatency  prometheus.Histogram
	sampleFailures *prometheus.CounterVec

	// Driver
	driverTicks      prometheus.Counter
	driverTimeRatio  prometheus.Gauge
	driverState      *prometheus.GaugeVec
	nodeCrossings    prometheus.Counter
	scriptRuns       *prometheus.CounterVec
	tickDuration     prometheus.Histogram
	heldPoses        prometheus.Counter
	snapshotsApplied prometheus.Counter

	// Asset store
	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	assetReloads prometheus.Counter

	// Edit queue
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueRejects      prometheus.Counter
	commandLatency    prometheus.Histogram
	commandsProcessed *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton manager behind the package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "animpath",
		subsystem:        "runtime",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
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
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.nodeMutations = m.counterVec("node_mutations_total", "Accepted path mutations by operation", "op")
	m.mutationRejects = m.counterVec("mutation_rejects_total", "Rejected path mutations by operation and reason", "op", "reason")
	m.nodeCount = m.gauge("nodes", "Number of nodes in the active path")
	m.pathResets = m.counter("path_resets_total", "Number of path resets")

	m.sampleLatency = m.histogram("sample_latency_milliseconds", "Latency of pose sampling in milliseconds")
	m.sampleFailures = m.counterVec("sample_failures_total", "Failed sample queries by query", "query")

	m.driverTicks = m.counter("driver_ticks_total", "Number of driver ticks")
	m.driverTimeRatio = m.gauge("driver_time_ratio", "Current playback time ratio")
	m.driverState = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("driver_state"),
		Help: "Playback state (1 for the active state)", ConstLabels: m.customLabels,
	}, []string{"state"})
	m.nodeCrossings = m.counter("node_crossings_total", "Node crossing events fired by the driver")
	m.scriptRuns = m.counterVec("script_runs_total", "Node event script runs by result", "result")
	m.tickDuration = m.histogram("tick_duration_milliseconds", "Driver tick duration in milliseconds")
	m.heldPoses = m.counter("held_poses_total", "Ticks where the driver held the last valid pose")
	m.snapshotsApplied = m.counter("snapshots_published_total", "Path snapshots published to readers")

	m.storeOps = m.counterVec("store_operations_total", "Asset store operations by backend, op and result", "backend", "op", "result")
	m.storeLatency = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("store_latency_milliseconds"),
		Help: "Asset store latency in milliseconds", Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	}, []string{"backend", "op"})
	m.assetReloads = m.counter("asset_reloads_total", "Path asset hot reloads")

	m.queueSize = m.gauge("edit_queue_size", "Pending edit commands")
	m.queueCapacity = m.gauge("edit_queue_capacity", "Edit queue capacity")
	m.queueRejects = m.counter("edit_queue_rejects_total", "Edit commands rejected by backpressure or shutdown")
	m.commandLatency = m.histogram("edit_command_latency_milliseconds", "Edit command apply latency in milliseconds")
	m.commandsProcessed = m.counterVec("edit_commands_total", "Edit commands processed by kind and result", "kind", "result")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration in milliseconds", Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// Enabled reports whether the manager records anything.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordNodeMutation counts an accepted path mutation.
func RecordNodeMutation(op string) {
	globalManager.nodeMutations.WithLabelValues(op).Inc()
}

// RecordMutationReject counts a rejected path mutation.
func RecordMutationReject(op, reason string) {
	globalManager.mutationRejects.WithLabelValues(op, reason).Inc()
}

// UpdateNodeCount sets the node count of the active path.
func UpdateNodeCount(n int) {
	globalManager.nodeCount.Set(float64(n))
}

// RecordPathReset counts a path reset.
func RecordPathReset() {
	globalManager.pathResets.Inc()
}

// RecordSampleLatency observes pose sampling latency.
func RecordSampleLatency(ms float64) {
	globalManager.sampleLatency.Observe(ms)
}

// RecordSampleFailure counts a failed sample query.
func RecordSampleFailure(query string) {
	globalManager.sampleFailures.WithLabelValues(query).Inc()
}

// RecordDriverTick counts a driver tick and its duration.
func RecordDriverTick(ms float64) {
	globalManager.driverTicks.Inc()
	globalManager.tickDuration.Observe(ms)
}

// UpdateDriverTimeRatio publishes the current time ratio.
func UpdateDriverTimeRatio(t float64) {
	globalManager.driverTimeRatio.Set(t)
}

// UpdateDriverState marks state as the active playback state.
func UpdateDriverState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		globalManager.driverState.WithLabelValues(s).Set(v)
	}
}

// RecordNodeCrossing counts a fired node crossing.
func RecordNodeCrossing() {
	globalManager.nodeCrossings.Inc()
}

// RecordScriptRun counts a node event script run.
func RecordScriptRun(result string) {
	globalManager.scriptRuns.WithLabelValues(result).Inc()
}

// RecordHeldPose counts a tick that kept the previous pose.
func RecordHeldPose() {
	globalManager.heldPoses.Inc()
}

// RecordSnapshotPublished counts a published path snapshot.
func RecordSnapshotPublished() {
	globalManager.snapshotsApplied.Inc()
}

// RecordStoreOperation counts an asset store operation and its latency.
func RecordStoreOperation(backend, op, result string, ms float64) {
	globalManager.storeOps.WithLabelValues(backend, op, result).Inc()
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(ms)
}

// RecordAssetReload counts a hot reload.
func RecordAssetReload() {
	globalManager.assetReloads.Inc()
}

// UpdateQueueSize sets the pending edit command count.
func UpdateQueueSize(n int) {
	globalManager.queueSize.Set(float64(n))
}

// UpdateQueueCapacity sets the edit queue capacity.
func UpdateQueueCapacity(n int) {
	globalManager.queueCapacity.Set(float64(n))
}

// RecordQueueReject counts a rejected enqueue.
func RecordQueueReject() {
	globalManager.queueRejects.Inc()
}

// RecordCommand counts a processed edit command and its latency.
func RecordCommand(kind, result string, ms float64) {
	globalManager.commandsProcessed.WithLabelValues(kind, result).Inc()
	globalManager.commandLatency.Observe(ms)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// GetRegistry returns the registry behind the package-level helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the package registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

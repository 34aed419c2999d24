// Package metrics provides Prometheus metrics for the snow globe relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for shake outcomes.
const (
	ShakeAccepted      = "accepted"
	ShakeRateLimited   = "rate_limited"
	ShakeInvalid       = "invalid"
	ShakeUnregistered  = "unregistered"
	MotionForwarded    = "forwarded"
	MotionBelowLimit   = "below_threshold"
	MotionUnregistered = "unregistered"
)

// Manager manages all Prometheus metrics for the relay.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Relay traffic
	connections       *prometheus.GaugeVec
	connectsTotal     prometheus.Counter
	disconnectsTotal  *prometheus.CounterVec
	messagesReceived  *prometheus.CounterVec
	shakes            *prometheus.CounterVec
	motions           *prometheus.CounterVec
	framesSent        *prometheus.CounterVec
	framesDropped     *prometheus.CounterVec
	registrationLate  prometheus.Counter
	protocolErrors    *prometheus.CounterVec
	statsPublished    prometheus.Counter
	dispatchLatency   prometheus.Histogram
	dispatcherPanics  prometheus.Counter
	inboundQueueSize  prometheus.Gauge
	inboundQueueCap   prometheus.Gauge
	inboundQueueDrops prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Performance Metrics
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
		namespace:        "snowglobe",
		subsystem:        "relay",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.connections = auto.NewGaugeVec(
		m.gaugeOpts("connections", "Live connections by role"),
		[]string{"role"},
	)
	m.connectsTotal = auto.NewCounter(m.counterOpts("connects_total", "Websocket connections accepted"))
	m.disconnectsTotal = auto.NewCounterVec(
		m.counterOpts("disconnects_total", "Websocket disconnections by the role held at disconnect"),
		[]string{"role"},
	)
	m.messagesReceived = auto.NewCounterVec(
		m.counterOpts("messages_received_total", "Inbound messages by event type"),
		[]string{"event"},
	)
	m.shakes = auto.NewCounterVec(
		m.counterOpts("shakes_total", "Shake events by outcome"),
		[]string{"outcome"},
	)
	m.motions = auto.NewCounterVec(
		m.counterOpts("motion_samples_total", "Motion samples by outcome"),
		[]string{"outcome"},
	)
	m.framesSent = auto.NewCounterVec(
		m.counterOpts("frames_sent_total", "Outbound frames queued by event type"),
		[]string{"event"},
	)
	m.framesDropped = auto.NewCounterVec(
		m.counterOpts("frames_dropped_total", "Outbound frames dropped because the peer buffer was full or gone"),
		[]string{"event"},
	)
	m.registrationLate = auto.NewCounter(
		m.counterOpts("registration_deadline_missed_total", "Connections still unregistered at the registration deadline"),
	)
	m.protocolErrors = auto.NewCounterVec(
		m.counterOpts("protocol_errors_total", "Error replies sent to clients by kind"),
		[]string{"kind"},
	)
	m.statsPublished = auto.NewCounter(m.counterOpts("stats_published_total", "Periodic stats broadcasts"))
	m.dispatchLatency = auto.NewHistogram(
		m.histogramOpts("dispatch_latency_milliseconds", "Time spent handling one inbound event", m.histogramBuckets),
	)
	m.dispatcherPanics = auto.NewCounter(m.counterOpts("dispatcher_panics_total", "Recovered handler panics"))
	m.inboundQueueSize = auto.NewGauge(m.gaugeOpts("inbound_queue_size", "Current size of the inbound event queue"))
	m.inboundQueueCap = auto.NewGauge(m.gaugeOpts("inbound_queue_capacity", "Inbound event queue capacity"))
	m.inboundQueueDrops = auto.NewCounter(
		m.counterOpts("inbound_queue_drops_total", "Inbound messages dropped because the queue was full"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// UpdateConnections sets the live connection gauge for a role.
func UpdateConnections(role string, count int) {
	globalManager.connections.WithLabelValues(role).Set(float64(count))
}

// RecordConnect increments the accepted connections counter.
func RecordConnect() {
	globalManager.connectsTotal.Inc()
}

// RecordDisconnect increments the disconnect counter for the role held at disconnect.
func RecordDisconnect(role string) {
	globalManager.disconnectsTotal.WithLabelValues(role).Inc()
}

// RecordMessageReceived counts an inbound message.
func RecordMessageReceived(event string) {
	globalManager.messagesReceived.WithLabelValues(event).Inc()
}

// RecordShake counts a shake by outcome.
func RecordShake(outcome string) {
	globalManager.shakes.WithLabelValues(outcome).Inc()
}

// RecordMotion counts a motion sample by outcome.
func RecordMotion(outcome string) {
	globalManager.motions.WithLabelValues(outcome).Inc()
}

// RecordFrameSent counts an outbound frame handed to a peer buffer.
func RecordFrameSent(event string) {
	globalManager.framesSent.WithLabelValues(event).Inc()
}

// RecordFrameDropped counts an outbound frame that could not be buffered.
func RecordFrameDropped(event string) {
	globalManager.framesDropped.WithLabelValues(event).Inc()
}

// RecordRegistrationDeadlineMissed counts a connection still unregistered at the deadline.
func RecordRegistrationDeadlineMissed() {
	globalManager.registrationLate.Inc()
}

// RecordProtocolError counts an error reply.
func RecordProtocolError(kind string) {
	globalManager.protocolErrors.WithLabelValues(kind).Inc()
}

// RecordStatsPublished counts a periodic stats broadcast.
func RecordStatsPublished() {
	globalManager.statsPublished.Inc()
}

// RecordDispatchLatency records handler latency in milliseconds.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// RecordDispatcherPanic counts a recovered handler panic.
func RecordDispatcherPanic() {
	globalManager.dispatcherPanics.Inc()
}

// UpdateQueueSize sets the current inbound queue size.
func UpdateQueueSize(size int) {
	globalManager.inboundQueueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the inbound queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.inboundQueueCap.Set(float64(capacity))
}

// RecordQueueDrop counts an inbound message dropped on backpressure.
func RecordQueueDrop() {
	globalManager.inboundQueueDrops.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
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

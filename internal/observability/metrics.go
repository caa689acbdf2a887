// Package observability owns the process-wide Prometheus metrics and the
// localhost debug server (pprof + /metrics).
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (label values come from closed enums only)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent in one fixed simulation step",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.0167},
	})

	ticksPerFrame = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_ticks_per_frame",
		Help:    "Logical ticks advanced per delivered frame",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	frameRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_measured_fps",
		Help: "Delivered frames per second measured by the loop",
	})

	entityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_entities",
		Help: "Entities in play by kind",
	}, []string{"kind"}) // Bounded: enemy, projectile, orb, particle

	poolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_pool_slots",
		Help: "Pool arena size by pool and state",
	}, []string{"pool", "state"}) // state: total, active

	poolCompacted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_pool_compacted_total",
		Help: "Idle slots trimmed by idle-time compaction",
	}, []string{"pool"})

	qualityLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_quality_level",
		Help: "Current adaptive quality level (1..5)",
	})

	qualityChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_quality_changes_total",
		Help: "Quality level adjustments",
	}, []string{"direction"}) // Bounded: up, down, override

	commandsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_commands_dropped_total",
		Help: "Collaborator commands rejected because the inbox was full",
	})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// Bridge metrics
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_duration_seconds",
		Help:    "Time spent rasterizing a debug frame",
		Buckets: []float64{0.005, 0.01, 0.02, 0.033, 0.05, 0.1},
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// RecordTick records the duration of one simulation step.
func RecordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// RecordFrame records how many ticks a frame advanced.
func RecordFrame(ticks int) {
	ticksPerFrame.Observe(float64(ticks))
}

// SetFPS updates the measured frame rate gauge.
func SetFPS(fps float64) {
	frameRate.Set(fps)
}

// SetEntityCount updates the in-play gauge for one entity kind.
func SetEntityCount(kind string, n int) {
	entityCount.WithLabelValues(kind).Set(float64(n))
}

// SetPoolStats updates the arena gauges for one pool.
func SetPoolStats(name string, total, active int) {
	poolSize.WithLabelValues(name, "total").Set(float64(total))
	poolSize.WithLabelValues(name, "active").Set(float64(active))
}

// AddPoolCompacted counts slots trimmed from a pool.
func AddPoolCompacted(name string, n int) {
	if n > 0 {
		poolCompacted.WithLabelValues(name).Add(float64(n))
	}
}

// SetQuality records the current quality level.
// direction must be one of: "up", "down", "override"
func SetQuality(level int, direction string) {
	qualityLevel.Set(float64(level))
	if direction != "" {
		qualityChanges.WithLabelValues(direction).Inc()
	}
}

// IncCommandsDropped counts a rejected collaborator command.
func IncCommandsDropped() {
	commandsDropped.Inc()
}

// UpdateEventLogStats mirrors the event log counters.
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// RecordRender records debug frame rasterization time.
func RecordRender(d time.Duration) {
	renderDuration.Observe(d.Seconds())
}

// UpdateWSConnections updates the WebSocket connection count.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments the WebSocket message counter.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

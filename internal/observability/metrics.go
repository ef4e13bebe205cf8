package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	settingsMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fwsettings",
			Name:      "messages_total",
			Help:      "Settings messages handled, by message type and result.",
		},
		[]string{"type", "result"},
	)
	settingsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fwsettings",
			Name:      "dropped_total",
			Help:      "Inbound settings messages dropped without reply.",
		},
		[]string{"type", "reason"},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fwsettings",
			Name:      "handshakes_total",
			Help:      "Setting registration handshakes by outcome.",
		},
		[]string{"outcome"},
	)
	handshakeAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fwsettings",
			Name:      "handshake_attempts",
			Help:      "REGISTER sends per registration handshake.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fwsettings",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fwsettings",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(settingsMessages, settingsDropped, handshakes, handshakeAttempts, httpRequests, httpDuration)
	})
}

func RecordMessage(msgType, result string) {
	RegisterMetrics()
	settingsMessages.WithLabelValues(msgType, result).Inc()
}

func RecordDrop(msgType, reason string) {
	RegisterMetrics()
	settingsMessages.WithLabelValues(msgType, "dropped").Inc()
	settingsDropped.WithLabelValues(msgType, reason).Inc()
}

func RecordHandshake(outcome string, attempts int) {
	RegisterMetrics()
	handshakes.WithLabelValues(outcome).Inc()
	handshakeAttempts.Observe(float64(attempts))
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

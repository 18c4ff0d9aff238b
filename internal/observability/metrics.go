package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marsipan"

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "frames_total",
			Help:      "Protocol frames by direction and packet name.",
		},
		[]string{"direction", "name"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "decode_errors_total",
			Help:      "Inbound frames that failed to decode.",
		},
		[]string{"reason"},
	)
	reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Connection attempts after the first.",
		},
	)
	sessionUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "up",
			Help:      "1 while logged in to the chat server.",
		},
	)
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "events_total",
			Help:      "Classified events dispatched to handlers, by kind.",
		},
		[]string{"kind"},
	)
	handlers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "handlers",
			Help:      "Registered handlers by category.",
		},
		[]string{"category"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "queue_depth",
			Help:      "Outbound messages waiting for their delivery instant.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesTotal, decodeErrors, reconnects, sessionUp,
			eventsTotal, handlers, queueDepth,
			httpRequests, httpDuration,
		)
	})
}

// RecordFrame counts one frame; direction is "in" or "out".
func RecordFrame(direction, name string) {
	RegisterMetrics()
	framesTotal.WithLabelValues(direction, name).Inc()
}

func RecordDecodeError(reason string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(reason).Inc()
}

func RecordReconnect() {
	RegisterMetrics()
	reconnects.Inc()
}

func SetSessionUp(up bool) {
	RegisterMetrics()
	if up {
		sessionUp.Set(1)
		return
	}
	sessionUp.Set(0)
}

func RecordEvent(kind string) {
	RegisterMetrics()
	eventsTotal.WithLabelValues(kind).Inc()
}

func SetHandlers(message, join int) {
	RegisterMetrics()
	handlers.WithLabelValues("message").Set(float64(message))
	handlers.WithLabelValues("join").Set(float64(join))
}

func SetQueueDepth(n int) {
	RegisterMetrics()
	queueDepth.Set(float64(n))
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

// Package metrics holds the Prometheus collectors for the notification
// service and the HTTP instrumentation middleware.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "notification_service",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notification_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_service",
			Subsystem: "fanout",
			Name:      "broadcasts_total",
			Help:      "Total number of completed fan-out invocations.",
		},
		[]string{"kind"},
	)

	recipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notification_service",
			Subsystem: "fanout",
			Name:      "recipients_total",
			Help:      "Recipients per fan-out by outcome: sent, failed, or skipped by opt-out.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		broadcastsTotal,
		recipientsTotal,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ══════════════════════════════════════════════════════════════════════════════
// FAN-OUT RECORDER
// ══════════════════════════════════════════════════════════════════════════════

// FanoutRecorder implements fanout.Recorder on the package collectors.
type FanoutRecorder struct{}

// RecordBroadcast records the outcome counts of one completed fan-out.
func (FanoutRecorder) RecordBroadcast(kind broadcast.Kind, sent, failed, skipped int) {
	k := kind.String()
	broadcastsTotal.WithLabelValues(k).Inc()
	recipientsTotal.WithLabelValues(k, "sent").Add(float64(sent))
	recipientsTotal.WithLabelValues(k, "failed").Add(float64(failed))
	recipientsTotal.WithLabelValues(k, "skipped").Add(float64(skipped))
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP INSTRUMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses IDs out of request paths so label cardinality
// stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")

	// /api/v1/events/{id}/broadcasts/... and /api/v1/users/{id}/...
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "v1" {
		resource := parts[2]
		switch {
		case len(parts) == 3:
			return "/api/v1/" + resource
		case len(parts) == 4:
			return "/api/v1/" + resource + "/:id"
		default:
			return "/api/v1/" + resource + "/:id/" + strings.Join(parts[4:], "/")
		}
	}

	return "/" + parts[0]
}

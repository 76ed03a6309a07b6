// Package metrics exposes the Prometheus collectors for the net-reduction
// engine: HTTP traffic, entry ingestion, series recompute, and summary
// refresh.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "netreduction",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netreduction",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netreduction",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	entriesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netreduction",
			Subsystem: "entries",
			Name:      "ingested_total",
			Help:      "Total number of net-reduction entries ingested, by methodology and channel.",
		},
		[]string{"methodology", "input_type", "status"},
	)

	recomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netreduction",
			Subsystem: "recompute",
			Name:      "series_duration_seconds",
			Help:      "Duration of a full series recompute (cumulative/high/low).",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"methodology"},
	)

	summaryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netreduction",
			Subsystem: "summary",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a summary rollup refresh, by period cadence.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"period"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netreduction",
			Subsystem: "eventbus",
			Name:      "published_total",
			Help:      "Total number of typed events published, by event type.",
		},
		[]string{"event_type"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		entriesIngested,
		recomputeDuration,
		summaryDuration,
		eventsPublished,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

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

// RecordEntryIngested records an ingestion outcome for one entry.
func RecordEntryIngested(methodology, inputType, status string) {
	entriesIngested.WithLabelValues(methodology, inputType, status).Inc()
}

// RecordRecompute records the duration of a series recompute.
func RecordRecompute(methodology string, d time.Duration) {
	recomputeDuration.WithLabelValues(methodology).Observe(d.Seconds())
}

// RecordSummaryRefresh records the duration of a summary refresh for one period.
func RecordSummaryRefresh(period string, d time.Duration) {
	summaryDuration.WithLabelValues(period).Observe(d.Seconds())
}

// RecordEventPublished records a typed event bus publish.
func RecordEventPublished(eventType string) {
	eventsPublished.WithLabelValues(eventType).Inc()
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

// canonicalPath collapses path parameters so the requests_total cardinality
// stays bounded: /net-reduction/c1/p1/M1/manual -> /net-reduction/:client/:project/:methodology/manual
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	parts := strings.Split(trimmed, "/")
	if parts[0] != "net-reduction" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/net-reduction"
	}
	if len(parts) >= 2 && parts[1] == "summary" {
		out := "/net-reduction/summary/:client"
		if len(parts) >= 4 {
			out += "/:project"
		}
		return out
	}
	switch len(parts) {
	case 2:
		return "/net-reduction/:client"
	case 3:
		return "/net-reduction/:client/:project"
	case 4:
		return "/net-reduction/:client/:project/:methodology"
	default:
		return "/net-reduction/:client/:project/:methodology/" + strings.Join(parts[4:], "/")
	}
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Attendance mark outcomes.
const (
	OutcomeCheckedIn  = "checked_in"
	OutcomeCheckedOut = "checked_out"
	OutcomeRejected   = "rejected"
)

// Metrics holds the service collectors on a private registry. All methods
// are safe on a nil receiver.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	marks           *prometheus.CounterVec
	registered      prometheus.Counter
	swept           prometheus.Counter
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route, method and error code.",
		}, []string{"path", "method", "code"}),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_marks_total",
			Help: "Attendance scans by outcome.",
		}, []string{"outcome"}),
		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_tokens_registered_total",
			Help: "Attendance tokens registered.",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_tokens_swept_total",
			Help: "Expired attendance tokens removed by the sweeper.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		m.requests, m.requestDuration, m.errors, m.marks, m.registered, m.swept,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordAttendanceMark counts a scan outcome.
func (m *Metrics) RecordAttendanceMark(outcome string) {
	if m == nil {
		return
	}
	m.marks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordTokenRegistered() {
	if m == nil {
		return
	}
	m.registered.Inc()
}

// RecordSweep adds the number of tokens removed by one sweep.
func (m *Metrics) RecordSweep(removed int64) {
	if m == nil || removed <= 0 {
		return
	}
	m.swept.Add(float64(removed))
}

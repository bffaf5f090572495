package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/wedding-platform/services"
)

const namespace = "wedding"

// Metrics owns a private registry so several instances can coexist in tests
type Metrics struct {
	registry *prometheus.Registry

	decisions       *prometheus.CounterVec
	checkErrors     *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access control decisions by check and outcome",
		}, []string{"check", "outcome"}),
		checkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_check_errors_total",
			Help:      "Access control checks that failed with an error, by code",
		}, []string{"check", "code"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-caller rate limiter",
		}),
	}

	m.registry.MustRegister(
		m.decisions,
		m.checkErrors,
		m.requests,
		m.requestDuration,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordDecision counts an allow or deny outcome
func (m *Metrics) RecordDecision(check string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.decisions.WithLabelValues(check, outcome).Inc()
}

// RecordError counts a check that ended in an error
func (m *Metrics) RecordError(check string, code services.ErrorCode) {
	m.checkErrors.WithLabelValues(check, string(code)).Inc()
}

// RecordRateLimited counts a 429 response
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

// RecordRequest counts one served request
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RecordRequest(r.Method, route, status, time.Since(start))
	})
}

// ObserveAuditQueue exports the audit writer backlog and drop count
func (m *Metrics) ObserveAuditQueue(pending func() int, dropped func() uint64) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_pending_events",
			Help:      "Audit events waiting to be written",
		}, func() float64 { return float64(pending()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_events_total",
			Help:      "Audit events dropped because the buffer was full",
		}, func() float64 { return float64(dropped()) }),
	)
}

// ObserveDB exports connection pool gauges
func (m *Metrics) ObserveDB(stats func() sql.DBStats) {
	gauge := func(name, help string, value func(sql.DBStats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(stats())) })
	}
	m.registry.MustRegister(
		gauge("connections_open", "Open database connections", func(s sql.DBStats) int { return s.OpenConnections }),
		gauge("connections_in_use", "Database connections in use", func(s sql.DBStats) int { return s.InUse }),
		gauge("connections_idle", "Idle database connections", func(s sql.DBStats) int { return s.Idle }),
		gauge("connections_max", "Maximum open database connections", func(s sql.DBStats) int { return s.MaxOpenConnections }),
	)
}

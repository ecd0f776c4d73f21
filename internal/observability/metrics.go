// Package observability exposes the Prometheus registry served on /metrics.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unknownRoute = "unknown"

// Metrics owns a private registry with HTTP, export and Go runtime
// collectors. A nil *Metrics is a no-op.
type Metrics struct {
	handler http.Handler

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	exports         *prometheus.CounterVec
	exportLatency   *prometheus.HistogramVec
	exportWorkbooks prometheus.Histogram
}

// NewMetrics builds the registry and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labexport_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labexport_http_request_duration_seconds",
			Help:    "HTTP request duration per route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labexport_exports_total",
			Help: "Export runs by outcome (archive, summary, empty, error).",
		}, []string{"outcome"}),
		exportLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labexport_export_duration_seconds",
			Help:    "Duration of export runs by outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		exportWorkbooks: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "labexport_export_workbooks",
			Help:    "Workbooks packed per archive.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

// Handler serves the registry, or 503 when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware counts requests per chi route pattern. It must run inside the
// router so the pattern is resolved by the time the handler returns.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routeOf(r)
		m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.httpLatency.WithLabelValues(route).Observe(time.Since(began).Seconds())
	})
}

// ObserveExport records one export run.
func (m *Metrics) ObserveExport(outcome string, duration time.Duration, workbooks int) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome).Inc()
	m.exportLatency.WithLabelValues(outcome).Observe(duration.Seconds())
	if workbooks > 0 {
		m.exportWorkbooks.Observe(float64(workbooks))
	}
}

func routeOf(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unknownRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unknownRoute
}

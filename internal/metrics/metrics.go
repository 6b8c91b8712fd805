// Package metrics exposes Prometheus metrics for the HTTP API and checks.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "depscan"

// Metrics is the collection of depscan metrics.
// Each instance owns its registry so servers and tests do not share state.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ChecksTotal   *prometheus.CounterVec
	CheckDuration *prometheus.HistogramVec

	ScansTotal         *prometheus.CounterVec
	ScanVulnerability  prometheus.Histogram
	ScannedPackages    prometheus.Histogram
	LookupCacheResults *prometheus.CounterVec
}

// New creates and registers all metrics, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	m.ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of check runs by outcome",
		},
		[]string{"check", "result"},
	)
	m.CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of a single check run in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"check"},
	)
	m.ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of scans by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	m.ScanVulnerability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_vulnerability_percentage",
			Help:      "Total vulnerability percentage of completed scans",
			Buckets:   []float64{0, 10, 25, 50, 75, 100},
		},
	)
	m.ScannedPackages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_packages",
			Help:      "Number of dependencies checked per scan",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	m.LookupCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pypi_cache_lookups_total",
			Help:      "PyPI lookup cache hits and misses",
		},
		[]string{"result"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ChecksTotal,
		m.CheckDuration,
		m.ScansTotal,
		m.ScanVulnerability,
		m.ScannedPackages,
		m.LookupCacheResults,
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCheck records one check run. It satisfies check.Observer.
func (m *Metrics) ObserveCheck(name string, flagged bool, duration time.Duration) {
	result := "clean"
	if flagged {
		result = "flagged"
	}
	m.ChecksTotal.WithLabelValues(name, result).Inc()
	m.CheckDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ObserveScan records a finished scan. Failed scans only count towards
// ScansTotal.
func (m *Metrics) ObserveScan(source string, failed bool, packages int, total float64) {
	if failed {
		m.ScansTotal.WithLabelValues(source, "failed").Inc()
		return
	}
	m.ScansTotal.WithLabelValues(source, "ok").Inc()
	m.ScannedPackages.Observe(float64(packages))
	m.ScanVulnerability.Observe(total)
}

// ObserveCacheLookup records a PyPI lookup cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.LookupCacheResults.WithLabelValues(result).Inc()
}

// RequestTrackingMiddleware counts requests and measures their duration.
func (m *Metrics) RequestTrackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := routeLabel(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routeLabel keeps the path label bounded: the matched ServeMux pattern
// when there is one, otherwise "unmatched".
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

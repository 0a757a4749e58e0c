// Package metrics defines the Prometheus collectors of the book indexer and
// exposes an HTTP handler for scraping.
//
// All recording methods are safe to call on a nil *Metrics, which lets tests and
// the CLI run without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	BuildsTotal         *prometheus.CounterVec
	BuildDuration       *prometheus.HistogramVec
	IndexTerms          *prometheus.GaugeVec
	IndexDocuments      *prometheus.GaugeVec
	SearchQueriesTotal  *prometheus.CounterVec
	SearchTermsTotal    *prometheus.CounterVec
	SearchCacheTotal    *prometheus.CounterVec
	JobsTotal           *prometheus.CounterVec
}

// New creates all collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Total index builds by index and status (success, error).",
			},
			[]string{"index", "status"},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Time spent tokenizing and indexing a document collection.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"index"},
		),
		IndexTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of distinct terms in the current index.",
			},
			[]string{"index"},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Number of documents in the current collection.",
			},
			[]string{"index"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search calls by index.",
			},
			[]string{"index"},
		),
		SearchTermsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_terms_total",
				Help: "Total looked-up terms by index and outcome (found, not_found).",
			},
			[]string{"index", "outcome"},
		),
		SearchCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_cache_lookups_total",
				Help: "Search result cache lookups by index and result (hit, miss).",
			},
			[]string{"index", "result"},
		),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_total",
				Help: "Background jobs by type and final status.",
			},
			[]string{"type", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BuildsTotal,
		m.BuildDuration,
		m.IndexTerms,
		m.IndexDocuments,
		m.SearchQueriesTotal,
		m.SearchTermsTotal,
		m.SearchCacheTotal,
		m.JobsTotal,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveBuild records a finished build. On success terms and documents are the
// sizes of the newly published index.
func (m *Metrics) ObserveBuild(index string, err error, elapsed time.Duration, terms, documents int) {
	if m == nil {
		return
	}
	if err != nil {
		m.BuildsTotal.WithLabelValues(index, "error").Inc()
		return
	}
	m.BuildsTotal.WithLabelValues(index, "success").Inc()
	m.BuildDuration.WithLabelValues(index).Observe(elapsed.Seconds())
	m.IndexTerms.WithLabelValues(index).Set(float64(terms))
	m.IndexDocuments.WithLabelValues(index).Set(float64(documents))
}

// ObserveSearch records one search call.
func (m *Metrics) ObserveSearch(index string, found, notFound int) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(index).Inc()
	m.SearchTermsTotal.WithLabelValues(index, "found").Add(float64(found))
	m.SearchTermsTotal.WithLabelValues(index, "not_found").Add(float64(notFound))
}

// ObserveCache records a result cache lookup.
func (m *Metrics) ObserveCache(index string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SearchCacheTotal.WithLabelValues(index, result).Inc()
}

// ObserveJob records a job reaching a final status.
func (m *Metrics) ObserveJob(jobType, status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(jobType, status).Inc()
}

// ForgetIndex drops the per-index gauges of a deleted index.
func (m *Metrics) ForgetIndex(index string) {
	if m == nil {
		return
	}
	m.IndexTerms.DeleteLabelValues(index)
	m.IndexDocuments.DeleteLabelValues(index)
}

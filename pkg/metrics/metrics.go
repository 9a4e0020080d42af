// Package metrics defines the Prometheus metric collectors used by the
// recommender and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	RecommendQueriesTotal *prometheus.CounterVec
	RecommendLatency      *prometheus.HistogramVec
	RecommendResultsCount prometheus.Histogram
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	ModelBuildsTotal      *prometheus.CounterVec
	ModelBuildDuration    prometheus.Histogram
	ModelCorpusSize       prometheus.Gauge
	ModelVocabularySize   prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. A nil reg means
// the global default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RecommendQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommend_queries_total",
				Help: "Total recommendation queries by outcome (found, unknown, error).",
			},
			[]string{"outcome"},
		),
		RecommendLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recommend_latency_seconds",
				Help:    "Recommendation query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		RecommendResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recommend_results_count",
				Help:    "Number of recommendations returned per query.",
				Buckets: []float64{0, 1, 5, 10, 15, 20},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recommend_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recommend_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		ModelBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_builds_total",
				Help: "Model build requests by status (built, memoized, failed).",
			},
			[]string{"status"},
		),
		ModelBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "model_build_duration_seconds",
				Help:    "Wall time of a full vectorize and similarity build.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		ModelCorpusSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_corpus_size",
				Help: "Number of titles in the live snapshot.",
			},
		),
		ModelVocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_vocabulary_size",
				Help: "Number of terms in the live snapshot's vocabulary.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RecommendQueriesTotal,
		m.RecommendLatency,
		m.RecommendResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ModelBuildsTotal,
		m.ModelBuildDuration,
		m.ModelCorpusSize,
		m.ModelVocabularySize,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

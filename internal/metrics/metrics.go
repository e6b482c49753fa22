package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard service.
type Metrics struct {
	// HTTP metrics
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec

	// Aggregation metrics
	RecordsAggregated     *prometheus.CounterVec
	ExchangeRateFallbacks prometheus.Counter
	StoreErrors           *prometheus.CounterVec

	// Cache metrics
	CacheResults       *prometheus.CounterVec
	CacheRevalidations *prometheus.CounterVec

	// System metrics
	DBConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all Prometheus metrics on reg. A nil reg
// uses the default registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	f := promauto.With(registerer)

	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route"},
		),

		RecordsAggregated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_aggregated_total",
				Help:      "Metric records folded into dashboard responses",
			},
			[]string{"endpoint", "tab"},
		),
		ExchangeRateFallbacks: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exchange_rate_fallbacks_total",
				Help:      "Requests served with the fallback exchange rate",
			},
		),
		StoreErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Record store failures",
			},
			[]string{"operation"},
		),

		CacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_results_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"}, // fresh, stale, miss, error
		),
		CacheRevalidations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_revalidations_total",
				Help:      "Background cache refreshes by outcome",
			},
			[]string{"outcome"},
		),

		DBConnections: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"route"},
		),

		gatherer: gatherer,
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, latency time.Duration) {
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// RecordRecordsAggregated counts records folded into one response.
func (m *Metrics) RecordRecordsAggregated(endpoint, tab string, n int) {
	m.RecordsAggregated.WithLabelValues(endpoint, tab).Add(float64(n))
}

// RecordExchangeRateFallback records a response computed with the fallback rate.
func (m *Metrics) RecordExchangeRateFallback() {
	m.ExchangeRateFallbacks.Inc()
}

// RecordStoreError records a failed store operation.
func (m *Metrics) RecordStoreError(operation string) {
	m.StoreErrors.WithLabelValues(operation).Inc()
}

// RecordCacheResult records a cache lookup.
func (m *Metrics) RecordCacheResult(result string) {
	m.CacheResults.WithLabelValues(result).Inc()
}

// RecordCacheRevalidation records the outcome of a background refresh.
func (m *Metrics) RecordCacheRevalidation(outcome string) {
	m.CacheRevalidations.WithLabelValues(outcome).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(route string) {
	m.RateLimitHits.WithLabelValues(route).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	staleServes  *prometheus.CounterVec
	fetchErrors  *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	lastPrice    *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_cache_hits_total",
				Help: "Analysis cache hits by endpoint",
			},
			[]string{"endpoint"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_cache_misses_total",
				Help: "Analysis cache misses by endpoint",
			},
			[]string{"endpoint"},
		),
		staleServes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_stale_serves_total",
				Help: "Responses served from a stale cache entry after a failed refresh",
			},
			[]string{"endpoint"},
		),
		fetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_fetch_errors_total",
				Help: "Upstream fetch failures by provider",
			},
			[]string{"provider"},
		),
		fetchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendpulse_fetch_duration_seconds",
				Help:    "Upstream fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendpulse_last_price",
				Help: "Last streamed trade price per symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordCacheHit records a live cache hit for an endpoint.
func (r *Recorder) RecordCacheHit(endpoint string) {
	r.cacheHits.WithLabelValues(endpoint).Inc()
}

// RecordCacheMiss records a cache miss for an endpoint.
func (r *Recorder) RecordCacheMiss(endpoint string) {
	r.cacheMisses.WithLabelValues(endpoint).Inc()
}

// RecordStaleServe records a stale fallback serve for an endpoint.
func (r *Recorder) RecordStaleServe(endpoint string) {
	r.staleServes.WithLabelValues(endpoint).Inc()
}

// RecordFetchError records an upstream fetch failure.
func (r *Recorder) RecordFetchError(provider string) {
	r.fetchErrors.WithLabelValues(provider).Inc()
}

// RecordFetchLatency records upstream fetch latency in seconds.
func (r *Recorder) RecordFetchLatency(provider string, seconds float64) {
	r.fetchLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordLastPrice records the last streamed price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// Package metrics holds the Prometheus collectors for the weather lookup path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the weather lookup path.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	ProviderFailures prometheus.Counter
	ProviderDuration prometheus.Histogram
	HistoryFailures  prometheus.Counter
	CacheWriteErrors prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_cache_lookups_total",
				Help: "Weather cache lookups by result (hit, miss, error).",
			},
			[]string{"result"},
		),
		ProviderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_provider_failures_total",
			Help: "Failed weather provider fetches.",
		}),
		ProviderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_provider_fetch_duration_seconds",
			Help:    "Duration of weather provider fetches.",
			Buckets: prometheus.DefBuckets,
		}),
		HistoryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_history_write_failures_total",
			Help: "Failed weather query history writes.",
		}),
		CacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_cache_write_failures_total",
			Help: "Failed cache write-backs (non-fatal).",
		}),
	}
	reg.MustRegister(m.CacheLookups, m.ProviderFailures, m.ProviderDuration, m.HistoryFailures, m.CacheWriteErrors)
	return m
}

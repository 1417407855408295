// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regsearch_searches_total",
			Help: "Total number of category searches executed",
		},
		[]string{"category", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "regsearch_search_duration_seconds",
			Help:    "Duration of category searches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"category"},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regsearch_retries_total",
			Help: "Total number of rate-limit retries performed",
		},
		[]string{"operation"},
	)

	StructuringFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "regsearch_structuring_fallbacks_total",
			Help: "Times the deterministic extraction fallback replaced the completion service",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regsearch_cache_total",
			Help: "Search-result cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

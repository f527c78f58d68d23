package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts entries served from Redis, by freshness state.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skilly_cache_hits_total",
			Help: "Total number of Skilly cache hits",
		},
		[]string{"state"}, // "fresh", "revalidated"
	)

	// CacheMisses counts lookups that found nothing usable.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skilly_cache_misses_total",
			Help: "Total number of Skilly cache misses",
		},
	)

	// StoredBytes tracks the bytes written by this process.
	StoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skilly_cache_stored_bytes",
			Help: "Bytes written to the Skilly response cache",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skilly_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)

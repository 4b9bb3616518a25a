package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (redis, bolt)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"}, // "redis", "bolt"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelf_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheSize tracks bytes written by backend
	CacheSize = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_cache_written_bytes_total",
			Help: "Total bytes written to cache",
		},
		[]string{"backend"}, // "redis", "bolt"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)

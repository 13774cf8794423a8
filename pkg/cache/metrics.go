package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubfetch_cache_hits_total",
			Help: "Total number of page cache hits",
		},
	)

	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubfetch_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	notModifiedHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubfetch_cache_304_resolutions_total",
			Help: "Total number of 304 pages resolved from the cache",
		},
	)

	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubfetch_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)

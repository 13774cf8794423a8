// Package metrics provides the centralized Prometheus registry for
// hubfetch. All metrics are defined in their respective packages
// (client, pagination, ratelimit, cache) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by hubfetch.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - hubfetch_requests_total{status} (Counter): Page fetch attempts by status
//   - hubfetch_request_duration_seconds (Histogram): Logical page fetch duration including retries
//   - hubfetch_retries_total{kind} (Counter): Retry waits by kind (retry, forbidden)
//   - hubfetch_retry_exhausted_total{class} (Counter): Pages that exhausted the attempt budget
//
// Rate Limit Metrics (pkg/ratelimit):
//   - hubfetch_rate_limit_remaining (Gauge): Remaining quota from the latest response
//   - hubfetch_rate_limit_throttles_total (Counter): Proactive throttle sleeps
//   - hubfetch_rate_limit_throttle_seconds (Histogram): Proactive sleep durations
//
// Pagination Metrics (pkg/pagination):
//   - hubfetch_pages_fetched_total (Counter): Pages fetched across all runs
//   - hubfetch_pagination_stops_total{reason} (Counter): Run terminations by reason
//     (complete, status, error, malformed_link)
//
// Cache Metrics (pkg/cache):
//   - hubfetch_cache_hits_total (Counter): Page cache hits
//   - hubfetch_cache_misses_total (Counter): Page cache misses
//   - hubfetch_cache_304_resolutions_total (Counter): 304 pages resolved from cache
//   - hubfetch_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Retry Rate
//   rate(hubfetch_retries_total[5m]) / rate(hubfetch_requests_total[5m])
//
//   # Throttle Pressure
//   rate(hubfetch_rate_limit_throttles_total[5m])
//
//   # Cache Hit Rate
//   sum(rate(hubfetch_cache_hits_total[5m])) /
//   (sum(rate(hubfetch_cache_hits_total[5m])) + sum(rate(hubfetch_cache_misses_total[5m])))
//
//   # P95 Page Fetch Latency
//   histogram_quantile(0.95, rate(hubfetch_request_duration_seconds_bucket[5m]))

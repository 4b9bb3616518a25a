// Package metrics provides the centralized Prometheus metrics registry for
// shelfsync. All metrics are defined in their respective packages (client,
// cache, netmon, loader) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by shelfsync.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - shelf_cache_hits_total{backend} (Counter): Cache hits by backend (redis, bolt)
//   - shelf_cache_misses_total (Counter): Cache misses
//   - shelf_cache_written_bytes_total{backend} (Counter): Bytes written to cache by backend
//   - shelf_cache_errors_total{operation} (Counter): Cache operation errors
//
// Network Monitor Metrics (pkg/netmon):
//   - shelf_network_online (Gauge): 1 when the backend is reachable, 0 otherwise
//   - shelf_network_transitions_total{direction} (Counter): Connectivity transitions (up, down)
//
// Request Metrics (pkg/client):
//   - shelf_api_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - shelf_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - shelf_api_errors_total{class} (Counter): Errors by class (client, server, network)
//
// Retry Metrics (pkg/client):
//   - shelf_api_retries_total (Counter): Retry attempts
//   - shelf_api_retry_backoff_seconds (Histogram): Backoff duration per retry
//   - shelf_api_retry_exhausted_total (Counter): Requests that exhausted max retries
//
// Loader Metrics (pkg/loader):
//   - shelf_loader_stale_renders_total (Counter): Renders served from cache before revalidation
//   - shelf_loader_suppressed_errors_total (Counter): Fetch failures hidden behind a stale render
//   - shelf_loader_refreshes_total{trigger} (Counter): Refreshes by trigger (load, manual, reconnect)
//   - shelf_loader_dropped_completions_total (Counter): Completions discarded for stale generations
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(shelf_cache_hits_total[5m])) /
//   (sum(rate(shelf_cache_hits_total[5m])) + sum(rate(shelf_cache_misses_total[5m])))
//
//   # Backend Availability
//   shelf_network_online == 0
//
//   # Request Error Rate
//   rate(shelf_api_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(shelf_api_request_duration_seconds_bucket[5m]))
//
//   # Stale Render Rate
//   rate(shelf_loader_stale_renders_total[5m]) / rate(shelf_loader_refreshes_total[5m])

// Package metrics provides the centralized Prometheus registry reference
// for the rest-pager library. All metrics are defined in their respective
// packages (fetch, cache, paginate) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the library.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/fetch):
//   - pager_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - pager_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - pager_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/fetch):
//   - pager_retries_total{error_class} (Counter): Retry attempts by error class
//   - pager_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - pager_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - pager_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - pager_cache_misses_total (Counter): Cache misses
//   - pager_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - pager_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pagination Metrics (pkg/paginate):
//   - pager_pages_fetched_total (Counter): Pages fetched across all runs
//   - pager_pagination_runs_total{stop} (Counter): Runs by stop reason
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(pager_cache_hits_total[5m])) /
//   (sum(rate(pager_cache_hits_total[5m])) + sum(rate(pager_cache_misses_total[5m])))
//
//   # Failed Run Rate
//   rate(pager_pagination_runs_total{stop="failed"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pager_request_duration_seconds_bucket[5m]))
//
//   # Pages per Run
//   rate(pager_pages_fetched_total[5m]) / rate(pager_pagination_runs_total[5m])

// Package metrics provides the Prometheus registry and HTTP handler for the
// post pager. All metrics are defined in their respective packages (client,
// ratelimit, aggregate, controller) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the post pager.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the metrics of the default gatherer in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - postpager_ratelimit_remaining (Gauge): Requests remaining in the current window
//   - postpager_ratelimit_blocks_total (Counter): Requests blocked below the critical threshold
//   - postpager_ratelimit_throttles_total (Counter): Requests delayed below the warning threshold
//
// Request Metrics (pkg/client):
//   - postpager_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - postpager_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - postpager_errors_total{class} (Counter): Errors by class (transport, client, server, rate_limit, decode)
//
// Retry Metrics (pkg/client):
//   - postpager_retries_total{error_class} (Counter): Retry attempts by error class
//   - postpager_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - postpager_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Join Metrics (pkg/aggregate):
//   - postpager_detail_failures_total (Counter): Failed per-post comments fetches
//   - postpager_page_join_duration_seconds{policy} (Histogram): Fan-out and join time per page
//
// Navigation Metrics (pkg/controller):
//   - postpager_navigations_total{action, result} (Counter): Next/previous events, accepted or rejected
//   - postpager_page_loads_total{result} (Counter): Page loads by result (ok, partial, failed, stale)
//
// Example Prometheus Queries:
//
//   # Page Load Failure Rate
//   sum(rate(postpager_page_loads_total{result="failed"}[5m])) /
//   sum(rate(postpager_page_loads_total[5m]))
//
//   # Superseded Loads
//   rate(postpager_page_loads_total{result="stale"}[5m])
//
//   # Request Budget
//   postpager_ratelimit_remaining < 20
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(postpager_request_duration_seconds_bucket[5m]))

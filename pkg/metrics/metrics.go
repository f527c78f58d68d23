// Package metrics exposes the Prometheus metrics of the Skilly client.
// The metrics themselves are defined with promauto in the packages that
// record them (client, cache, ratelimit, pagination, session), which keeps
// this package free of import cycles.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gatherer is the gatherer served by Handler. promauto registers every
// client metric with the default registry, which this gathers from.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the client metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - skilly_requests_total{endpoint, status} (Counter)
//   - skilly_request_duration_seconds{endpoint} (Histogram)
//   - skilly_errors_total{class} (Counter): unauthorized, redirect, client, server, rate_limit, network
//
// Retry Metrics (pkg/client, reference data only):
//   - skilly_retries_total{error_class} (Counter)
//   - skilly_retry_backoff_seconds{error_class} (Histogram)
//   - skilly_retry_exhausted_total{error_class} (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - skilly_rate_limit_remaining (Gauge): last X-RateLimit-Remaining
//   - skilly_rate_limit_blocks_total (Counter): requests held back by a backoff window
//   - skilly_rate_limit_backoffs_total (Counter): backoff windows opened
//
// Cache Metrics (pkg/cache):
//   - skilly_cache_hits_total{state} (Counter)
//   - skilly_cache_misses_total (Counter)
//   - skilly_cache_stored_bytes (Gauge)
//   - skilly_cache_errors_total{operation} (Counter)
//
// List Metrics (pkg/pagination):
//   - skilly_page_fetches_total{list, outcome} (Counter): skipped, appended, exhausted, stale, failed
//   - skilly_page_fetch_duration_seconds{list} (Histogram)
//   - skilly_list_duplicates_total{list} (Counter)
//
// Session Metrics (pkg/session):
//   - skilly_session_redirects_total{reason} (Counter): unauthorized, redirect
//
// Example Prometheus Queries:
//
//   # Requests refused by the fetch guard
//   sum by (list) (rate(skilly_page_fetches_total{outcome="skipped"}[5m]))
//
//   # Session losses
//   increase(skilly_session_redirects_total{reason="unauthorized"}[1h])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(skilly_request_duration_seconds_bucket[5m]))

// Package metrics exposes the connector's Prometheus metrics. The metrics
// themselves are declared with promauto next to the code that records them
// (client, pagination, ratelimit, graph, history, integration).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer promauto uses for every connector metric.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Names lists every connector metric.
//
// Provider calls (pkg/client):
//   - spoke_requests_total{endpoint, status}
//   - spoke_request_duration_seconds{endpoint}
//   - spoke_errors_total{class}: client, server, unexpected_status, network, decode
//
// Pagination (pkg/pagination):
//   - spoke_pages_fetched_total{endpoint}
//   - spoke_items_delivered_total{endpoint}
//   - spoke_pagination_stops_total{endpoint, reason}: exhausted, cutoff, record_cap, single_page
//
// Pacing (pkg/ratelimit):
//   - spoke_ratelimit_wait_seconds
//   - spoke_ratelimit_throttled_total
//
// Job state (pkg/graph):
//   - spoke_entities_added_total{type}
//   - spoke_relationships_added_total{type}
//
// Runs (pkg/integration, pkg/history):
//   - spoke_step_duration_seconds{step, outcome}
//   - spoke_history_errors_total{operation}
//
// Example queries:
//
//	# Requests synced per run
//	increase(spoke_items_delivered_total{endpoint="/requests"}[1h])
//
//	# Why request walks end
//	sum by (reason) (rate(spoke_pagination_stops_total{endpoint="/requests"}[1d]))
//
//	# Failed steps
//	sum by (step) (rate(spoke_step_duration_seconds_count{outcome="failed"}[1d]))
var Names = []string{
	"spoke_requests_total",
	"spoke_request_duration_seconds",
	"spoke_errors_total",
	"spoke_pages_fetched_total",
	"spoke_items_delivered_total",
	"spoke_pagination_stops_total",
	"spoke_ratelimit_wait_seconds",
	"spoke_ratelimit_throttled_total",
	"spoke_entities_added_total",
	"spoke_relationships_added_total",
	"spoke_step_duration_seconds",
	"spoke_history_errors_total",
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

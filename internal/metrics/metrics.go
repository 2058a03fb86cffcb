// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts handled requests by route, method, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests handled.",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration observes request latency by route and method.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// UpstreamRetriesTotal counts retried upstream attempts by provider.
	UpstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_retries_total",
			Help: "Total number of upstream request retries.",
		},
		[]string{"provider"},
	)

	// UpstreamRequestsTotal counts upstream requests by provider and outcome.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_requests_total",
			Help: "Total number of upstream requests by final outcome.",
		},
		[]string{"provider", "outcome"},
	)
)

// Handler returns the /metrics exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UpstreamRequests counts upstream API calls by source and outcome
	// (ok, transient, structural).
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barrenero_upstream_requests_total",
			Help: "Upstream API requests by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	// RetryAttempts counts attempts made by the retry executor per operation.
	RetryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barrenero_retry_attempts_total",
			Help: "Retry executor attempts by operation.",
		},
		[]string{"operation"},
	)

	// RetryExhausted counts operations that consumed every attempt without a
	// result.
	RetryExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barrenero_retry_exhausted_total",
			Help: "Retry executor exhaustions by operation.",
		},
		[]string{"operation"},
	)

	// RequestDuration observes handler latency by route and status code.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barrenero_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)

// MustRegisterMetrics registers all collectors on the default registry.
// Panics on duplicate registration, which signals a wiring bug.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		UpstreamRequests,
		RetryAttempts,
		RetryExhausted,
		RequestDuration,
	)
}

// ObserveUpstream records the outcome of one upstream API call.
func ObserveUpstream(source, outcome string) {
	UpstreamRequests.WithLabelValues(source, outcome).Inc()
}

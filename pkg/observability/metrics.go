// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the torhaus gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// CollaboratorBuckets defines histogram buckets suited for billing and
// permissions call latencies, ranging from 5ms to 10s.
var CollaboratorBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torhaus_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "torhaus_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ChainAllowedTotal counts requests that passed the full chain.
	ChainAllowedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "torhaus_chain_allowed_total",
			Help: "Requests allowed by the chain",
		},
	)

	// ChainHaltsTotal counts chain halts by error code and halting stage.
	ChainHaltsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torhaus_chain_halts_total",
			Help: "Chain halts",
		},
		[]string{"code", "stage"},
	)

	// SecretMatchedTotal counts successful verifications by which signing
	// secret matched. This is the only place the matched secret is
	// visible; no request logic branches on it.
	SecretMatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torhaus_secret_matched_total",
			Help: "Verifications by matched secret",
		},
		[]string{"secret"},
	)

	// CollaboratorRequestsTotal counts billing/permissions calls by outcome.
	CollaboratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "torhaus_collaborator_requests_total",
			Help: "Collaborator requests",
		},
		[]string{"collaborator", "status"},
	)

	// CollaboratorLatency records billing/permissions call latency in seconds.
	CollaboratorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "torhaus_collaborator_latency_seconds",
			Help:    "Collaborator latency",
			Buckets: CollaboratorBuckets,
		},
		[]string{"collaborator"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ChainAllowedTotal,
		ChainHaltsTotal,
		SecretMatchedTotal,
		CollaboratorRequestsTotal,
		CollaboratorLatency,
	)
}

// Package metrics exposes Prometheus collectors for the detection pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "factcheck"

var (
	// MessagesTotal counts messages by pipeline outcome.
	// Labels: status (skipped, rate_limited, evaluated, could_not_evaluate)
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_total",
			Help:      "Messages processed by outcome status",
		},
		[]string{"status"},
	)

	// AlertsTotal counts alerts by severity.
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "alerts_total",
			Help:      "Alerts emitted by severity",
		},
		[]string{"severity"},
	)

	// ProviderRequests counts provider attempts.
	// Labels: provider, result (success, timeout, malformed, transport, circuit_open)
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Analysis provider attempts by result",
		},
		[]string{"provider", "result"},
	)

	// ProviderLatency tracks provider call duration.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of analysis provider calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"provider"},
	)

	// ProviderExhausted counts analyses where every provider failed.
	ProviderExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "exhausted_total",
			Help:      "Analyses where every provider failed",
		},
	)

	// RateLimited counts limiter rejections by limiter name.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Rate limiter rejections",
		},
		[]string{"limiter"},
	)

	// PersistenceErrors counts failed writes to the key-value store.
	// Labels: store (community, ratelimit)
	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_errors_total",
			Help:      "Failed persistence writes",
		},
		[]string{"store"},
	)

	// ContextFetchErrors counts history fetch failures.
	ContextFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "context",
			Name:      "fetch_errors_total",
			Help:      "Conversation history fetch failures",
		},
	)

	// PatternsPruned counts pattern entries removed by expiry.
	PatternsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "patterns",
			Name:      "pruned_total",
			Help:      "Pattern entries removed by expiry",
		},
	)
)

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var lskyRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lsky_requests_total",
		Help: "Requests sent to the Lsky Pro API, by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

var lskyDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lsky_request_duration_seconds",
		Help:    "Latency of Lsky Pro API requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

var hookCalls = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "attachment_hook_calls_total",
		Help: "CMS attachment hook invocations, by hook, storage target and outcome",
	},
	[]string{"hook", "target", "outcome"},
)

// ObserveLsky records one Lsky API request.
func ObserveLsky(operation, outcome string, started time.Time) {
	lskyRequests.WithLabelValues(operation, outcome).Inc()
	lskyDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveHook records one hook invocation. target is "remote", "local" or "" when unknown.
func ObserveHook(hook, target, outcome string) {
	if target == "" {
		target = "none"
	}
	hookCalls.WithLabelValues(hook, target, outcome).Inc()
}

// Package metrics defines Prometheus collectors for the SDK runtime.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce ensures Register() is idempotent.
var registerOnce sync.Once

// Pipeline metrics (RED: Rate, Errors, Duration).
var (
	// RequestsTotal counts finished API calls by service, action and
	// outcome code ("ok", an HTTP status, or a service error code).
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teco_requests_total",
			Help: "Finished API calls",
		},
		[]string{"service", "action", "code"},
	)

	// RequestDuration observes end-to-end call latency in seconds,
	// including retries, by service and action.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teco_request_duration_seconds",
			Help:    "API call latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "action"},
	)

	// RetriesTotal counts resubmitted attempts by service and action.
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teco_retries_total",
			Help: "Retried attempts",
		},
		[]string{"service", "action"},
	)

	// CredentialRefreshesTotal counts successful credential refreshes
	// performed by the temporary provider.
	CredentialRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teco_credential_refreshes_total",
			Help: "Successful credential refreshes",
		},
	)
)

// Register registers all collectors with the default registry. It is safe to
// call multiple times; subsequent calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestDuration,
			RetriesTotal,
			CredentialRefreshesTotal,
		)
	})
}

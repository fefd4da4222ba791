// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels for auth metrics.
const (
	OperationRegister = "register"
	OperationLogin    = "login"
	OperationMe       = "me"
	OperationResolve  = "resolve"
	OperationLogout   = "logout"
)

// OutcomeSuccess labels a successful operation. Failures are labelled with
// their Kind.
const OutcomeSuccess = "success"

// Operations counts auth operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "passgate_auth_operations_total",
		Help: "Total number of authentication operations",
	},
	[]string{"operation", "outcome"},
)

// OperationDuration is the histogram for auth operation latency.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "passgate_auth_operation_duration_seconds",
		Help:    "Authentication operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// TokensSwept counts expired tokens removed by the sweeper.
var TokensSwept = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "passgate_tokens_swept_total",
		Help: "Total number of expired access tokens deleted",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
	reg.MustRegister(OperationDuration)
	reg.MustRegister(TokensSwept)
}

// recordOperation records the outcome and latency of one operation.
func recordOperation(operation string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = KindOf(err).String()
	}
	Operations.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest results.
const (
	IngestAccepted  = "accepted"
	IngestDuplicate = "duplicate"
	IngestFailed    = "failed"
)

var (
	// Distribution
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "newswire_ws_connections",
			Help: "Current number of open subscriber connections",
		},
	)

	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_alerts_sent_total",
			Help: "Live alert frames delivered to subscribers",
		},
		[]string{"channel"},
	)

	RevenueMicros = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newswire_revenue_micros_total",
			Help: "Revenue charged for deliveries, in micro-units",
		},
	)

	LowBalance = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newswire_low_balance_total",
			Help: "Deliveries skipped because the subscriber could not be charged",
		},
	)

	BackfillSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newswire_backfill_sent_total",
			Help: "Backfill alert frames sent on connect",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_ws_errors_total",
			Help: "Connection-level errors by type",
		},
		[]string{"error_type"}, // slow_consumer, write, read, charge
	)

	// Ingestion and intake
	IngestItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_ingest_items_total",
			Help: "Raw items processed by the pipeline",
		},
		[]string{"result"},
	)

	IntakeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_intake_rejections_total",
			Help: "Publisher submissions rejected, by error code",
		},
		[]string{"code"},
	)

	BusPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_bus_published_total",
			Help: "Messages published to the event bus",
		},
		[]string{"topic"},
	)

	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newswire_db_query_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_db_query_errors_total",
			Help: "Store operations that returned an unexpected error",
		},
		[]string{"operation"},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newswire_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "newswire_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "newswire_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Authorization
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newswire_authz_decisions_total",
			Help: "Total number of route authorization decisions",
		},
		[]string{"role", "decision"},
	)
)

// RecordDelivery counts one live alert delivery and the amount charged.
func RecordDelivery(channel string, chargedMicros int64) {
	AlertsSent.WithLabelValues(channel).Inc()
	if chargedMicros > 0 {
		RevenueMicros.Add(float64(chargedMicros))
	}
}

// RecordIngest counts one pipeline outcome.
func RecordIngest(result string) {
	IngestItems.WithLabelValues(result).Inc()
}

// RecordIntakeRejection counts one rejected publisher submission.
func RecordIntakeRejection(code string) {
	IntakeRejections.WithLabelValues(code).Inc()
}

// RecordBusPublish counts one message published on topic.
func RecordBusPublish(topic string) {
	BusPublished.WithLabelValues(topic).Inc()
}

// RecordDBQuery records a store operation.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBreakerTransition records a circuit breaker state change. States
// are the gobreaker names: "closed", "half-open", "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}

// RecordAuthzDecision counts one allow or deny for role.
func RecordAuthzDecision(role string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(role, decision).Inc()
}

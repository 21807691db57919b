// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package metrics provides Prometheus metrics for the newswire service.

Metrics are registered on the default registry through promauto and exposed
at /metrics in Prometheus text format:

	curl http://localhost:8787/metrics

# Available Metrics

Distribution:
  - newswire_ws_connections: open subscriber connections (gauge)
  - newswire_alerts_sent_total: live deliveries (counter), label channel
  - newswire_revenue_micros_total: revenue charged, micro-units (counter)
  - newswire_low_balance_total: deliveries skipped for balance (counter)
  - newswire_backfill_sent_total: backfill frames (counter)
  - newswire_ws_errors_total: connection errors (counter), label error_type

Ingestion and intake:
  - newswire_ingest_items_total: pipeline outcomes (counter), label result
  - newswire_intake_rejections_total: rejected submissions (counter), label code
  - newswire_bus_published_total: bus publishes (counter), label topic

Infrastructure:
  - newswire_db_query_duration_seconds, newswire_db_query_errors_total
  - newswire_api_requests_total, newswire_api_request_duration_seconds,
    newswire_api_active_requests
  - newswire_circuit_breaker_state, newswire_circuit_breaker_state_transitions_total

# Usage

Components call the Record helpers rather than touching vectors directly:

	metrics.RecordDelivery(string(alert.Channel), int64(charged))
	metrics.RecordIngest(metrics.IngestDuplicate)
*/
package metrics

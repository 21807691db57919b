// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package middleware provides HTTP middleware shared by the API router.

All middleware has the chi signature func(http.Handler) http.Handler.

  - RequestID: propagates or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - Metrics: records newswire_api_* Prometheus metrics labelled by the chi
    route pattern, so resource ids never become label values
  - Compression: gzip for clients that accept it; websocket upgrades pass
    through untouched

Ordering in the router:

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Compression)
*/
package middleware

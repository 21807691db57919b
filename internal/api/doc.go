// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package api is the HTTP surface: the REST API under /api/v1, the /ws stream
endpoint, health, metrics and swagger.

Routing uses chi. The middleware stack, outermost first:

	RequestID -> RealIP -> Recoverer -> CORS -> Metrics
	/api/v1: RateLimit -> Compression -> Authenticate -> Authorize

Authenticate (internal/auth) resolves the caller from a bearer token or the
token query parameter. Authorize (internal/authz) checks the caller's role
against the route policy. Handlers under /subscribers/{id} additionally
require that a subscriber token belongs to that id.

Responses:

Success bodies use the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}

Errors use the same envelope with an error object:

	{"success": false, "error": {"code": "VALIDATION_FAILED", "message": "...", "details": {...}}}

Error codes map to statuses in errors.go. Intake rejections keep their
intake code (UNAUTHENTICATED, FORBIDDEN_CHANNEL, VALIDATION_FAILED,
RATE_LIMITED).

Stream:

GET /ws upgrades the connection and hands it to the distribution engine. The
subscriber is taken from a subscriber stream token when present, otherwise
from the subscriberId query parameter. With security.require_stream_auth the
token is mandatory. Non-browser agents are the expected clients, so a
missing Origin header is accepted; a present Origin must match the CORS
allow list.
*/
package api

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package auth issues and validates the bearer tokens used by the HTTP API and
the alert stream.

Key Components:

  - TokenManager: HS256 token generation and validation
  - Subject: the authenticated caller (id and role) carried in the context
  - Middleware: resolves a Subject from the Authorization header or the
    token query parameter

Roles:

  - subscriber: stream tokens returned by POST /api/v1/subscribers, scoped to
    one subscriber id
  - admin: operator tokens minted with `newswire --issue-admin-token`
  - anonymous: any request without credentials

Publishers do not use tokens. Their API keys are checked by the intake
service on POST /api/v1/alerts/publish.

Usage Example:

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
	    return err
	}
	token, err := tokens.Issue(sub.ID, auth.RoleSubscriber)

	r.Use(auth.NewMiddleware(tokens).Authenticate)
	// handlers read auth.SubjectFrom(r.Context())

Thread Safety:

TokenManager and Middleware are immutable after construction and safe for
concurrent use.
*/
package auth

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package authz

import (
	"net/http"

	"github.com/tomtom215/newswire/internal/auth"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/metrics"
)

// Middleware enforces the route policy. It must run after
// auth.Middleware.Authenticate.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates the authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize maps the request method to an action and checks the subject's
// role against the request path. Denied anonymous requests get 401, denied
// authenticated requests 403.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := auth.SubjectFrom(r.Context())

		allowed, err := m.enforcer.Enforce(subject.Role, r.URL.Path, methodToAction(r.Method))
		if err != nil {
			logging.Error().Err(err).Str("path", r.URL.Path).Msg("Authorization error")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "authorization failed")
			return
		}
		metrics.RecordAuthzDecision(subject.Role, allowed)

		if !allowed {
			if subject.Role == auth.RoleAnonymous {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
				return
			}
			logging.Audit(logging.AuditEvent{
				Event:   "authz.denied",
				Actor:   subject.ID,
				Role:    subject.Role,
				Target:  r.Method + " " + r.URL.Path,
				Success: false,
			})
			writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// methodToAction maps HTTP methods to policy actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}

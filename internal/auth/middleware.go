// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package auth

import (
	"net/http"
	"strings"

	"github.com/tomtom215/newswire/internal/logging"
)

// Middleware resolves the request subject.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Authenticate attaches a Subject to the request context. Requests without
// a token continue as Anonymous. An invalid token is a 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), Anonymous)))
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			logging.Debug().Err(err).Str("path", r.URL.Path).Msg("Token validation failed")
			w.Header().Set("WWW-Authenticate", `Bearer realm="newswire"`)
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), SubjectFromClaims(claims))))
	})
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter used by websocket clients.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHENTICATED","message":"invalid or expired token"}}`))
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package auth

import "context"

// Roles known to the route policy.
const (
	RoleAdmin      = "admin"
	RoleSubscriber = "subscriber"
	RolePublisher  = "publisher"
	RoleAnonymous  = "anonymous"
)

func validRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSubscriber, RolePublisher, RoleAnonymous:
		return true
	}
	return false
}

// Subject is the authenticated caller.
type Subject struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Anonymous is the subject of requests without credentials.
var Anonymous = &Subject{Role: RoleAnonymous}

// IsAdmin reports whether the subject holds the admin role.
func (s *Subject) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// Owns reports whether the subject may act on the subscriber resource id.
// Admins own everything.
func (s *Subject) Owns(id string) bool {
	if s == nil {
		return false
	}
	if s.IsAdmin() {
		return true
	}
	return s.Role == RoleSubscriber && s.ID != "" && s.ID == id
}

// SubjectFromClaims converts validated claims.
func SubjectFromClaims(c *Claims) *Subject {
	if c == nil {
		return nil
	}
	return &Subject{ID: c.Subject, Role: c.Role}
}

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// WithSubject stores s in ctx.
func WithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// SubjectFrom returns the subject stored by Middleware, or Anonymous.
func SubjectFrom(ctx context.Context) *Subject {
	if s, ok := ctx.Value(subjectContextKey).(*Subject); ok && s != nil {
		return s
	}
	return Anonymous
}

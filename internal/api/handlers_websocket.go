// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/newswire/internal/auth"
	"github.com/tomtom215/newswire/internal/logging"
)

// resolveStreamSubscriber picks the subscriber a stream is opened for. A
// subscriber token always names itself; admins and anonymous callers use
// ?subscriberId=. It returns an HTTP status and message on failure.
func (rt *Router) resolveStreamSubscriber(r *http.Request) (string, int, string) {
	subject := auth.SubjectFrom(r.Context())
	query := r.URL.Query().Get("subscriberId")

	switch subject.Role {
	case auth.RoleSubscriber:
		if query != "" && query != subject.ID {
			return "", http.StatusForbidden, "token does not grant access to this subscriber"
		}
		return subject.ID, 0, ""
	case auth.RoleAdmin:
		if query == "" {
			return "", http.StatusBadRequest, "subscriberId query parameter is required"
		}
		return query, 0, ""
	}

	if rt.deps.Config.Security.RequireStreamAuth {
		return "", http.StatusUnauthorized, "a subscriber token is required"
	}
	if query == "" {
		return "", http.StatusBadRequest, "subscriberId query parameter is required"
	}
	return query, 0, ""
}

// Stream upgrades to a WebSocket and hands the socket to the distribution
// engine.
//
// @Summary Open an alert stream
// @Tags Stream
// @Param subscriberId query string false "Subscriber ID (required without a subscriber token)"
// @Param token query string false "Subscriber token, if no Authorization header"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} APIResponse
// @Failure 401 {object} APIResponse
// @Failure 403 {object} APIResponse
// @Router /ws [get]
func (rt *Router) Stream(w http.ResponseWriter, r *http.Request) {
	id, status, msg := rt.resolveStreamSubscriber(r)
	if status != 0 {
		code := ErrCodeBadRequest
		switch status {
		case http.StatusUnauthorized:
			code = ErrCodeUnauthenticated
		case http.StatusForbidden:
			code = ErrCodeForbidden
		}
		respondError(w, r, status, code, msg, nil)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if !rt.chi.originAllowed(origin) {
				logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
				return false
			}
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Str("subscriber_id", id).Msg("WebSocket upgrade failed")
		return
	}

	// The connection outlives the handler.
	rt.deps.Engine.Attach(context.WithoutCancel(r.Context()), conn, id)
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/newswire/internal/intake"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
)

// APIKeyHeader carries a publisher credential.
const APIKeyHeader = "X-API-Key"

// ListChannels returns the channel catalog.
//
// @Summary List channels
// @Tags Channels
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.ChannelInfo}
// @Router /channels [get]
func (rt *Router) ListChannels(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, models.ChannelCatalog())
}

// ListAlerts returns recent alerts, newest first.
//
// @Summary List recent alerts
// @Tags Alerts
// @Produce json
// @Param channel query string false "Single channel name"
// @Param channels query string false "Comma-separated channel names"
// @Param limit query int false "Max alerts (default 50, max 100)"
// @Success 200 {object} APIResponse{data=[]models.Alert}
// @Failure 400 {object} APIResponse
// @Router /alerts [get]
func (rt *Router) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, 50, store.DefaultRecentLimit)
	if !ok {
		return
	}

	var names []string
	if one := strings.TrimSpace(r.URL.Query().Get("channel")); one != "" {
		names = append(names, one)
	}
	if raw := r.URL.Query().Get("channels"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	channels, err := models.ParseChannelSet(names)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	alerts, err := rt.deps.Store.RecentAlerts(r.Context(), store.AlertQuery{Limit: limit, Channels: channels})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, alerts)
}

// PublishAlert accepts a publisher submission authenticated by X-API-Key.
//
// @Summary Publish an alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Param X-API-Key header string true "Publisher API key"
// @Param body body intake.PublishAlertRequest true "Alert"
// @Success 201 {object} APIResponse{data=models.Alert}
// @Failure 400 {object} APIResponse "VALIDATION_FAILED"
// @Failure 401 {object} APIResponse "UNAUTHENTICATED"
// @Failure 403 {object} APIResponse "FORBIDDEN_CHANNEL"
// @Failure 409 {object} APIResponse "DUPLICATE"
// @Failure 429 {object} APIResponse "RATE_LIMITED"
// @Router /alerts/publish [post]
func (rt *Router) PublishAlert(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		respondError(w, r, http.StatusUnauthorized, string(intake.CodeUnauthenticated), "missing "+APIKeyHeader+" header", nil)
		return
	}

	var req intake.PublishAlertRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	alert, err := rt.deps.Intake.Publish(r.Context(), key, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().
		Str("alert_id", alert.AlertID).
		Str("publisher_id", alert.PublisherID).
		Msg("Publisher alert accepted")
	respondCreated(w, r, alert)
}

// VerifyAlert checks a content hash against a stored alert.
//
// @Summary Verify alert content
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Param hash query string true "Content hash"
// @Success 200 {object} APIResponse{data=VerifyResponse}
// @Failure 404 {object} APIResponse
// @Router /alerts/{id}/verify [get]
func (rt *Router) VerifyAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "hash query parameter is required", nil)
		return
	}

	ok, err := rt.deps.Intake.VerifyAlert(r.Context(), id, hash)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, VerifyResponse{AlertID: id, Hash: hash, Verified: ok})
}

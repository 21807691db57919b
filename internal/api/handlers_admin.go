// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/newswire/internal/auth"
	"github.com/tomtom215/newswire/internal/dedup"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/validation"
)

// Ingest queues raw items on the ingestion bus. With mode=sync the items
// run through the pipeline in the request and the outcome is returned.
//
// @Summary Queue or process raw items
// @Tags Admin
// @Accept json
// @Produce json
// @Param mode query string false "sync to process in the request"
// @Param body body IngestRequest true "Items"
// @Success 200 {object} APIResponse{data=ingest.BatchResult}
// @Success 202 {object} APIResponse{data=IngestResponse}
// @Failure 503 {object} APIResponse
// @Security BearerAuth
// @Router /admin/ingest [post]
func (rt *Router) Ingest(w http.ResponseWriter, r *http.Request) {
	sync := r.URL.Query().Get("mode") == "sync"
	if (sync && rt.deps.Batch == nil) || (!sync && rt.deps.Ingest == nil) {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "ingestion pipeline is not running", nil)
		return
	}

	var req IngestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	for i, item := range req.Items {
		if verr := validation.ValidateStruct(item); verr != nil {
			apiErr := verr.ToAPIError()
			respondError(w, r, http.StatusBadRequest, apiErr.Code,
				fmt.Sprintf("items[%d]: %s", i, apiErr.Message), apiErr.Details)
			return
		}
	}

	if sync {
		res := rt.deps.Batch.ProcessBatch(r.Context(), req.Items)
		logging.Ctx(r.Context()).Info().
			Str("actor", auth.SubjectFrom(r.Context()).ID).
			Int("accepted", res.Accepted).
			Int("duplicates", res.Duplicates).
			Int("failed", res.Failed).
			Msg("Raw items processed")
		respondOK(w, r, res)
		return
	}

	n, err := rt.deps.Ingest.PublishRawItems(r.Context(), req.Items)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("published", n).Msg("Failed to queue raw items")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "failed to queue items", IngestResponse{Queued: n})
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("actor", auth.SubjectFrom(r.Context()).ID).
		Int("queued", n).
		Msg("Raw items queued")
	respondJSON(w, http.StatusAccepted, &APIResponse{Success: true, Data: IngestResponse{Queued: n}, Meta: meta(r)})
}

// DedupStatus reports whether a headline on a channel is already recorded
// by the deduplicator. It never records.
//
// @Summary Look up a dedup fingerprint
// @Tags Admin
// @Produce json
// @Param headline query string true "Headline"
// @Param channel query string true "Channel"
// @Success 200 {object} APIResponse{data=DedupStatusResponse}
// @Failure 400 {object} APIResponse
// @Security BearerAuth
// @Router /admin/dedup [get]
func (rt *Router) DedupStatus(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Dedup == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "deduplicator is not configured", nil)
		return
	}
	headline := strings.TrimSpace(r.URL.Query().Get("headline"))
	if headline == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "headline is required", nil)
		return
	}
	ch, err := models.ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	fp := dedup.Fingerprint(headline, ch)
	respondOK(w, r, DedupStatusResponse{Fingerprint: fp, Seen: rt.deps.Dedup.Seen(r.Context(), fp)})
}

// DedupeAlerts removes stored alerts that share a fingerprint with an
// earlier one.
//
// @Summary Remove duplicate alerts
// @Tags Admin
// @Produce json
// @Success 200 {object} APIResponse{data=DedupeResponse}
// @Security BearerAuth
// @Router /admin/alerts/dedupe [post]
func (rt *Router) DedupeAlerts(w http.ResponseWriter, r *http.Request) {
	removed, err := rt.deps.Store.DedupeAlerts(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	subject := auth.SubjectFrom(r.Context())
	logging.Audit(logging.AuditEvent{
		Event:   "alerts.dedupe",
		Actor:   subject.ID,
		Role:    subject.Role,
		Success: true,
		Reason:  fmt.Sprintf("removed %d", removed),
	})
	respondOK(w, r, DedupeResponse{Removed: removed})
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/newswire/internal/intake"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/validation"
)

// RegisterPublisher registers a publisher and returns its API key once.
//
// @Summary Register a publisher
// @Tags Publishers
// @Accept json
// @Produce json
// @Param body body intake.RegisterRequest true "Registration"
// @Success 201 {object} APIResponse{data=intake.Registration}
// @Failure 400 {object} APIResponse
// @Router /publishers [post]
func (rt *Router) RegisterPublisher(w http.ResponseWriter, r *http.Request) {
	var req intake.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reg, err := rt.deps.Intake.Register(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondCreated(w, r, reg)
}

// GetPublisher returns one publisher.
//
// @Summary Get a publisher
// @Tags Admin
// @Produce json
// @Param id path string true "Publisher ID"
// @Success 200 {object} APIResponse{data=models.Publisher}
// @Failure 404 {object} APIResponse
// @Security BearerAuth
// @Router /admin/publishers/{id} [get]
func (rt *Router) GetPublisher(w http.ResponseWriter, r *http.Request) {
	p, err := rt.deps.Intake.Publisher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, p)
}

// SetPublisherStatus changes a publisher's status.
//
// @Summary Set publisher status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Publisher ID"
// @Param body body SetStatusRequest true "Status"
// @Success 200 {object} APIResponse{data=models.Publisher}
// @Security BearerAuth
// @Router /admin/publishers/{id}/status [post]
func (rt *Router) SetPublisherStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	status, err := models.ParsePublisherStatus(req.Status)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error(), nil)
		return
	}

	p, err := rt.deps.Intake.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, p)
}

// SlashPublisher removes stake from a misbehaving publisher.
//
// @Summary Slash a publisher
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Publisher ID"
// @Param body body AmountRequest true "Amount"
// @Success 200 {object} APIResponse{data=models.Publisher}
// @Failure 400 {object} APIResponse "INVALID_AMOUNT"
// @Security BearerAuth
// @Router /admin/publishers/{id}/slash [post]
func (rt *Router) SlashPublisher(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := rt.deps.Intake.Slash(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, p)
}

// WithdrawStake returns the calling publisher's stake and suspends it.
//
// @Summary Withdraw publisher stake
// @Tags Publishers
// @Produce json
// @Param X-API-Key header string true "Publisher API key"
// @Success 200 {object} APIResponse{data=intake.StakeWithdrawal}
// @Failure 400 {object} APIResponse "INVALID_AMOUNT"
// @Failure 401 {object} APIResponse "UNAUTHENTICATED"
// @Failure 403 {object} APIResponse "PUBLISHER_SLASHED"
// @Router /publishers/self/withdraw-stake [post]
func (rt *Router) WithdrawStake(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		respondError(w, r, http.StatusUnauthorized, string(intake.CodeUnauthenticated), "missing "+APIKeyHeader+" header", nil)
		return
	}
	res, err := rt.deps.Intake.WithdrawStake(r.Context(), key)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, res)
}

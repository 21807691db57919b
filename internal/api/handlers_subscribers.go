// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/newswire/internal/auth"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/validation"
)

// maxReceipts bounds GET /subscribers/{id}/receipts.
const maxReceipts = 500

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}

// CreateSubscriber registers a subscriber and returns a stream token.
//
// @Summary Create a subscriber
// @Tags Subscribers
// @Accept json
// @Produce json
// @Param body body CreateSubscriberRequest true "Subscriber"
// @Success 201 {object} APIResponse{data=SubscriberCreated}
// @Failure 400 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /subscribers [post]
func (rt *Router) CreateSubscriber(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	channels, _ := models.ParseChannelSet(req.Channels)

	sub := &models.Subscriber{
		ID:            uuid.NewString(),
		WalletAddress: req.WalletAddress,
		Channels:      channels,
		Balance:       req.InitialDeposit,
		Active:        true,
	}
	ctx := r.Context()
	if err := rt.deps.Store.CreateSubscriber(ctx, sub); err != nil {
		respondErr(w, r, err)
		return
	}
	created, err := rt.deps.Store.GetSubscriber(ctx, sub.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	token, err := rt.deps.Tokens.Issue(created.ID, auth.RoleSubscriber)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	logging.Ctx(ctx).Info().
		Str("subscriber_id", created.ID).
		Strs("channels", created.Channels.Strings()).
		Msg("Subscriber created")
	respondCreated(w, r, SubscriberCreated{
		Subscriber: created,
		Token:      token,
		ExpiresIn:  int64(rt.deps.Tokens.TTL().Seconds()),
	})
}

// GetSubscriber returns one subscriber.
//
// @Summary Get a subscriber
// @Tags Subscribers
// @Produce json
// @Param id path string true "Subscriber ID"
// @Success 200 {object} APIResponse{data=models.Subscriber}
// @Failure 404 {object} APIResponse
// @Security BearerAuth
// @Router /subscribers/{id} [get]
func (rt *Router) GetSubscriber(w http.ResponseWriter, r *http.Request) {
	sub, err := rt.deps.Store.GetSubscriber(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, sub)
}

// UpdateSubscriberChannels replaces the channel set and pushes it to a live
// connection, if any.
//
// @Summary Replace subscriber channels
// @Tags Subscribers
// @Accept json
// @Produce json
// @Param id path string true "Subscriber ID"
// @Param body body UpdateChannelsRequest true "Channels"
// @Success 200 {object} APIResponse{data=models.Subscriber}
// @Security BearerAuth
// @Router /subscribers/{id}/channels [put]
func (rt *Router) UpdateSubscriberChannels(w http.ResponseWriter, r *http.Request) {
	var req UpdateChannelsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	channels, _ := models.ParseChannelSet(req.Channels)

	id := chi.URLParam(r, "id")
	ctx := r.Context()
	if err := rt.deps.Store.UpdateChannels(ctx, id, channels); err != nil {
		respondErr(w, r, err)
		return
	}
	live := rt.deps.Engine.RefreshInterest(id, channels)

	sub, err := rt.deps.Store.GetSubscriber(ctx, id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	logging.Ctx(ctx).Info().
		Str("subscriber_id", id).
		Strs("channels", channels.Strings()).
		Bool("live", live).
		Msg("Subscriber channels updated")
	respondOK(w, r, sub)
}

// Deposit adds to the balance.
//
// @Summary Deposit balance
// @Tags Subscribers
// @Accept json
// @Produce json
// @Param id path string true "Subscriber ID"
// @Param body body AmountRequest true "Amount"
// @Success 200 {object} APIResponse{data=models.Subscriber}
// @Failure 400 {object} APIResponse "INVALID_AMOUNT"
// @Security BearerAuth
// @Router /subscribers/{id}/deposit [post]
func (rt *Router) Deposit(w http.ResponseWriter, r *http.Request) {
	rt.moveBalance(w, r, "deposit", rt.deps.Store.Deposit)
}

// Withdraw removes from the balance.
//
// @Summary Withdraw balance
// @Tags Subscribers
// @Accept json
// @Produce json
// @Param id path string true "Subscriber ID"
// @Param body body AmountRequest true "Amount"
// @Success 200 {object} APIResponse{data=models.Subscriber}
// @Failure 400 {object} APIResponse "INVALID_AMOUNT"
// @Failure 402 {object} APIResponse "INSUFFICIENT_BALANCE"
// @Security BearerAuth
// @Router /subscribers/{id}/withdraw [post]
func (rt *Router) Withdraw(w http.ResponseWriter, r *http.Request) {
	rt.moveBalance(w, r, "withdraw", rt.deps.Store.Withdraw)
}

func (rt *Router) moveBalance(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, id string, amount models.Amount) (*models.Subscriber, error)) {
	var req AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	sub, err := fn(r.Context(), id, req.Amount)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("subscriber_id", id).
		Str("amount", req.Amount.String()).
		Str("balance", sub.Balance.String()).
		Msg("Subscriber " + op)
	respondOK(w, r, sub)
}

// DeactivateSubscriber stops metering and closes any live connection.
//
// @Summary Deactivate a subscriber
// @Tags Subscribers
// @Produce json
// @Param id path string true "Subscriber ID"
// @Success 200 {object} APIResponse{data=models.Subscriber}
// @Security BearerAuth
// @Router /subscribers/{id}/deactivate [post]
func (rt *Router) DeactivateSubscriber(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := rt.deps.Store.SetSubscriberActive(r.Context(), id, false)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	disconnected := rt.deps.Engine.Disconnect(id)
	logging.Audit(logging.AuditEvent{
		Event:   "subscriber.deactivated",
		Actor:   auth.SubjectFrom(r.Context()).ID,
		Role:    auth.SubjectFrom(r.Context()).Role,
		Target:  id,
		Success: true,
		Reason:  "disconnected=" + strconv.FormatBool(disconnected),
	})
	respondOK(w, r, sub)
}

// ReactivateSubscriber re-enables a subscriber.
//
// @Summary Reactivate a subscriber
// @Tags Subscribers
// @Produce json
// @Param id path string true "Subscriber ID"
// @Success 200 {object} APIResponse{data=models.Subscriber}
// @Security BearerAuth
// @Router /subscribers/{id}/reactivate [post]
func (rt *Router) ReactivateSubscriber(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := rt.deps.Store.SetSubscriberActive(r.Context(), id, true)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	logging.Audit(logging.AuditEvent{
		Event:   "subscriber.reactivated",
		Actor:   auth.SubjectFrom(r.Context()).ID,
		Role:    auth.SubjectFrom(r.Context()).Role,
		Target:  id,
		Success: true,
	})
	respondOK(w, r, sub)
}

// SubscriberReceipts lists the most recent delivery receipts.
//
// @Summary List delivery receipts
// @Tags Subscribers
// @Produce json
// @Param id path string true "Subscriber ID"
// @Param limit query int false "Max receipts (default 50, max 500)"
// @Success 200 {object} APIResponse{data=[]models.DeliveryReceipt}
// @Security BearerAuth
// @Router /subscribers/{id}/receipts [get]
func (rt *Router) SubscriberReceipts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, 50, maxReceipts)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := rt.deps.Store.GetSubscriber(r.Context(), id); err != nil {
		respondErr(w, r, err)
		return
	}
	receipts, err := rt.deps.Store.ReceiptsForSubscriber(r.Context(), id, limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, receipts)
}

// parseLimit reads ?limit= with a default and an upper bound.
func parseLimit(w http.ResponseWriter, r *http.Request, def, max int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > max {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"limit must be an integer between 1 and "+strconv.Itoa(max), nil)
		return 0, false
	}
	return n, true
}

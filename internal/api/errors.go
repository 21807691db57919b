// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/newswire/internal/intake"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/store"
)

var intakeStatus = map[intake.Code]int{
	intake.CodeUnauthenticated:  http.StatusUnauthorized,
	intake.CodeForbiddenChannel: http.StatusForbidden,
	intake.CodeValidationFailed: http.StatusBadRequest,
	intake.CodeRateLimited:      http.StatusTooManyRequests,
	intake.CodeConflict:         http.StatusConflict,
	intake.CodeNotFound:         http.StatusNotFound,
	intake.CodeInvalidAmount:    http.StatusBadRequest,
	intake.CodeSlashed:          http.StatusForbidden,
}

// respondErr maps a service or store error to a status and code. Unknown
// errors are logged and reported as 500 without their message.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var ie *intake.Error
	if errors.As(err, &ie) {
		status, ok := intakeStatus[ie.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		var details interface{}
		if len(ie.Details) > 0 {
			details = ie.Details
		}
		respondError(w, r, status, string(ie.Code), ie.Message, details)
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "resource not found", nil)
	case errors.Is(err, store.ErrDuplicate):
		respondError(w, r, http.StatusConflict, ErrCodeDuplicate, "resource already exists", nil)
	case errors.Is(err, store.ErrInvalidAmount):
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidAmount, err.Error(), nil)
	case errors.Is(err, store.ErrInsufficientBalance):
		respondError(w, r, http.StatusPaymentRequired, ErrCodeInsufficientBalance, "balance is lower than the requested amount", nil)
	case errors.Is(err, store.ErrInactive):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "subscriber is inactive", nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "internal server error", nil)
	}
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built on first use. Field errors are
// reported under their JSON names, and the domain tags channel, channels,
// priority and symbol are registered alongside the built-ins.
//
// # Usage
//
//	type PublishAlertRequest struct {
//	    Channel  string `json:"channel" validate:"required,channel"`
//	    Headline string `json:"headline" validate:"required,min=10,max=200"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
//
// ToAPIError always uses the VALIDATION_FAILED code; Details maps each
// failing field to its message.
package validation

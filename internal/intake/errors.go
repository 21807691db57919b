// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package intake

import (
	"errors"
	"fmt"
)

// Code classifies an intake rejection.
type Code string

// Rejection codes. The first four are submission outcomes; the rest come
// from registration and administration.
const (
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeForbiddenChannel Code = "FORBIDDEN_CHANNEL"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeConflict         Code = "CONFLICT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidAmount    Code = "INVALID_AMOUNT"
	CodeSlashed          Code = "PUBLISHER_SLASHED"
)

// Error is the typed rejection returned by the intake service.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the intake code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

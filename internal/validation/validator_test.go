// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one non-nil instance")
	}
}

type sample struct {
	Name     string   `json:"name" validate:"required,min=3,max=8"`
	Channel  string   `json:"channel" validate:"omitempty,channel"`
	Channels []string `json:"channels" validate:"omitempty,channels"`
	Priority string   `json:"priority" validate:"omitempty,priority"`
	Tickers  []string `json:"tickers" validate:"omitempty,max=2,dive,symbol"`
	Score    float64  `json:"score" validate:"gte=0,lte=10"`
	Link     string   `json:"link" validate:"omitempty,http_url"`
	Internal string   `json:"-" validate:"omitempty,oneof=a b"`
}

func valid() sample {
	return sample{
		Name:     "wire",
		Channel:  "defi/exploits",
		Channels: []string{"news/macro", "news/breaking"},
		Priority: "high",
		Tickers:  []string{"BTC", "ETH"},
		Score:    7.5,
		Link:     "https://example.com/a",
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*sample)
		field   string
		message string
	}{
		{"valid", func(*sample) {}, "", ""},
		{"missing name", func(s *sample) { s.Name = "" }, "name", "name is required"},
		{"short name", func(s *sample) { s.Name = "ab" }, "name", "name must be at least 3 characters"},
		{"long name", func(s *sample) { s.Name = "abcdefghi" }, "name", "name must be at most 8 characters"},
		{"unknown channel", func(s *sample) { s.Channel = "sports" }, "channel", "channel must be a known channel"},
		{"unknown channel in list", func(s *sample) { s.Channels = []string{"news/macro", "sports"} }, "channels", "channels must list known channels"},
		{"bad priority", func(s *sample) { s.Priority = "urgent" }, "priority", "priority must be one of low, medium, high, critical"},
		{"lower-case symbol", func(s *sample) { s.Tickers = []string{"BTC", "eth"} }, "tickers[1]", "tickers[1] must be an upper-case symbol"},
		{"too many symbols", func(s *sample) { s.Tickers = []string{"A", "B", "C"} }, "tickers", "tickers must be at most 2 items"},
		{"score range", func(s *sample) { s.Score = 11 }, "score", "score must be less than or equal to 10"},
		{"non-http url", func(s *sample) { s.Link = "ftp://example.com" }, "link", "link must be a valid http(s) URL"},
		{"untagged json name", func(s *sample) { s.Internal = "c" }, "Internal", "Internal must be one of: a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			verr := ValidateStruct(s)

			if tt.field == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			details := verr.Details()
			if got := details[tt.field]; got != tt.message {
				t.Errorf("details[%q] = %v, want %q (all: %v)", tt.field, got, tt.message, details)
			}
		})
	}
}

func TestRequestValidationErrorFormatting(t *testing.T) {
	s := valid()
	s.Name = ""
	s.Score = -1
	verr := ValidateStruct(s)
	if verr == nil {
		t.Fatal("expected errors")
	}
	if n := len(verr.Errors()); n != 2 {
		t.Fatalf("len(Errors()) = %d, want 2", n)
	}
	if !strings.Contains(verr.Error(), "; ") {
		t.Errorf("Error() = %q, want joined messages", verr.Error())
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != CodeValidationFailed || len(apiErr.Details) != 2 {
		t.Errorf("ToAPIError() = %+v", apiErr)
	}

	fe := verr.Errors()[0]
	if fe.Field() == "" || fe.Tag() == "" {
		t.Errorf("field error accessors empty: %+v", fe)
	}
}

func TestEmptyRequestValidationError(t *testing.T) {
	var verr RequestValidationError
	if verr.Error() != "validation failed" {
		t.Errorf("Error() = %q", verr.Error())
	}
	if verr.ToAPIError().Message != "Validation failed" {
		t.Errorf("ToAPIError().Message = %q", verr.ToAPIError().Message)
	}
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package api

import (
	"github.com/tomtom215/newswire/internal/models"
	ws "github.com/tomtom215/newswire/internal/websocket"
)

// CreateSubscriberRequest is the body of POST /subscribers.
type CreateSubscriberRequest struct {
	WalletAddress  string        `json:"walletAddress" validate:"omitempty,max=128"`
	Channels       []string      `json:"channels" validate:"channels"`
	InitialDeposit models.Amount `json:"initialDeposit" validate:"gte=0"`
}

// SubscriberCreated is returned once, with the stream token.
type SubscriberCreated struct {
	Subscriber *models.Subscriber `json:"subscriber"`
	Token      string             `json:"token"`
	ExpiresIn  int64              `json:"expiresIn"`
}

// UpdateChannelsRequest replaces a subscriber's channels.
type UpdateChannelsRequest struct {
	Channels []string `json:"channels" validate:"channels"`
}

// AmountRequest is the body of deposit, withdraw and slash.
type AmountRequest struct {
	Amount models.Amount `json:"amount"`
}

// SetStatusRequest is the body of POST /admin/publishers/{id}/status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active suspended banned"`
}

// IngestRequest is the body of POST /admin/ingest.
type IngestRequest struct {
	Items []*models.RawItem `json:"items" validate:"required,min=1,max=500,dive,required"`
}

// IngestResponse reports how many items were queued.
type IngestResponse struct {
	Queued int `json:"queued"`
}

// DedupStatusResponse reports whether content would be dropped as a duplicate.
type DedupStatusResponse struct {
	Fingerprint string `json:"fingerprint"`
	Seen        bool   `json:"seen"`
}

// DedupeResponse reports a maintenance pass.
type DedupeResponse struct {
	Removed int64 `json:"removed"`
}

// VerifyResponse is the result of a content hash check.
type VerifyResponse struct {
	AlertID  string `json:"alertId"`
	Hash     string `json:"hash"`
	Verified bool   `json:"verified"`
}

// StatsResponse combines live engine counters and store totals.
type StatsResponse struct {
	Engine   ws.Stats              `json:"engine"`
	Protocol *models.ProtocolStats `json:"protocol"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string            `json:"status"`
	Components  map[string]string `json:"components"`
	Connections int               `json:"connections"`
	Uptime      float64           `json:"uptimeSeconds"`
}

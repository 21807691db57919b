// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package models

import (
	"fmt"
	"time"
)

// Subscriber is a consumer of alerts.
type Subscriber struct {
	ID             string     `json:"id"`
	WalletAddress  string     `json:"walletAddress,omitempty"`
	Channels       ChannelSet `json:"channels"`
	Balance        Amount     `json:"balance"`
	AlertsReceived int64      `json:"alertsReceived"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// PublisherStatus is the lifecycle state of a publisher.
type PublisherStatus string

const (
	PublisherPending   PublisherStatus = "pending"
	PublisherActive    PublisherStatus = "active"
	PublisherSuspended PublisherStatus = "suspended"
	PublisherBanned    PublisherStatus = "banned"
)

// ParsePublisherStatus validates a status name.
func ParsePublisherStatus(s string) (PublisherStatus, error) {
	switch st := PublisherStatus(s); st {
	case PublisherPending, PublisherActive, PublisherSuspended, PublisherBanned:
		return st, nil
	default:
		return "", fmt.Errorf("unknown publisher status %q", s)
	}
}

// Reputation bounds.
const (
	MinReputation     = 0.0
	MaxReputation     = 100.0
	InitialReputation = 50.0
)

// Publisher is a producer of alerts.
type Publisher struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	CredentialHash   string          `json:"-"`
	CredentialPrefix string          `json:"credentialPrefix"`
	Channels         ChannelSet      `json:"channels"`
	Status           PublisherStatus `json:"status"`
	Reputation       float64         `json:"reputation"`
	AlertsPublished  int64           `json:"alertsPublished"`
	AlertsConsumed   int64           `json:"alertsConsumed"`
	Stake            Amount          `json:"stake"`
	Earnings         Amount          `json:"earnings"`
	MetadataURI      string          `json:"metadataUri,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// CanPublish reports whether the publisher's status admits submissions.
func (p *Publisher) CanPublish() bool {
	return p.Status == PublisherActive
}

// Permits reports whether the publisher may publish into ch.
func (p *Publisher) Permits(ch Channel) bool {
	return p.Channels.Contains(ch)
}

// ClampReputation bounds r to [MinReputation, MaxReputation].
func ClampReputation(r float64) float64 {
	switch {
	case r < MinReputation:
		return MinReputation
	case r > MaxReputation:
		return MaxReputation
	default:
		return r
	}
}

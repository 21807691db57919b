// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package models

import (
	"fmt"
	"strings"
	"time"
)

// Priority ranks how urgent an alert is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority parses a priority name. An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// Rank orders priorities from 0 (low) to 3 (critical).
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 1
	}
}

// Sentiment is the market direction implied by an alert.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
	SentimentMixed   Sentiment = "mixed"
)

// Source types recorded on alerts.
const (
	SourceTypeAgent = "agent"
	SourceTypeFeed  = "feed"
)

// Field bounds shared by intake validation and the stores.
const (
	MaxHeadlineLength = 200
	MinHeadlineLength = 10
	MaxSummaryLength  = 1000
	MinSummaryLength  = 20
	MaxImpactScore    = 10.0
)

// Alert is the canonical, immutable unit of distribution.
type Alert struct {
	AlertID     string    `json:"alertId"`
	Channel     Channel   `json:"channel"`
	Priority    Priority  `json:"priority"`
	Sentiment   Sentiment `json:"sentiment,omitempty"`
	ImpactScore *float64  `json:"impactScore,omitempty"`

	Headline   string   `json:"headline"`
	Summary    string   `json:"summary"`
	Entities   []string `json:"entities"`
	Tickers    []string `json:"tickers"`
	Tokens     []string `json:"tokens"`
	SourceURL  string   `json:"sourceUrl"`
	SourceType string   `json:"sourceType"`

	PublisherID   string `json:"publisherId,omitempty"`
	PublisherName string `json:"publisherName,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Fingerprint is the dedup key derived from (headline, channel).
	Fingerprint string `json:"fingerprint"`
	// ContentHash covers the full content and backs alert verification.
	ContentHash string `json:"contentHash"`
}

// IsAgentSubmitted reports whether the alert came through publisher intake.
func (a *Alert) IsAgentSubmitted() bool {
	return a.PublisherID != ""
}

// RawItem is an opaque record delivered by a source adapter.
type RawItem struct {
	// ID is the adapter's own identifier, if any. Not used for dedup.
	ID          string            `json:"id,omitempty"`
	Source      string            `json:"source" validate:"required,max=64"`
	Title       string            `json:"title" validate:"required"`
	Summary     string            `json:"summary"`
	Link        string            `json:"link"`
	PublishedAt time.Time         `json:"publishedAt"`
	Channel     Channel           `json:"channel,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// DeliveryReceipt records one charged delivery.
type DeliveryReceipt struct {
	ID             string    `json:"id"`
	SubscriberID   string    `json:"subscriberId"`
	AlertID        string    `json:"alertId"`
	ContentHash    string    `json:"contentHash"`
	Amount         Amount    `json:"amount"`
	TreasuryFee    Amount    `json:"treasuryFee"`
	PublisherID    string    `json:"publisherId,omitempty"`
	PublisherShare Amount    `json:"publisherShare"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProtocolStats aggregates store-wide totals.
type ProtocolStats struct {
	TotalSubscribers  int64  `json:"totalSubscribers"`
	ActiveSubscribers int64  `json:"activeSubscribers"`
	TotalPublishers   int64  `json:"totalPublishers"`
	TotalAlerts       int64  `json:"totalAlerts"`
	TotalDelivered    int64  `json:"totalDelivered"`
	TotalRevenue      Amount `json:"totalRevenue"`
	TreasuryRevenue   Amount `json:"treasuryRevenue"`
}

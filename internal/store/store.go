// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package store defines the persistence contracts shared by the ingestion,
// intake and distribution components, plus an in-memory implementation.
//
// The DuckDB implementation lives in internal/database. Both satisfy Store and
// are exercised by the same contract tests.
package store

import (
	"context"
	"errors"

	"github.com/tomtom215/newswire/internal/models"
)

// Sentinel errors returned by every Store implementation.
var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("duplicate")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInactive            = errors.New("subscriber inactive")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
)

// AlertQuery filters recent alert lookups.
type AlertQuery struct {
	// Limit bounds the number of rows; zero means the store default.
	Limit int
	// Channels restricts results when non-empty.
	Channels models.ChannelSet
}

// AlertStore is the append-only alert collection.
type AlertStore interface {
	// InsertAlert persists a new alert. A conflict on (headline, channel)
	// returns ErrDuplicate.
	InsertAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	// RecentAlerts returns alerts most-recent-first.
	RecentAlerts(ctx context.Context, q AlertQuery) ([]*models.Alert, error)
	CountAlerts(ctx context.Context) (int64, error)
	// DedupeAlerts removes historical duplicates that share a normalized
	// fingerprint, keeping the most recent per key. Returns rows removed.
	DedupeAlerts(ctx context.Context) (int64, error)
}

// SubscriberStore is the registry of subscribers and their balances.
type SubscriberStore interface {
	CreateSubscriber(ctx context.Context, sub *models.Subscriber) error
	GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
	// Charge atomically deducts amount iff the subscriber is active and the
	// balance covers it, counting the delivery in alertsReceived. A false
	// result with nil error is a declined charge (insufficient balance).
	Charge(ctx context.Context, id string, amount models.Amount) (bool, error)
	// Refund reverses one successful Charge: the amount is credited back and
	// the delivery uncounted. It applies whether or not the subscriber is
	// still active.
	Refund(ctx context.Context, id string, amount models.Amount) error
	// IncrementAlertsReceived is a silent no-op for unknown ids.
	IncrementAlertsReceived(ctx context.Context, id string) error
	// UpdateChannels replaces the channel set. Silent no-op for unknown ids.
	UpdateChannels(ctx context.Context, id string, channels models.ChannelSet) error
	Deposit(ctx context.Context, id string, amount models.Amount) (*models.Subscriber, error)
	Withdraw(ctx context.Context, id string, amount models.Amount) (*models.Subscriber, error)
	SetSubscriberActive(ctx context.Context, id string, active bool) (*models.Subscriber, error)
}

// PublisherStore is the registry of alert publishers.
type PublisherStore interface {
	CreatePublisher(ctx context.Context, pub *models.Publisher) error
	GetPublisher(ctx context.Context, id string) (*models.Publisher, error)
	// PublishersByPrefix returns candidates for credential verification.
	PublishersByPrefix(ctx context.Context, prefix string) ([]*models.Publisher, error)
	// UpdatePublisher applies fn to the current record under the store's lock
	// (or transaction) and persists the result.
	UpdatePublisher(ctx context.Context, id string, fn func(*models.Publisher) error) (*models.Publisher, error)
	IncrementAlertsPublished(ctx context.Context, id string) error
}

// ReceiptStore records charged deliveries.
type ReceiptStore interface {
	RecordReceipt(ctx context.Context, receipt *models.DeliveryReceipt) error
	ReceiptsForSubscriber(ctx context.Context, subscriberID string, limit int) ([]*models.DeliveryReceipt, error)
	Stats(ctx context.Context) (*models.ProtocolStats, error)
}

// Store is the full persistence surface.
type Store interface {
	AlertStore
	SubscriberStore
	PublisherStore
	ReceiptStore
	Close() error
}

// DefaultRecentLimit is used when AlertQuery.Limit is zero.
const DefaultRecentLimit = 100

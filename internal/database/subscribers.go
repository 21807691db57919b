// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
)

var subscriberColumns = []string{
	"id", "wallet_address", "channels", "balance", "alerts_received",
	"active", "created_at", "updated_at",
}

// CreateSubscriber implements store.SubscriberStore.
func (db *DB) CreateSubscriber(ctx context.Context, sub *models.Subscriber) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	created := sub.CreatedAt
	if created.IsZero() {
		created = db.now()
	}
	query, args, err := db.sb.Insert("subscribers").
		Columns(subscriberColumns...).
		Values(sub.ID, nullString(sub.WalletAddress), int64(sub.Channels.Bitmap()),
			int64(sub.Balance), sub.AlertsReceived, sub.Active, created.UTC(), created.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("subscriber %s: %w", sub.ID, store.ErrDuplicate)
		}
		return fmt.Errorf("create subscriber: %w", err)
	}
	return nil
}

func scanSubscriber(row interface{ Scan(...any) error }) (*models.Subscriber, error) {
	var (
		s        models.Subscriber
		wallet   sql.NullString
		channels int64
		balance  int64
	)
	if err := row.Scan(&s.ID, &wallet, &channels, &balance, &s.AlertsReceived,
		&s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.WalletAddress = wallet.String
	s.Channels = models.FromBitmap(uint32(channels))
	s.Balance = models.Amount(balance)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// GetSubscriber implements store.SubscriberStore.
func (db *DB) GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.getSubscriber(ctx, id)
}

func (db *DB) getSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	query, args, err := db.sb.Select(subscriberColumns...).From("subscribers").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSubscriber(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber %s: %w", id, err)
	}
	return s, nil
}

// execAffected runs a write under conflict retry and reports rows affected.
func (db *DB) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := db.withConflictRetry(ctx, func() error {
		res, err := db.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Charge implements store.SubscriberStore. The guarded UPDATE is the atomic
// check-and-deduct; the follow-up read only classifies a declined charge.
func (db *DB) Charge(ctx context.Context, id string, amount models.Amount) (bool, error) {
	if amount <= 0 {
		return false, store.ErrInvalidAmount
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("subscribers", id)
	defer unlock()

	n, err := db.execAffected(ctx, `
		UPDATE subscribers
		SET balance = balance - ?, alerts_received = alerts_received + 1, updated_at = ?
		WHERE id = ? AND active AND balance >= ?`,
		int64(amount), db.now(), id, int64(amount))
	if err != nil {
		return false, fmt.Errorf("charge subscriber %s: %w", id, err)
	}
	if n == 1 {
		return true, nil
	}

	sub, err := db.getSubscriber(ctx, id)
	if err != nil {
		return false, err
	}
	if !sub.Active {
		return false, store.ErrInactive
	}
	return false, nil
}

// Refund implements store.SubscriberStore.
func (db *DB) Refund(ctx context.Context, id string, amount models.Amount) error {
	if amount <= 0 {
		return store.ErrInvalidAmount
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("subscribers", id)
	defer unlock()

	n, err := db.execAffected(ctx, `
		UPDATE subscribers
		SET balance = balance + ?, alerts_received = GREATEST(alerts_received - 1, 0), updated_at = ?
		WHERE id = ?`,
		int64(amount), db.now(), id)
	if err != nil {
		return fmt.Errorf("refund subscriber %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IncrementAlertsReceived implements store.SubscriberStore.
func (db *DB) IncrementAlertsReceived(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("subscribers", id)
	defer unlock()

	_, err := db.execAffected(ctx,
		`UPDATE subscribers SET alerts_received = alerts_received + 1, updated_at = ? WHERE id = ?`,
		db.now(), id)
	if err != nil {
		return fmt.Errorf("increment alerts received: %w", err)
	}
	return nil
}

// UpdateChannels implements store.SubscriberStore.
func (db *DB) UpdateChannels(ctx context.Context, id string, channels models.ChannelSet) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("subscribers", id)
	defer unlock()

	_, err := db.execAffected(ctx,
		`UPDATE subscribers SET channels = ?, updated_at = ? WHERE id = ?`,
		int64(channels.Bitmap()), db.now(), id)
	if err != nil {
		return fmt.Errorf("update channels: %w", err)
	}
	return nil
}

// Deposit implements store.SubscriberStore.
func (db *DB) Deposit(ctx context.Context, id string, amount models.Amount) (*models.Subscriber, error) {
	if amount <= 0 {
		return nil, store.ErrInvalidAmount
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("subscribers", id)
	defer unlock()

	n, err := db.execAffected(ctx,
		`UPDATE subscribers SET balance = balance + ?, updated_at = ? WHERE id = ?`,
		int64(amount), db.now(), id)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return db.getSubscriber(ctx, id)
}

// Withdraw implements store.SubscriberStore.
func (db *DB) Withdraw(ctx context.Context, id string, amount models.Amount) (*models.Subscriber, error) {
	if amount <= 0 {
		return nil, store.ErrInvalidAmount
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("subscribers", id)
	defer unlock()

	n, err := db.execAffected(ctx,
		`UPDATE subscribers SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance >= ?`,
		int64(amount), db.now(), id, int64(amount))
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if n == 0 {
		if _, err := db.getSubscriber(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrInsufficientBalance
	}
	return db.getSubscriber(ctx, id)
}

// SetSubscriberActive implements store.SubscriberStore.
func (db *DB) SetSubscriberActive(ctx context.Context, id string, active bool) (*models.Subscriber, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("subscribers", id)
	defer unlock()

	n, err := db.execAffected(ctx,
		`UPDATE subscribers SET active = ?, updated_at = ? WHERE id = ?`,
		active, db.now(), id)
	if err != nil {
		return nil, fmt.Errorf("set subscriber active: %w", err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return db.getSubscriber(ctx, id)
}

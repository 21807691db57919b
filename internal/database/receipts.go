// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
)

// RecordReceipt implements store.ReceiptStore.
func (db *DB) RecordReceipt(ctx context.Context, r *models.DeliveryReceipt) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ts := r.Timestamp
	if ts.IsZero() {
		ts = db.now()
	}
	query, args, err := db.sb.Insert("delivery_receipts").
		Columns("id", "subscriber_id", "alert_id", "content_hash", "amount",
			"treasury_fee", "publisher_id", "publisher_share", "created_at").
		Values(r.ID, r.SubscriberID, r.AlertID, r.ContentHash, int64(r.Amount),
			int64(r.TreasuryFee), nullString(r.PublisherID), int64(r.PublisherShare), ts.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("record receipt: %w", err)
	}
	return nil
}

// ReceiptsForSubscriber implements store.ReceiptStore.
func (db *DB) ReceiptsForSubscriber(ctx context.Context, subscriberID string, limit int) ([]*models.DeliveryReceipt, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = store.DefaultRecentLimit
	}
	query, args, err := db.sb.
		Select("id", "subscriber_id", "alert_id", "content_hash", "amount",
			"treasury_fee", "publisher_id", "publisher_share", "created_at").
		From("delivery_receipts").
		Where(sq.Eq{"subscriber_id": subscriberID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.DeliveryReceipt
	for rows.Next() {
		var (
			r                  models.DeliveryReceipt
			amount, fee, share int64
			publisherID        sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SubscriberID, &r.AlertID, &r.ContentHash,
			&amount, &fee, &publisherID, &share, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		r.Amount = models.Amount(amount)
		r.TreasuryFee = models.Amount(fee)
		r.PublisherShare = models.Amount(share)
		r.PublisherID = publisherID.String
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Stats implements store.ReceiptStore.
func (db *DB) Stats(ctx context.Context) (*models.ProtocolStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var s models.ProtocolStats
	var revenue, treasury int64
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM subscribers),
			(SELECT COUNT(*) FROM subscribers WHERE active),
			(SELECT CAST(COALESCE(SUM(alerts_received), 0) AS BIGINT) FROM subscribers),
			(SELECT COUNT(*) FROM publishers),
			(SELECT COUNT(*) FROM alerts),
			(SELECT CAST(COALESCE(SUM(amount), 0) AS BIGINT) FROM delivery_receipts),
			(SELECT CAST(COALESCE(SUM(treasury_fee), 0) AS BIGINT) FROM delivery_receipts)`).
		Scan(&s.TotalSubscribers, &s.ActiveSubscribers, &s.TotalDelivered,
			&s.TotalPublishers, &s.TotalAlerts, &revenue, &treasury)
	if err != nil {
		return nil, fmt.Errorf("protocol stats: %w", err)
	}
	s.TotalRevenue = models.Amount(revenue)
	s.TreasuryRevenue = models.Amount(treasury)
	return &s, nil
}

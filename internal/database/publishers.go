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

var publisherColumns = []string{
	"id", "name", "credential_hash", "credential_prefix", "channels", "status",
	"reputation", "alerts_published", "alerts_consumed", "stake", "earnings",
	"metadata_uri", "created_at", "updated_at",
}

// CreatePublisher implements store.PublisherStore.
func (db *DB) CreatePublisher(ctx context.Context, pub *models.Publisher) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	created := pub.CreatedAt
	if created.IsZero() {
		created = db.now()
	}
	query, args, err := db.sb.Insert("publishers").
		Columns(publisherColumns...).
		Values(pub.ID, pub.Name, pub.CredentialHash, pub.CredentialPrefix,
			int64(pub.Channels.Bitmap()), string(pub.Status), pub.Reputation,
			pub.AlertsPublished, pub.AlertsConsumed, int64(pub.Stake), int64(pub.Earnings),
			nullString(pub.MetadataURI), created.UTC(), created.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("publisher %s: %w", pub.Name, store.ErrDuplicate)
		}
		return fmt.Errorf("create publisher: %w", err)
	}
	return nil
}

func scanPublisher(row interface{ Scan(...any) error }) (*models.Publisher, error) {
	var (
		p               models.Publisher
		channels        int64
		status          string
		stake, earnings int64
		metadataURI     sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.CredentialHash, &p.CredentialPrefix,
		&channels, &status, &p.Reputation, &p.AlertsPublished, &p.AlertsConsumed,
		&stake, &earnings, &metadataURI, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Channels = models.FromBitmap(uint32(channels))
	p.Status = models.PublisherStatus(status)
	p.Stake = models.Amount(stake)
	p.Earnings = models.Amount(earnings)
	p.MetadataURI = metadataURI.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// GetPublisher implements store.PublisherStore.
func (db *DB) GetPublisher(ctx context.Context, id string) (*models.Publisher, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.getPublisher(ctx, id)
}

func (db *DB) getPublisher(ctx context.Context, id string) (*models.Publisher, error) {
	query, args, err := db.sb.Select(publisherColumns...).From("publishers").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPublisher(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get publisher %s: %w", id, err)
	}
	return p, nil
}

// PublishersByPrefix implements store.PublisherStore.
func (db *DB) PublishersByPrefix(ctx context.Context, prefix string) ([]*models.Publisher, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args, err := db.sb.Select(publisherColumns...).From("publishers").
		Where(sq.Eq{"credential_prefix": prefix}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query publishers by prefix: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.Publisher
	for rows.Next() {
		p, err := scanPublisher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publisher: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePublisher implements store.PublisherStore. Identity columns (id,
// name, credential) are not rewritten.
func (db *DB) UpdatePublisher(ctx context.Context, id string, fn func(*models.Publisher) error) (*models.Publisher, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("publishers", id)
	defer unlock()

	current, err := db.getPublisher(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *current
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.UpdatedAt = db.now()

	query, args, err := db.sb.Update("publishers").SetMap(map[string]any{
		"channels":         int64(next.Channels.Bitmap()),
		"status":           string(next.Status),
		"reputation":       next.Reputation,
		"alerts_published": next.AlertsPublished,
		"alerts_consumed":  next.AlertsConsumed,
		"stake":            int64(next.Stake),
		"earnings":         int64(next.Earnings),
		"metadata_uri":     nullString(next.MetadataURI),
		"updated_at":       next.UpdatedAt,
	}).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := db.execAffected(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update publisher %s: %w", id, err)
	}
	return &next, nil
}

// IncrementAlertsPublished implements store.PublisherStore.
func (db *DB) IncrementAlertsPublished(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	unlock := db.lockRow("publishers", id)
	defer unlock()

	n, err := db.execAffected(ctx,
		`UPDATE publishers SET alerts_published = alerts_published + 1, updated_at = ? WHERE id = ?`,
		db.now(), id)
	if err != nil {
		return fmt.Errorf("increment alerts published: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

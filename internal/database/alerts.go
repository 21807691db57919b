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
	"github.com/goccy/go-json"

	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
)

var alertColumns = []string{
	"alert_id", "channel", "priority", "sentiment", "impact_score",
	"headline", "summary", "entities", "tickers", "tokens",
	"source_url", "source_type", "publisher_id", "publisher_name",
	"fingerprint", "content_hash", "created_at",
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertAlert implements store.AlertStore.
func (db *DB) InsertAlert(ctx context.Context, alert *models.Alert) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	entities, err := encodeList(alert.Entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	tickers, err := encodeList(alert.Tickers)
	if err != nil {
		return fmt.Errorf("encode tickers: %w", err)
	}
	tokens, err := encodeList(alert.Tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	var impact sql.NullFloat64
	if alert.ImpactScore != nil {
		impact = sql.NullFloat64{Float64: *alert.ImpactScore, Valid: true}
	}

	query, args, err := db.sb.Insert("alerts").
		Columns(alertColumns...).
		Values(
			alert.AlertID, string(alert.Channel), string(alert.Priority),
			nullString(string(alert.Sentiment)), impact,
			alert.Headline, alert.Summary, entities, tickers, tokens,
			alert.SourceURL, alert.SourceType,
			nullString(alert.PublisherID), nullString(alert.PublisherName),
			alert.Fingerprint, alert.ContentHash, alert.Timestamp.UTC(),
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func scanAlert(row interface{ Scan(...any) error }) (*models.Alert, error) {
	var (
		a                         models.Alert
		channel, priority         string
		sentiment                 sql.NullString
		impact                    sql.NullFloat64
		entities, tickers, tokens string
		publisherID, publisherNm  sql.NullString
	)
	if err := row.Scan(
		&a.AlertID, &channel, &priority, &sentiment, &impact,
		&a.Headline, &a.Summary, &entities, &tickers, &tokens,
		&a.SourceURL, &a.SourceType, &publisherID, &publisherNm,
		&a.Fingerprint, &a.ContentHash, &a.Timestamp,
	); err != nil {
		return nil, err
	}
	a.Channel = models.Channel(channel)
	a.Priority = models.Priority(priority)
	a.Sentiment = models.Sentiment(sentiment.String)
	if impact.Valid {
		score := impact.Float64
		a.ImpactScore = &score
	}
	a.PublisherID = publisherID.String
	a.PublisherName = publisherNm.String
	a.Timestamp = a.Timestamp.UTC()

	var err error
	if a.Entities, err = decodeList(entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	if a.Tickers, err = decodeList(tickers); err != nil {
		return nil, fmt.Errorf("decode tickers: %w", err)
	}
	if a.Tokens, err = decodeList(tokens); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	return &a, nil
}

// GetAlert implements store.AlertStore.
func (db *DB) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query, args, err := db.sb.Select(alertColumns...).From("alerts").Where(sq.Eq{"alert_id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAlert(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert %s: %w", id, err)
	}
	return a, nil
}

// RecentAlerts implements store.AlertStore.
func (db *DB) RecentAlerts(ctx context.Context, q store.AlertQuery) ([]*models.Alert, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultRecentLimit
	}

	builder := db.sb.Select(alertColumns...).From("alerts")
	if !q.Channels.IsEmpty() {
		builder = builder.Where(sq.Eq{"channel": q.Channels.Strings()})
	}
	query, args, err := builder.
		OrderBy("created_at DESC", "seq DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent alerts query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent alerts: %w", err)
	}
	defer closeQuietly(rows)

	out := make([]*models.Alert, 0, limit)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAlerts implements store.AlertStore.
func (db *DB) CountAlerts(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

// DedupeAlerts implements store.AlertStore. Rows sharing a fingerprint
// (or, lacking one, the raw headline and channel) collapse to the newest.
func (db *DB) DedupeAlerts(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const stmt = `
		DELETE FROM alerts WHERE alert_id IN (
			SELECT alert_id FROM (
				SELECT alert_id, ROW_NUMBER() OVER (
					PARTITION BY COALESCE(NULLIF(fingerprint, ''), headline || chr(0) || channel)
					ORDER BY created_at DESC, seq DESC
				) AS rn
				FROM alerts
			) ranked WHERE rn > 1
		)`

	var removed int64
	err := db.withConflictRetry(ctx, func() error {
		res, err := db.conn.ExecContext(ctx, stmt)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("dedupe alerts: %w", err)
	}
	return removed, nil
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS alert_seq START 1`,

	`CREATE TABLE IF NOT EXISTS alerts (
		alert_id       VARCHAR PRIMARY KEY,
		seq            BIGINT NOT NULL DEFAULT nextval('alert_seq'),
		channel        VARCHAR NOT NULL,
		priority       VARCHAR NOT NULL,
		sentiment      VARCHAR,
		impact_score   DOUBLE,
		headline       VARCHAR NOT NULL,
		summary        VARCHAR NOT NULL,
		entities       VARCHAR NOT NULL,
		tickers        VARCHAR NOT NULL,
		tokens         VARCHAR NOT NULL,
		source_url     VARCHAR NOT NULL,
		source_type    VARCHAR NOT NULL,
		publisher_id   VARCHAR,
		publisher_name VARCHAR,
		fingerprint    VARCHAR NOT NULL,
		content_hash   VARCHAR NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		UNIQUE (headline, channel)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_fingerprint ON alerts (fingerprint)`,

	`CREATE TABLE IF NOT EXISTS subscribers (
		id              VARCHAR PRIMARY KEY,
		wallet_address  VARCHAR UNIQUE,
		channels        BIGINT NOT NULL,
		balance         BIGINT NOT NULL DEFAULT 0,
		alerts_received BIGINT NOT NULL DEFAULT 0,
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		created_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS publishers (
		id                VARCHAR PRIMARY KEY,
		name              VARCHAR NOT NULL UNIQUE,
		credential_hash   VARCHAR NOT NULL,
		credential_prefix VARCHAR NOT NULL,
		channels          BIGINT NOT NULL,
		status            VARCHAR NOT NULL,
		reputation        DOUBLE NOT NULL,
		alerts_published  BIGINT NOT NULL DEFAULT 0,
		alerts_consumed   BIGINT NOT NULL DEFAULT 0,
		stake             BIGINT NOT NULL DEFAULT 0,
		earnings          BIGINT NOT NULL DEFAULT 0,
		metadata_uri      VARCHAR,
		created_at        TIMESTAMP NOT NULL,
		updated_at        TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_publishers_prefix ON publishers (credential_prefix)`,

	`CREATE TABLE IF NOT EXISTS delivery_receipts (
		id              VARCHAR PRIMARY KEY,
		subscriber_id   VARCHAR NOT NULL,
		alert_id        VARCHAR NOT NULL,
		content_hash    VARCHAR NOT NULL,
		amount          BIGINT NOT NULL,
		treasury_fee    BIGINT NOT NULL,
		publisher_id    VARCHAR,
		publisher_share BIGINT NOT NULL DEFAULT 0,
		created_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_receipts_subscriber ON delivery_receipts (subscriber_id, created_at)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

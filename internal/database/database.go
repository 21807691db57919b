// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package database implements store.Store on DuckDB.
//
// Alerts, subscribers, publishers and delivery receipts live in plain tables.
// The (headline, channel) uniqueness constraint is enforced by the schema and
// surfaces as store.ErrDuplicate. Balance mutations are single guarded UPDATE
// statements serialized per subscriber so concurrent charges never observe a
// DuckDB write-write conflict.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cespare/xxhash/v2"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/store"
)

// Compile-time interface verification
var _ store.Store = (*DB)(nil)

const (
	defaultQueryTimeout = 30 * time.Second
	maxConflictRetries  = 5
)

// DB wraps the DuckDB connection and implements store.Store.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
	sb   sq.StatementBuilderType

	// Striped write locks for balance and publisher read-modify-write paths.
	// Rows sharing a stripe serialize; no caller holds two at once.
	rowLocks [rowLockStripes]sync.Mutex

	now func() time.Time
}

// New opens (or creates) the database at cfg.Path and applies the schema.
// Path ":memory:" yields a private in-memory database.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	path := cfg.Path
	if path != ":memory:" && path != "" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	} else {
		path = ""
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{
		conn: conn,
		cfg:  cfg,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now:  func() time.Time { return time.Now().UTC() },
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()
	if err := db.createSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Msg("DuckDB store ready")

	return db, nil
}

// Conn returns the underlying SQL connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the connection is usable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Close checkpoints and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return db.conn.Close()
}

// ensureContext applies the default timeout when ctx carries no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

// rowLockStripes bounds lock memory regardless of how many rows are touched.
const rowLockStripes = 64

func rowStripe(table, id string) int {
	d := xxhash.New()
	_, _ = d.WriteString(table)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(id)
	return int(d.Sum64() % rowLockStripes)
}

// lockRow serializes writers for one logical row. The returned func unlocks.
func (db *DB) lockRow(table, id string) func() {
	mu := &db.rowLocks[rowStripe(table, id)]
	mu.Lock()
	return mu.Unlock
}

// withConflictRetry retries fn while DuckDB reports an optimistic
// concurrency conflict.
func (db *DB) withConflictRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = fn()
		if !isTransactionConflict(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return err
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update")
}

// isConstraintViolation checks for PRIMARY KEY / UNIQUE violations.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Constraint Error") ||
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "violates primary key constraint") ||
		strings.Contains(msg, "Duplicate key")
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

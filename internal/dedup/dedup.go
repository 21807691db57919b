// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package dedup decides whether a raw item has already been turned into an
// alert. Fingerprints are checked against an in-memory LRU seen-set first,
// then against an optional persistent store that survives restarts.
//
// The store's (headline, channel) uniqueness constraint remains the second
// line of defense; a miss here only costs one rejected insert.
package dedup

import (
	"context"
	"time"

	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/logging"
)

// Persistent is a durable fingerprint store.
type Persistent interface {
	CheckAndRecord(ctx context.Context, fp, source string) (bool, error)
	Seen(ctx context.Context, fp string) (bool, error)
	Forget(ctx context.Context, fp string) error
	Close() error
}

// Deduplicator is safe for concurrent use.
type Deduplicator struct {
	seen    *seenSet
	persist Persistent
}

// New builds a Deduplicator. persist may be nil.
func New(capacity int, ttl time.Duration, persist Persistent) *Deduplicator {
	return &Deduplicator{seen: newSeenSet(capacity, ttl), persist: persist}
}

// NewFromConfig opens the persistent store when cfg.PersistentPath is set.
func NewFromConfig(cfg *config.DedupConfig) (*Deduplicator, error) {
	var persist Persistent
	if cfg.PersistentPath != "" {
		b, err := OpenBadger(cfg.PersistentPath, cfg.TTL)
		if err != nil {
			return nil, err
		}
		persist = b
	}
	return New(cfg.Capacity, cfg.TTL, persist), nil
}

// Seen reports whether fp has been recorded. It never records.
func (d *Deduplicator) Seen(ctx context.Context, fp string) bool {
	if d.seen.contains(fp) {
		return true
	}
	if d.persist == nil {
		return false
	}
	ok, err := d.persist.Seen(ctx, fp)
	if err != nil {
		logging.Warn().Err(err).Str("fingerprint", fp).Msg("Persistent dedup lookup failed")
		return false
	}
	if ok {
		d.seen.add(fp)
	}
	return ok
}

// Check records fp on first sighting, with the originating source, and
// reports whether it was a duplicate. A persistent-store error is returned
// after the in-memory record is rolled back, so the item can be retried.
func (d *Deduplicator) Check(ctx context.Context, fp, source string) (bool, error) {
	if d.seen.checkAndAdd(fp) {
		return true, nil
	}
	if d.persist == nil {
		return false, nil
	}
	dup, err := d.persist.CheckAndRecord(ctx, fp, source)
	if err != nil {
		d.seen.remove(fp)
		return false, err
	}
	return dup, nil
}

// Forget drops fp so a later sighting is treated as new. Used when the
// build after a successful Check fails for a transient reason.
func (d *Deduplicator) Forget(ctx context.Context, fp string) {
	d.seen.remove(fp)
	if d.persist == nil {
		return
	}
	if err := d.persist.Forget(ctx, fp); err != nil {
		logging.Warn().Err(err).Str("fingerprint", fp).Msg("Failed to forget fingerprint")
	}
}

// Len is the number of fingerprints held in memory.
func (d *Deduplicator) Len() int {
	return d.seen.len()
}

// Persistent returns the durable store, or nil.
func (d *Deduplicator) Persistent() Persistent {
	return d.persist
}

// Close closes the persistent store, if any.
func (d *Deduplicator) Close() error {
	if d.persist == nil {
		return nil
	}
	return d.persist.Close()
}

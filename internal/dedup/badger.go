// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/tomtom215/newswire/internal/logging"
)

const (
	keyPrefix        = "fp:"
	maxConflictRetry = 3
)

var (
	recordEnc cbor.EncMode
	recordDec cbor.DecMode
)

func init() {
	var err error
	recordEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dedup: cbor encode mode: %v", err))
	}
	recordDec, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		MaxMapPairs: 64,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("dedup: cbor decode mode: %v", err))
	}
}

// Record is the persisted state of one fingerprint.
type Record struct {
	FirstSeen int64  `cbor:"1,keyasint"`
	ExpiresAt int64  `cbor:"2,keyasint"`
	Source    string `cbor:"3,keyasint,omitempty"`
}

// BadgerStore persists fingerprints across restarts so a restarted ingester
// does not re-emit alerts it already built.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

// OpenBadger opens a store at path. ":memory:" opens an in-memory instance.
func OpenBadger(path string, ttl time.Duration) (*BadgerStore, error) {
	var opts badger.Options
	if path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger dedup store: %w", err)
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &BadgerStore{db: db, ttl: ttl, now: time.Now}, nil
}

// CheckAndRecord reports whether fp was already recorded and live. When it
// was not, it is recorded in the same transaction.
func (b *BadgerStore) CheckAndRecord(ctx context.Context, fp, source string) (bool, error) {
	var dup bool
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		err := b.db.Update(func(txn *badger.Txn) error {
			dup = false
			key := []byte(keyPrefix + fp)
			now := b.now()

			item, err := txn.Get(key)
			if err == nil {
				var rec Record
				if verr := item.Value(func(val []byte) error {
					return recordDec.Unmarshal(val, &rec)
				}); verr != nil {
					return fmt.Errorf("decode dedup record: %w", verr)
				}
				if now.UnixNano() < rec.ExpiresAt {
					dup = true
					return nil
				}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			data, err := recordEnc.Marshal(Record{
				FirstSeen: now.UnixNano(),
				ExpiresAt: now.Add(b.ttl).UnixNano(),
				Source:    source,
			})
			if err != nil {
				return fmt.Errorf("encode dedup record: %w", err)
			}
			return txn.SetEntry(badger.NewEntry(key, data).WithTTL(b.ttl))
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetry {
			continue
		}
		if err != nil {
			return false, err
		}
		return dup, nil
	}
}

// Seen reports whether fp is recorded and live without recording it.
func (b *BadgerStore) Seen(_ context.Context, fp string) (bool, error) {
	var seen bool
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + fp))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var rec Record
		if err := item.Value(func(val []byte) error {
			return recordDec.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		seen = b.now().UnixNano() < rec.ExpiresAt
		return nil
	})
	return seen, err
}

// Forget removes fp.
func (b *BadgerStore) Forget(_ context.Context, fp string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + fp))
	})
}

// RunGC reclaims value log space. Having nothing to collect is not an error.
func (b *BadgerStore) RunGC() error {
	err := b.db.RunValueLogGC(0.5)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error {
	if err := b.db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close dedup store")
		return err
	}
	return nil
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package ingest turns raw source items into canonical alerts.

Flow:

	Poller ──raw.items──▶ Pipeline.HandleRawItem
	                          │
	                          ├─ classify.Classifier   (channel, enrichment, scoring)
	                          ├─ dedup.Deduplicator    (fingerprint seen-set)
	                          ├─ Builder               (id, hashes, single insert)
	                          └─ Emitter               (alerts.created)

Publisher intake skips classification and enters at Pipeline.Admit with a
Draft of its own.

Duplicates are reported as store.ErrDuplicate whether the seen-set or the
store's (headline, channel) constraint caught them. Callers treat them as a
normal outcome.
*/
package ingest

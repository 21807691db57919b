// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package websocket is the distribution engine: the live connection registry
and the metered fan-out of created alerts to subscribers.

Key Components:

  - Engine: registry keyed by subscriber id, backfill, fan-out and metering
  - Connection: one socket with its interest snapshot and read/write pumps

Architecture:

	alerts.created ──► Engine.HandleAlert
	                        │ snapshot registry
	            ┌───────────┼───────────┐
	            ▼           ▼           ▼
	       Connection  Connection  Connection   (errgroup, bounded)
	       charge→push charge→push charge→push

Connection Lifecycle:

 1. The API layer upgrades the request and calls Engine.Attach.
 2. Unknown or inactive subscribers get an error frame and are closed.
 3. The connection is registered (replacing any previous connection for the
    same subscriber) and, under its send lock, receives the connected frame
    followed by up to backfill_limit recent matching alerts, most recent
    first, marked backfill and charged 0.
 4. The connection becomes open and takes part in fan-out. Alerts already
    sent as backfill are not delivered again.
 5. The peer may send update_channels at any time; the engine replaces the
    snapshot, persists it and answers subscription_updated.
 6. A failed write, a full send queue or a missed pong closes the
    connection. Close is idempotent and only removes the registry entry if
    it still points at this connection.

Metering:

When the effective price is positive each delivery is charged atomically
through the subscriber store. A declined charge produces a LOW_BALANCE
warning frame and the alert is skipped for that connection only; an
inactive subscriber produces SUBSCRIBER_INACTIVE. Charged deliveries write a
receipt and, for publisher-submitted alerts, credit the publisher's share.
In trial mode deliveries are free and only alertsReceived is counted.

Thread Safety:

  - Registry mutations take Engine.mu; fan-out iterates a sorted snapshot.
  - Each connection's frames are queued under its own send lock, which
    fixes the order welcome, backfill, live.
  - The interest snapshot is an atomic bitmap. In-flight fan-outs use the
    value they already read.
*/
package websocket

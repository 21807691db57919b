// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package main is the entry point for the Newswire server.

Newswire ingests raw items from feeds and publishers and classifies them into
channel alerts. It streams each alert over WebSocket to the subscribers of its
channel and meters every delivery against the subscriber's balance.

# Application Architecture

	Root ("newswire")
	├── "ingestion-layer"
	│   ├── event bus (Watermill router: raw.items, alerts.created)
	│   ├── source poller (when INGEST_FEEDS is set)
	│   └── dedup GC (when DEDUP_PERSISTENT_PATH is set)
	├── "distribution-layer"
	│   ├── distribution engine
	│   └── publisher intake
	└── "api-layer"
	    └── HTTP server (REST, /ws, /metrics, /swagger)

# Configuration

Koanf v2 layers, highest priority first:

	Environment variables > config file (--config or CONFIG_PATH) > defaults

Common environment variables:

	HTTP_PORT=8787
	ENVIRONMENT=production        # requires JWT_SECRET of 32+ chars
	DATABASE_BACKEND=duckdb       # or memory
	DUCKDB_PATH=/data/newswire.duckdb
	BUS_BACKEND=gochannel         # or nats
	NATS_URL=nats://127.0.0.1:4222
	PRICE_PER_ALERT=0.001
	TRIAL_MODE=false
	INGEST_FEEDS=coindesk=https://www.coindesk.com/arc/outboundfeeds/rss/
	JWT_SECRET=<32+ chars>
	REQUIRE_STREAM_AUTH=true
	LOG_LEVEL=info

# Flags

	--config path           config file
	--issue-admin-token id  print an admin token for id and exit

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up to
10s, live WebSocket connections are closed, then the bus, dedup store and
database are closed in reverse order of creation.
*/
package main

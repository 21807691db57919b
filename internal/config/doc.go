// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package config provides centralized configuration management for Newswire.

Configuration is layered with Koanf v2: struct defaults, then an optional
YAML file (CONFIG_PATH, config.yaml, /etc/newswire/config.yaml), then mapped
environment variables. Unmapped environment variables are ignored.

# Sections

  - server: HTTP listener
  - database: store backend (duckdb or memory)
  - dedup: fingerprint seen-set capacity, TTL and optional badger path
  - bus: Watermill backend (gochannel or nats) and router middleware
  - distribution: backfill bounds, send buffer, websocket timeouts
  - pricing: price per alert, trial mode, fee and share basis points
  - ingest: source to channel map, default channel, feeds, poll interval
  - intake: publisher key prefix, stake, reputation policy, rate limit
  - security: JWT secret, token TTL, HTTP rate limiting, CORS
  - logging: level, format, caller

# Example

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
	price, _ := cfg.Pricing.EffectivePrice()

The ingest.sources_file setting points at a standalone YAML document with a
top-level "sources" map. It is merged under entries from the main config.
*/
package config

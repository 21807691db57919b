// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

/*
Package models defines the data structures shared across Newswire.

Key Components:

  - Channel / ChannelSet: closed topic enumeration with stable 32-bit bitmap positions
  - Alert: canonical, immutable distributable event
  - Subscriber: consumer identity, channel interest, balance and delivery counters
  - Publisher: third-party producer with permissions, reputation and stake
  - RawItem: opaque record delivered by source adapters before classification
  - Frames: tagged WebSocket frame variants for both directions

Money is carried as Amount (integer micro-units) and rendered as a decimal
number on the wire:

	price := models.MustParseAmount("0.01") // 10000 micro-units
	frame := models.AlertFrame{Alert: alert, Charged: price}
*/
package models

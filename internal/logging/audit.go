// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package logging

import "github.com/rs/zerolog"

// AuditEvent is a security-relevant action: a credential check, a publisher
// status change, a slash.
type AuditEvent struct {
	Event     string
	Actor     string
	Role      string
	Target    string
	IPAddress string
	Success   bool
	Reason    string
}

// Audit writes e with the audit marker. Failures log at warn.
func Audit(e AuditEvent) {
	var ev *zerolog.Event
	if e.Success {
		ev = Info()
	} else {
		ev = Warn()
	}
	ev = ev.Bool("audit", true).Str("event", e.Event).Bool("success", e.Success)
	if e.Actor != "" {
		ev = ev.Str("actor", e.Actor)
	}
	if e.Role != "" {
		ev = ev.Str("role", e.Role)
	}
	if e.Target != "" {
		ev = ev.Str("target", e.Target)
	}
	if e.IPAddress != "" {
		ev = ev.Str("ip", e.IPAddress)
	}
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	ev.Msg("audit")
}

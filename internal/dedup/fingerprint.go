// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package dedup

import (
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"

	"github.com/tomtom215/newswire/internal/models"
)

// Normalize lowercases s, trims it, and collapses internal whitespace runs
// to a single space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Fingerprint is the stable dedup key for (headline, channel). Headlines
// differing only in case or spacing share a fingerprint.
func Fingerprint(headline string, channel models.Channel) string {
	h := blake3.New()
	_, _ = h.WriteString(string(channel))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(Normalize(headline))
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash covers the delivered content of an alert and backs
// verification. Unlike Fingerprint it is sensitive to every byte.
func ContentHash(channel models.Channel, headline, summary, sourceURL string) string {
	h := blake3.New()
	for i, part := range []string{string(channel), headline, summary, sourceURL} {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.WriteString(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyContent reports whether hash matches the alert's content.
func VerifyContent(a *models.Alert, hash string) bool {
	return strings.EqualFold(ContentHash(a.Channel, a.Headline, a.Summary, a.SourceURL), strings.TrimSpace(hash))
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package intake

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// publisherLimiter holds one token bucket per publisher.
type publisherLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newPublisherLimiter(perSecond float64, burst int) *publisherLimiter {
	return &publisherLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *publisherLimiter) allow(publisherID string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[publisherID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[publisherID] = entry
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// prune drops buckets idle for longer than idle.
func (l *publisherLimiter) prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := time.Now().Add(-idle)
	removed := 0
	for id, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, id)
			removed++
		}
	}
	return removed
}

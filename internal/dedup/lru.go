// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package dedup

import (
	"sync"
	"time"
)

type lruEntry struct {
	key       string
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// seenSet is a bounded LRU of fingerprints with lazy TTL expiry. All
// operations are O(1).
type seenSet struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry
	// head.next is most recent, tail.prev least recent
	head, tail *lruEntry
	now        func() time.Time
}

func newSeenSet(capacity int, ttl time.Duration) *seenSet {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &seenSet{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
		now:      time.Now,
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// contains reports a live entry without touching recency.
func (s *seenSet) contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	if !ok {
		return false
	}
	if s.now().After(e.expiresAt) {
		s.unlink(e)
		return false
	}
	return true
}

// checkAndAdd records key and reports whether it was already live.
func (s *seenSet) checkAndAdd(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.items[key]; ok {
		if !now.After(e.expiresAt) {
			s.moveToFront(e)
			return true
		}
		s.unlink(e)
	}
	s.insert(key, now)
	return false
}

// add records key unconditionally, refreshing its TTL.
func (s *seenSet) add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		e.expiresAt = s.now().Add(s.ttl)
		s.moveToFront(e)
		return
	}
	s.insert(key, s.now())
}

func (s *seenSet) remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		s.unlink(e)
	}
}

func (s *seenSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// insert must be called with mu held.
func (s *seenSet) insert(key string, now time.Time) {
	e := &lruEntry{key: key, expiresAt: now.Add(s.ttl)}
	e.next = s.head.next
	e.prev = s.head
	s.head.next.prev = e
	s.head.next = e
	s.items[key] = e
	for len(s.items) > s.capacity {
		s.unlink(s.tail.prev)
	}
}

func (s *seenSet) moveToFront(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = s.head.next
	e.prev = s.head
	s.head.next.prev = e
	s.head.next = e
}

func (s *seenSet) unlink(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(s.items, e.key)
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package authz

import (
	"sync"
	"time"
)

// Paths carry resource ids, so the cache is bounded.
const defaultCacheEntries = 10000

type decisionCache struct {
	ttl        time.Duration
	maxEntries int

	mu    sync.RWMutex
	items map[string]cachedDecision

	stopCh   chan struct{}
	stopOnce sync.Once
}

type cachedDecision struct {
	allowed   bool
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration, maxEntries int) *decisionCache {
	c := &decisionCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		items:      make(map[string]cachedDecision),
		stopCh:     make(chan struct{}),
	}
	go c.janitor()
	return c
}

func cacheKey(role, path, action string) string {
	return role + "\x00" + path + "\x00" + action
}

func (c *decisionCache) get(role, path, action string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[cacheKey(role, path, action)]
	if !found || time.Now().After(item.expiresAt) {
		return false, false
	}
	return item.allowed, true
}

// set stores a decision. When full, new decisions are not cached until the
// janitor frees room.
func (c *decisionCache) set(role, path, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(role, path, action)
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		return
	}
	c.items[key] = cachedDecision{allowed: allowed, expiresAt: time.Now().Add(c.ttl)}
}

func (c *decisionCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *decisionCache) janitor() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *decisionCache) stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/newswire/internal/models"
)

// Compile-time interface verification
var _ Store = (*Memory)(nil)

// Memory is a mutex-guarded Store used by tests and single-node development
// deployments (database.backend: memory). Records are copied on the way in
// and out so callers never share state with the store.
type Memory struct {
	mu sync.RWMutex

	alerts      []*models.Alert // insertion order
	alertsByID  map[string]*models.Alert
	uniqueKeys  map[string]string // headline\x00channel -> alert id
	subscribers map[string]*models.Subscriber
	wallets     map[string]string // wallet -> subscriber id
	publishers  map[string]*models.Publisher
	names       map[string]string // publisher name -> id
	receipts    []*models.DeliveryReceipt

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		alertsByID:  make(map[string]*models.Alert),
		uniqueKeys:  make(map[string]string),
		subscribers: make(map[string]*models.Subscriber),
		wallets:     make(map[string]string),
		publishers:  make(map[string]*models.Publisher),
		names:       make(map[string]string),
		now:         time.Now,
	}
}

func uniqueKey(headline string, ch models.Channel) string {
	return headline + "\x00" + string(ch)
}

func copyAlert(a *models.Alert) *models.Alert {
	c := *a
	c.Entities = append([]string(nil), a.Entities...)
	c.Tickers = append([]string(nil), a.Tickers...)
	c.Tokens = append([]string(nil), a.Tokens...)
	if a.ImpactScore != nil {
		score := *a.ImpactScore
		c.ImpactScore = &score
	}
	return &c
}

// InsertAlert implements AlertStore.
func (m *Memory) InsertAlert(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := uniqueKey(alert.Headline, alert.Channel)
	if _, exists := m.uniqueKeys[key]; exists {
		return ErrDuplicate
	}
	if _, exists := m.alertsByID[alert.AlertID]; exists {
		return ErrDuplicate
	}
	c := copyAlert(alert)
	m.alerts = append(m.alerts, c)
	m.alertsByID[c.AlertID] = c
	m.uniqueKeys[key] = c.AlertID
	return nil
}

// GetAlert implements AlertStore.
func (m *Memory) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alertsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAlert(a), nil
}

// RecentAlerts implements AlertStore.
func (m *Memory) RecentAlerts(_ context.Context, q AlertQuery) ([]*models.Alert, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]*models.Alert, len(m.alerts))
	copy(sorted, m.alerts)
	// Stable so equal timestamps fall back to reverse insertion order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	reverseTies(sorted)

	out := make([]*models.Alert, 0, limit)
	for _, a := range sorted {
		if !q.Channels.IsEmpty() && !q.Channels.Contains(a.Channel) {
			continue
		}
		out = append(out, copyAlert(a))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// reverseTies reverses each run of equal timestamps so the later insert wins.
func reverseTies(alerts []*models.Alert) {
	for start := 0; start < len(alerts); {
		end := start + 1
		for end < len(alerts) && alerts[end].Timestamp.Equal(alerts[start].Timestamp) {
			end++
		}
		for i, j := start, end-1; i < j; i, j = i+1, j-1 {
			alerts[i], alerts[j] = alerts[j], alerts[i]
		}
		start = end
	}
}

// CountAlerts implements AlertStore.
func (m *Memory) CountAlerts(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.alerts)), nil
}

// DedupeAlerts implements AlertStore.
func (m *Memory) DedupeAlerts(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newest := make(map[string]*models.Alert)
	for _, a := range m.alerts {
		key := a.Fingerprint
		if key == "" {
			key = uniqueKey(a.Headline, a.Channel)
		}
		if cur, ok := newest[key]; !ok || a.Timestamp.After(cur.Timestamp) {
			newest[key] = a
		}
	}

	kept := m.alerts[:0]
	var removed int64
	for _, a := range m.alerts {
		key := a.Fingerprint
		if key == "" {
			key = uniqueKey(a.Headline, a.Channel)
		}
		if newest[key] == a {
			kept = append(kept, a)
			continue
		}
		delete(m.alertsByID, a.AlertID)
		delete(m.uniqueKeys, uniqueKey(a.Headline, a.Channel))
		removed++
	}
	m.alerts = kept
	return removed, nil
}

// CreateSubscriber implements SubscriberStore.
func (m *Memory) CreateSubscriber(_ context.Context, sub *models.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.subscribers[sub.ID]; exists {
		return fmt.Errorf("subscriber %s: %w", sub.ID, ErrDuplicate)
	}
	if sub.WalletAddress != "" {
		if _, exists := m.wallets[sub.WalletAddress]; exists {
			return fmt.Errorf("wallet %s: %w", sub.WalletAddress, ErrDuplicate)
		}
		m.wallets[sub.WalletAddress] = sub.ID
	}
	c := *sub
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	c.UpdatedAt = c.CreatedAt
	m.subscribers[c.ID] = &c
	return nil
}

// GetSubscriber implements SubscriberStore.
func (m *Memory) GetSubscriber(_ context.Context, id string) (*models.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

// Charge implements SubscriberStore.
func (m *Memory) Charge(_ context.Context, id string, amount models.Amount) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subscribers[id]
	if !ok {
		return false, ErrNotFound
	}
	if !s.Active {
		return false, ErrInactive
	}
	if s.Balance < amount {
		return false, nil
	}
	s.Balance -= amount
	s.AlertsReceived++
	s.UpdatedAt = m.now()
	return true, nil
}

// Refund implements SubscriberStore.
func (m *Memory) Refund(_ context.Context, id string, amount models.Amount) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subscribers[id]
	if !ok {
		return ErrNotFound
	}
	s.Balance += amount
	if s.AlertsReceived > 0 {
		s.AlertsReceived--
	}
	s.UpdatedAt = m.now()
	return nil
}

// IncrementAlertsReceived implements SubscriberStore.
func (m *Memory) IncrementAlertsReceived(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subscribers[id]; ok {
		s.AlertsReceived++
		s.UpdatedAt = m.now()
	}
	return nil
}

// UpdateChannels implements SubscriberStore.
func (m *Memory) UpdateChannels(_ context.Context, id string, channels models.ChannelSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subscribers[id]; ok {
		s.Channels = channels
		s.UpdatedAt = m.now()
	}
	return nil
}

// Deposit implements SubscriberStore.
func (m *Memory) Deposit(_ context.Context, id string, amount models.Amount) (*models.Subscriber, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Balance += amount
	s.UpdatedAt = m.now()
	c := *s
	return &c, nil
}

// Withdraw implements SubscriberStore.
func (m *Memory) Withdraw(_ context.Context, id string, amount models.Amount) (*models.Subscriber, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Balance < amount {
		return nil, ErrInsufficientBalance
	}
	s.Balance -= amount
	s.UpdatedAt = m.now()
	c := *s
	return &c, nil
}

// SetSubscriberActive implements SubscriberStore.
func (m *Memory) SetSubscriberActive(_ context.Context, id string, active bool) (*models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Active = active
	s.UpdatedAt = m.now()
	c := *s
	return &c, nil
}

// CreatePublisher implements PublisherStore.
func (m *Memory) CreatePublisher(_ context.Context, pub *models.Publisher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.publishers[pub.ID]; exists {
		return fmt.Errorf("publisher %s: %w", pub.ID, ErrDuplicate)
	}
	if _, exists := m.names[pub.Name]; exists {
		return fmt.Errorf("publisher name %s: %w", pub.Name, ErrDuplicate)
	}
	c := *pub
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	c.UpdatedAt = c.CreatedAt
	m.publishers[c.ID] = &c
	m.names[c.Name] = c.ID
	return nil
}

// GetPublisher implements PublisherStore.
func (m *Memory) GetPublisher(_ context.Context, id string) (*models.Publisher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.publishers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

// PublishersByPrefix implements PublisherStore.
func (m *Memory) PublishersByPrefix(_ context.Context, prefix string) ([]*models.Publisher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Publisher
	for _, p := range m.publishers {
		if p.CredentialPrefix == prefix {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

// UpdatePublisher implements PublisherStore.
func (m *Memory) UpdatePublisher(_ context.Context, id string, fn func(*models.Publisher) error) (*models.Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.publishers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	if err := fn(&c); err != nil {
		return nil, err
	}
	c.ID = p.ID
	c.UpdatedAt = m.now()
	*p = c
	out := c
	return &out, nil
}

// IncrementAlertsPublished implements PublisherStore.
func (m *Memory) IncrementAlertsPublished(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.publishers[id]
	if !ok {
		return ErrNotFound
	}
	p.AlertsPublished++
	p.UpdatedAt = m.now()
	return nil
}

// RecordReceipt implements ReceiptStore.
func (m *Memory) RecordReceipt(_ context.Context, receipt *models.DeliveryReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *receipt
	m.receipts = append(m.receipts, &c)
	return nil
}

// ReceiptsForSubscriber implements ReceiptStore.
func (m *Memory) ReceiptsForSubscriber(_ context.Context, subscriberID string, limit int) ([]*models.DeliveryReceipt, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.DeliveryReceipt
	for i := len(m.receipts) - 1; i >= 0 && len(out) < limit; i-- {
		if m.receipts[i].SubscriberID == subscriberID {
			c := *m.receipts[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// Stats implements ReceiptStore.
func (m *Memory) Stats(_ context.Context) (*models.ProtocolStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &models.ProtocolStats{
		TotalSubscribers: int64(len(m.subscribers)),
		TotalPublishers:  int64(len(m.publishers)),
		TotalAlerts:      int64(len(m.alerts)),
	}
	for _, s := range m.subscribers {
		if s.Active {
			stats.ActiveSubscribers++
		}
		stats.TotalDelivered += s.AlertsReceived
	}
	for _, r := range m.receipts {
		stats.TotalRevenue += r.Amount
		stats.TreasuryRevenue += r.TreasuryFee
	}
	return stats, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

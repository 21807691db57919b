// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package storetest holds the behavioral contract every store.Store
// implementation must satisfy.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	t.Run("AlertUniqueness", func(t *testing.T) { testAlertUniqueness(t, newStore(t)) })
	t.Run("RecentAlertsOrderAndFilter", func(t *testing.T) { testRecentAlerts(t, newStore(t)) })
	t.Run("DedupeAlerts", func(t *testing.T) { testDedupeAlerts(t, newStore(t)) })
	t.Run("ChargeSemantics", func(t *testing.T) { testCharge(t, newStore(t)) })
	t.Run("RefundReversesCharge", func(t *testing.T) { testRefund(t, newStore(t)) })
	t.Run("ConcurrentCharge", func(t *testing.T) { testConcurrentCharge(t, newStore(t)) })
	t.Run("UnknownSubscriberNoOps", func(t *testing.T) { testUnknownSubscriberNoOps(t, newStore(t)) })
	t.Run("DepositWithdraw", func(t *testing.T) { testDepositWithdraw(t, newStore(t)) })
	t.Run("PublisherLifecycle", func(t *testing.T) { testPublisherLifecycle(t, newStore(t)) })
	t.Run("ReceiptsAndStats", func(t *testing.T) { testReceiptsAndStats(t, newStore(t)) })
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewAlert builds a minimal valid alert for tests.
func NewAlert(id, headline string, ch models.Channel, ts time.Time) *models.Alert {
	return &models.Alert{
		AlertID:     id,
		Channel:     ch,
		Priority:    models.PriorityMedium,
		Headline:    headline,
		Summary:     "summary for " + headline,
		Entities:    []string{},
		Tickers:     []string{},
		Tokens:      []string{},
		SourceURL:   "https://example.com/" + id,
		SourceType:  models.SourceTypeFeed,
		Timestamp:   ts,
		Fingerprint: "fp-" + headline + "-" + string(ch),
		ContentHash: "hash-" + id,
	}
}

func newSubscriber(id string, balance models.Amount) *models.Subscriber {
	return &models.Subscriber{
		ID:        id,
		Channels:  models.NewChannelSet(models.ChannelDefiYields),
		Balance:   balance,
		Active:    true,
		CreatedAt: base,
	}
}

func testAlertUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.InsertAlert(ctx, NewAlert("a1", "Protocol X yield spikes to 40% APY", models.ChannelDefiYields, base)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := s.InsertAlert(ctx, NewAlert("a2", "Protocol X yield spikes to 40% APY", models.ChannelDefiYields, base.Add(time.Second)))
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("second insert error = %v, want ErrDuplicate", err)
	}
	// Same headline on another channel is a different alert.
	if err := s.InsertAlert(ctx, NewAlert("a3", "Protocol X yield spikes to 40% APY", models.ChannelDefiTVL, base)); err != nil {
		t.Fatalf("other channel insert: %v", err)
	}
	n, err := s.CountAlerts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountAlerts = %d, want 2", n)
	}
	got, err := s.GetAlert(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAlert: %v", err)
	}
	if got.Headline != "Protocol X yield spikes to 40% APY" || got.Channel != models.ChannelDefiYields {
		t.Errorf("GetAlert returned %+v", got)
	}
	if _, err := s.GetAlert(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetAlert(missing) error = %v, want ErrNotFound", err)
	}
}

func testRecentAlerts(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		ch := models.ChannelMacro
		if i%2 == 0 {
			ch = models.ChannelDefiYields
		}
		a := NewAlert(fmt.Sprintf("r%02d", i), fmt.Sprintf("headline number %02d", i), ch, base.Add(time.Duration(i)*time.Minute))
		if err := s.InsertAlert(ctx, a); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	recent, err := s.RecentAlerts(ctx, store.AlertQuery{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 5 {
		t.Fatalf("len = %d, want 5", len(recent))
	}
	if recent[0].AlertID != "r19" || recent[4].AlertID != "r15" {
		t.Errorf("order = %s..%s, want r19..r15", recent[0].AlertID, recent[4].AlertID)
	}

	filtered, err := s.RecentAlerts(ctx, store.AlertQuery{Limit: 100, Channels: models.NewChannelSet(models.ChannelDefiYields)})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 10 {
		t.Fatalf("filtered len = %d, want 10", len(filtered))
	}
	for _, a := range filtered {
		if a.Channel != models.ChannelDefiYields {
			t.Errorf("filter leaked %s", a.Channel)
		}
	}
}

func testDedupeAlerts(t *testing.T, s store.Store) {
	ctx := context.Background()
	older := NewAlert("d1", "Whale moves 10k BTC", models.ChannelWhaleMovements, base)
	newer := NewAlert("d2", "whale moves 10k btc", models.ChannelWhaleMovements, base.Add(time.Hour))
	// Same normalized fingerprint, different raw headline.
	older.Fingerprint = "fp-whale"
	newer.Fingerprint = "fp-whale"
	other := NewAlert("d3", "Bridge paused", models.ChannelBridges, base)

	for _, a := range []*models.Alert{older, newer, other} {
		if err := s.InsertAlert(ctx, a); err != nil {
			t.Fatalf("insert %s: %v", a.AlertID, err)
		}
	}
	removed, err := s.DedupeAlerts(ctx)
	if err != nil {
		t.Fatalf("DedupeAlerts: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := s.GetAlert(ctx, "d1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("older duplicate should be gone, err = %v", err)
	}
	if _, err := s.GetAlert(ctx, "d2"); err != nil {
		t.Errorf("most recent duplicate should remain: %v", err)
	}
	removed, err = s.DedupeAlerts(ctx)
	if err != nil || removed != 0 {
		t.Errorf("second pass removed %d, err %v; want 0, nil", removed, err)
	}
}

func testCharge(t *testing.T, s store.Store) {
	ctx := context.Background()
	price := models.MustParseAmount("0.01")
	if err := s.CreateSubscriber(ctx, newSubscriber("s1", models.MustParseAmount("0.015"))); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Charge(ctx, "s1", price)
	if err != nil || !ok {
		t.Fatalf("first charge = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.Charge(ctx, "s1", price)
	if err != nil || ok {
		t.Fatalf("second charge = %v, %v; want false, nil", ok, err)
	}

	sub, err := s.GetSubscriber(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Balance != models.MustParseAmount("0.005") {
		t.Errorf("balance = %s, want 0.005", sub.Balance)
	}
	if sub.AlertsReceived != 1 {
		t.Errorf("alertsReceived = %d, want 1", sub.AlertsReceived)
	}

	if _, err := s.SetSubscriberActive(ctx, "s1", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Deposit(ctx, "s1", models.MustParseAmount("1")); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Charge(ctx, "s1", price)
	if ok || !errors.Is(err, store.ErrInactive) {
		t.Errorf("inactive charge = %v, %v; want false, ErrInactive", ok, err)
	}

	ok, err = s.Charge(ctx, "ghost", price)
	if ok || !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown charge = %v, %v; want false, ErrNotFound", ok, err)
	}
}

func testRefund(t *testing.T, s store.Store) {
	ctx := context.Background()
	price := models.MustParseAmount("0.01")
	if err := s.CreateSubscriber(ctx, newSubscriber("s1", models.MustParseAmount("0.02"))); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Charge(ctx, "s1", price); err != nil || !ok {
		t.Fatalf("charge = %v, %v; want true, nil", ok, err)
	}
	// A subscriber deactivated after the charge still gets the refund.
	if _, err := s.SetSubscriberActive(ctx, "s1", false); err != nil {
		t.Fatal(err)
	}
	if err := s.Refund(ctx, "s1", price); err != nil {
		t.Fatalf("Refund() error = %v", err)
	}

	sub, err := s.GetSubscriber(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Balance != models.MustParseAmount("0.02") || sub.AlertsReceived != 0 {
		t.Errorf("balance=%s received=%d, want 0.02 and 0", sub.Balance, sub.AlertsReceived)
	}

	if err := s.Refund(ctx, "ghost", price); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown refund error = %v, want ErrNotFound", err)
	}
	if err := s.Refund(ctx, "s1", 0); !errors.Is(err, store.ErrInvalidAmount) {
		t.Errorf("zero refund error = %v, want ErrInvalidAmount", err)
	}
}

func testConcurrentCharge(t *testing.T, s store.Store) {
	ctx := context.Background()
	price := models.MustParseAmount("1")
	if err := s.CreateSubscriber(ctx, newSubscriber("busy", models.MustParseAmount("10"))); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var succeeded atomic.Int64
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Charge(ctx, "busy", price)
			if err != nil {
				t.Errorf("charge: %v", err)
				return
			}
			if ok {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 10 {
		t.Errorf("successful charges = %d, want 10", succeeded.Load())
	}
	sub, err := s.GetSubscriber(ctx, "busy")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Balance != 0 {
		t.Errorf("balance = %s, want 0", sub.Balance)
	}
}

func testUnknownSubscriberNoOps(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.IncrementAlertsReceived(ctx, "ghost"); err != nil {
		t.Errorf("IncrementAlertsReceived(ghost) = %v, want nil", err)
	}
	if err := s.UpdateChannels(ctx, "ghost", models.NewChannelSet(models.ChannelMacro)); err != nil {
		t.Errorf("UpdateChannels(ghost) = %v, want nil", err)
	}

	if err := s.CreateSubscriber(ctx, newSubscriber("s2", 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementAlertsReceived(ctx, "s2"); err != nil {
		t.Fatal(err)
	}
	want := models.NewChannelSet(models.ChannelMacro, models.ChannelBridges)
	if err := s.UpdateChannels(ctx, "s2", want); err != nil {
		t.Fatal(err)
	}
	sub, err := s.GetSubscriber(ctx, "s2")
	if err != nil {
		t.Fatal(err)
	}
	if sub.AlertsReceived != 1 {
		t.Errorf("alertsReceived = %d, want 1", sub.AlertsReceived)
	}
	// Replaced wholesale, not merged with the original defi/yields.
	if sub.Channels != want {
		t.Errorf("channels = %v, want %v", sub.Channels.Channels(), want.Channels())
	}
}

func testDepositWithdraw(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateSubscriber(ctx, newSubscriber("s3", 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Deposit(ctx, "s3", 0); !errors.Is(err, store.ErrInvalidAmount) {
		t.Errorf("zero deposit error = %v", err)
	}
	sub, err := s.Deposit(ctx, "s3", models.MustParseAmount("5"))
	if err != nil {
		t.Fatal(err)
	}
	if sub.Balance != models.MustParseAmount("5") {
		t.Errorf("balance = %s", sub.Balance)
	}
	if _, err := s.Withdraw(ctx, "s3", models.MustParseAmount("6")); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Errorf("overdraw error = %v", err)
	}
	sub, err = s.Withdraw(ctx, "s3", models.MustParseAmount("2"))
	if err != nil {
		t.Fatal(err)
	}
	if sub.Balance != models.MustParseAmount("3") {
		t.Errorf("balance after withdraw = %s", sub.Balance)
	}
	if _, err := s.Deposit(ctx, "ghost", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deposit to unknown = %v", err)
	}

	dup := newSubscriber("s3", 0)
	if err := s.CreateSubscriber(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate subscriber error = %v", err)
	}
}

func testPublisherLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	pub := &models.Publisher{
		ID:               "p1",
		Name:             "yield-bot",
		CredentialHash:   "hash",
		CredentialPrefix: "nw_pub_abcd1234",
		Channels:         models.NewChannelSet(models.ChannelDefiYields),
		Status:           models.PublisherActive,
		Reputation:       models.InitialReputation,
		Stake:            models.MustParseAmount("100"),
		CreatedAt:        base,
	}
	if err := s.CreatePublisher(ctx, pub); err != nil {
		t.Fatal(err)
	}
	clash := *pub
	clash.ID = "p2"
	if err := s.CreatePublisher(ctx, &clash); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate name error = %v", err)
	}

	found, err := s.PublishersByPrefix(ctx, "nw_pub_abcd1234")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != "p1" || found[0].CredentialHash != "hash" {
		t.Fatalf("PublishersByPrefix = %+v", found)
	}

	if err := s.IncrementAlertsPublished(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	updated, err := s.UpdatePublisher(ctx, "p1", func(p *models.Publisher) error {
		p.Reputation = 42
		p.Status = models.PublisherSuspended
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Reputation != 42 || updated.Status != models.PublisherSuspended || updated.AlertsPublished != 1 {
		t.Errorf("updated = %+v", updated)
	}

	sentinel := errors.New("abort")
	if _, err := s.UpdatePublisher(ctx, "p1", func(p *models.Publisher) error {
		p.Reputation = 0
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Errorf("abort error = %v", err)
	}
	got, err := s.GetPublisher(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Reputation != 42 {
		t.Errorf("aborted update leaked: reputation = %v", got.Reputation)
	}
	if _, err := s.GetPublisher(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetPublisher(nobody) = %v", err)
	}
}

func testReceiptsAndStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateSubscriber(ctx, newSubscriber("s4", models.MustParseAmount("1"))); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		r := &models.DeliveryReceipt{
			ID:           fmt.Sprintf("rc%d", i),
			SubscriberID: "s4",
			AlertID:      fmt.Sprintf("a%d", i),
			ContentHash:  "h",
			Amount:       models.MustParseAmount("0.01"),
			TreasuryFee:  models.MustParseAmount("0.001"),
			Timestamp:    base.Add(time.Duration(i) * time.Second),
		}
		if err := s.RecordReceipt(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	receipts, err := s.ReceiptsForSubscriber(ctx, "s4", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(receipts) != 2 || receipts[0].ID != "rc2" {
		t.Errorf("receipts = %+v", receipts)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSubscribers != 1 || stats.ActiveSubscribers != 1 {
		t.Errorf("subscriber stats = %+v", stats)
	}
	if stats.TotalRevenue != models.MustParseAmount("0.03") || stats.TreasuryRevenue != models.MustParseAmount("0.003") {
		t.Errorf("revenue stats = %s / %s", stats.TotalRevenue, stats.TreasuryRevenue)
	}
}

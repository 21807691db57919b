// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package bus

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func testConfig() *config.BusConfig {
	return &config.BusConfig{
		Backend:              config.BusGoChannel,
		OutputBuffer:         64,
		RetryCount:           1,
		RetryInitialInterval: time.Millisecond,
		PoisonQueueTopic:     "newswire.poison",
		CloseTimeout:         time.Second,
		BreakerFailures:      5,
		BreakerTimeout:       time.Second,
	}
}

func startBus(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = b.Close()
	})
	select {
	case <-b.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "kafka"
	if _, err := New(context.Background(), cfg); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("err = %v, want ErrUnknownBackend", err)
	}
}

func TestRawItemRoundTrip(t *testing.T) {
	b, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan *models.RawItem, 2)
	b.HandleRawItems("test-raw", func(_ context.Context, item *models.RawItem) error {
		got <- item
		return nil
	})
	startBus(t, b)

	items := []*models.RawItem{
		{Source: "sec-edgar", Title: "SEC approves spot ETF filing"},
		{Source: "whale-alert", Title: "10,000 BTC moved to Coinbase", Channel: models.ChannelWhaleMovements},
	}
	n, err := b.PublishRawItems(context.Background(), items)
	if err != nil || n != 2 {
		t.Fatalf("PublishRawItems = %d, %v", n, err)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case item := <-got:
			seen[item.Title] = true
			if item.Title == items[1].Title && item.Channel != models.ChannelWhaleMovements {
				t.Errorf("channel hint lost: %q", item.Channel)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for raw item")
		}
	}
	if len(seen) != 2 {
		t.Errorf("received %v", seen)
	}
}

func TestAlertRoundTrip(t *testing.T) {
	b, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan *models.Alert, 1)
	b.HandleAlerts("test-alerts", func(_ context.Context, a *models.Alert) error {
		got <- a
		return nil
	})
	startBus(t, b)

	alert := &models.Alert{
		AlertID:  "a-1",
		Channel:  models.ChannelDefiExploits,
		Priority: models.PriorityCritical,
		Headline: "Bridge drained of $120M",
	}
	if err := b.PublishAlert(context.Background(), alert); err != nil {
		t.Fatal(err)
	}

	select {
	case a := <-got:
		if a.AlertID != "a-1" || a.Channel != models.ChannelDefiExploits {
			t.Errorf("got %+v", a)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for alert")
	}
}

func TestFailuresGoToPoisonQueue(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int32
	}{
		{name: "permanent skips retries", err: NewPermanentError("bad", nil), wantCalls: 1},
		{name: "retryable exhausts retries", err: NewRetryableError("down", nil), wantCalls: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(context.Background(), testConfig())
			if err != nil {
				t.Fatal(err)
			}

			poison, err := b.subs[TopicAlertsCreated].Subscribe(context.Background(), testConfig().PoisonQueueTopic)
			if err != nil {
				t.Fatal(err)
			}

			var calls atomic.Int32
			b.HandleAlerts("failing", func(context.Context, *models.Alert) error {
				calls.Add(1)
				return tt.err
			})
			startBus(t, b)

			if err := b.PublishAlert(context.Background(), &models.Alert{AlertID: "p-1"}); err != nil {
				t.Fatal(err)
			}

			select {
			case msg := <-poison:
				msg.Ack()
				if msg.UUID != "p-1" {
					t.Errorf("poisoned %q, want p-1", msg.UUID)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("message never reached the poison queue")
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("handler calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestMalformedPayloadIsPermanent(t *testing.T) {
	var called bool
	h := decoding(func(context.Context, *models.Alert) error {
		called = true
		return nil
	})
	err := h(message.NewMessage("x", []byte("{not json")))
	if !IsPermanentError(err) {
		t.Errorf("err = %v, want permanent", err)
	}
	if called {
		t.Error("handler called for undecodable payload")
	}
}

func TestPublishAfterClose(t *testing.T) {
	b, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.PublishAlert(context.Background(), &models.Alert{AlertID: "late"}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cause := errors.New("root")
	tests := []struct {
		name      string
		err       error
		retryable bool
		permanent bool
	}{
		{"retryable", NewRetryableError("x", cause), true, false},
		{"permanent", NewPermanentError("x", cause), false, true},
		{"wrapped permanent", errors.Join(errors.New("ctx"), NewPermanentError("x", nil)), false, true},
		{"plain", cause, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.retryable {
				t.Errorf("IsRetryableError = %v", got)
			}
			if got := IsPermanentError(tt.err); got != tt.permanent {
				t.Errorf("IsPermanentError = %v", got)
			}
		})
	}
	if !errors.Is(NewRetryableError("x", cause), cause) {
		t.Error("Unwrap does not expose cause")
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerFailures = 2
	cb := newBreaker("test", cfg)
	fail := errors.New("publish failed")
	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, fail })
	}
	if _, err := cb.Execute(func() (interface{}, error) { return nil, nil }); err == nil {
		t.Error("breaker still closed after consecutive failures")
	}
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package wsclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 32 * time.Second},
		{7, 32 * time.Second},
		{50, 32 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(tt.attempt, time.Second, 32*time.Second); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"http", Config{BaseURL: "http://localhost:8787", SubscriberID: "sub-1"}, "ws://localhost:8787/ws?subscriberId=sub-1", false},
		{"https with path", Config{BaseURL: "https://wire.example.com/api/", SubscriberID: "s"}, "wss://wire.example.com/api/ws?subscriberId=s", false},
		{"token preferred", Config{BaseURL: "http://h", SubscriberID: "s", Token: "abc"}, "ws://h/ws?token=abc", false},
		{"bad scheme", Config{BaseURL: "ftp://h"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.cfg).StreamURL()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("StreamURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

// flakyServer welcomes each connection, sends one alert and then drops it.
func flakyServer(t *testing.T, connections *atomic.Int32, updates chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := connections.Add(1)

		id := r.URL.Query().Get("subscriberId")
		welcome, _ := models.EncodeFrame(models.ConnectedFrame{SubscriberID: id, TrialMode: true})
		_ = conn.WriteMessage(websocket.TextMessage, welcome)
		alert, _ := models.EncodeFrame(models.AlertFrame{Alert: &models.Alert{AlertID: "a-" + string(rune('0'+n))}})
		_ = conn.WriteMessage(websocket.TextMessage, alert)

		if updates != nil {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, data, err := conn.ReadMessage(); err == nil {
				updates <- string(data)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunReconnects(t *testing.T) {
	var connections atomic.Int32
	srv := flakyServer(t, &connections, nil)

	c := New(Config{BaseURL: srv.URL, SubscriberID: "sub-1", InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
	var mu sync.Mutex
	var alerts []string
	welcomes := 0
	c.SetCallbacks(Callbacks{
		OnConnected: func(models.ConnectedFrame) {
			mu.Lock()
			welcomes++
			mu.Unlock()
		},
		OnAlert: func(f models.AlertFrame) {
			mu.Lock()
			alerts = append(alerts, f.Alert.AlertID)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for connections.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if welcomes < 3 || len(alerts) < 3 {
		t.Errorf("welcomes=%d alerts=%v, want at least 3 of each", welcomes, alerts)
	}
}

func TestRunGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, SubscriberID: "sub-1", InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, MaxAttempts: 3})
	err := c.Run(context.Background())
	if !errors.Is(err, ErrMaxAttempts) {
		t.Fatalf("Run() = %v, want ErrMaxAttempts", err)
	}
}

func TestUpdateChannels(t *testing.T) {
	var connections atomic.Int32
	updates := make(chan string, 1)
	srv := flakyServer(t, &connections, updates)

	c := New(Config{BaseURL: srv.URL, SubscriberID: "sub-1", InitialDelay: time.Second})
	if err := c.UpdateChannels(models.ChannelMacro); !errors.Is(err, ErrNotConnected) {
		t.Errorf("UpdateChannels() before connect = %v, want ErrNotConnected", err)
	}

	welcomed := make(chan struct{}, 1)
	c.SetCallbacks(Callbacks{OnConnected: func(models.ConnectedFrame) {
		select {
		case welcomed <- struct{}{}:
		default:
		}
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	select {
	case <-welcomed:
	case <-time.After(2 * time.Second):
		t.Fatal("never connected")
	}
	if err := c.UpdateChannels(models.ChannelMacro, models.ChannelDefiTVL); err != nil {
		t.Fatalf("UpdateChannels() error = %v", err)
	}

	select {
	case got := <-updates:
		frame, err := models.DecodeClientFrame([]byte(got))
		if err != nil {
			t.Fatalf("DecodeClientFrame() error = %v", err)
		}
		uc, ok := frame.(models.UpdateChannelsFrame)
		if !ok || uc.Channels != models.NewChannelSet(models.ChannelMacro, models.ChannelDefiTVL) {
			t.Errorf("frame = %+v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received update_channels")
	}
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package wsclient is a Go subscriber for the alert stream.
//
// The client dials /ws, decodes server frames and routes them to callbacks.
// When the connection drops it reconnects with capped exponential backoff,
// giving up after MaxAttempts consecutive failures. A connection counts as
// successful once the server's connected frame arrives.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/models"
)

// ErrMaxAttempts is returned by Run after MaxAttempts consecutive failed
// connection attempts.
var ErrMaxAttempts = errors.New("reconnect attempts exhausted")

// ErrNotConnected is returned when sending without a live connection.
var ErrNotConnected = errors.New("not connected")

// Config configures a Client.
type Config struct {
	// BaseURL is the server's HTTP base, e.g. http://localhost:8787.
	BaseURL      string
	SubscriberID string
	// Token is a stream token. When set it is sent instead of SubscriberID.
	Token string

	InitialDelay time.Duration
	MaxDelay     time.Duration
	// MaxAttempts bounds consecutive failures; zero means unlimited.
	MaxAttempts int
	PongWait    time.Duration
	WriteWait   time.Duration
}

func (c Config) withDefaults() Config {
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 32 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	return c
}

// Callbacks receive decoded frames. All are optional and are invoked from
// the read loop, one at a time.
type Callbacks struct {
	OnConnected           func(models.ConnectedFrame)
	OnAlert               func(models.AlertFrame)
	OnWarning             func(models.WarningFrame)
	OnSubscriptionUpdated func(models.SubscriptionUpdatedFrame)
	OnError               func(models.ErrorFrame)
}

// Client is a reconnecting stream subscriber.
type Client struct {
	cfg    Config
	dialer websocket.Dialer

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	callbackMu sync.RWMutex
	callbacks  Callbacks
}

// New creates a client. Call Run to connect.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg.withDefaults(),
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// SetCallbacks replaces the frame handlers.
func (c *Client) SetCallbacks(cb Callbacks) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.callbacks = cb
}

// StreamURL builds the ws(s) URL for the configured subscriber.
func (c *Client) StreamURL() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"

	q := url.Values{}
	if c.cfg.Token != "" {
		q.Set("token", c.cfg.Token)
	} else {
		q.Set("subscriberId", c.cfg.SubscriberID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Backoff returns the delay before reconnect attempt n (starting at 1).
func Backoff(n int, initial, maxDelay time.Duration) time.Duration {
	d := initial
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// Run connects and reads until ctx is canceled or reconnect attempts are
// exhausted.
func (c *Client) Run(ctx context.Context) error {
	wsURL, err := c.StreamURL()
	if err != nil {
		return err
	}

	failures := 0
	for {
		welcomed, err := c.session(ctx, wsURL)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if welcomed {
			failures = 0
		}
		failures++
		if c.cfg.MaxAttempts > 0 && failures > c.cfg.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttempts, c.cfg.MaxAttempts, err)
		}

		delay := Backoff(failures, c.cfg.InitialDelay, c.cfg.MaxDelay)
		logging.Warn().Err(err).
			Int("attempt", failures).
			Dur("delay", delay).
			Msg("Alert stream disconnected, reconnecting")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// session runs one connection. welcomed reports whether the server accepted
// the subscriber before the connection ended.
func (c *Client) session(ctx context.Context, wsURL string) (welcomed bool, err error) {
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	defer c.closeConnection()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.cfg.WriteWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return welcomed, fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		frame, err := models.DecodeServerFrame(data)
		if err != nil {
			logging.Warn().Err(err).Msg("Skipping undecodable frame")
			continue
		}
		if _, ok := frame.(models.ConnectedFrame); ok {
			welcomed = true
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame models.ServerFrame) {
	c.callbackMu.RLock()
	cb := c.callbacks
	c.callbackMu.RUnlock()

	switch f := frame.(type) {
	case models.ConnectedFrame:
		if cb.OnConnected != nil {
			cb.OnConnected(f)
		}
	case models.AlertFrame:
		if cb.OnAlert != nil {
			cb.OnAlert(f)
		}
	case models.WarningFrame:
		if cb.OnWarning != nil {
			cb.OnWarning(f)
		}
	case models.SubscriptionUpdatedFrame:
		if cb.OnSubscriptionUpdated != nil {
			cb.OnSubscriptionUpdated(f)
		}
	case models.ErrorFrame:
		if cb.OnError != nil {
			cb.OnError(f)
		}
	}
}

// UpdateChannels asks the server to replace the subscription.
func (c *Client) UpdateChannels(channels ...models.Channel) error {
	data, err := json.Marshal(models.UpdateChannelsFrame{Channels: models.NewChannelSet(channels...)})
	if err != nil {
		return err
	}

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// IsConnected reports whether a socket is currently open.
func (c *Client) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

func (c *Client) closeConnection() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.conn.Close()
	c.conn = nil
}

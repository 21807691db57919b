// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package websocket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/metrics"
	"github.com/tomtom215/newswire/internal/models"
)

// State is the lifecycle state of a Connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// errSlowConsumer closes a connection whose send queue is full.
var errSlowConsumer = errors.New("send queue full")

// connIDCounter gives every connection a process-unique id so that a
// reconnect can be told apart from the connection it replaces.
var connIDCounter atomic.Uint64

// Connection is one live subscriber socket.
type Connection struct {
	id           uint64
	subscriberID string
	engine       *Engine
	conn         *websocket.Conn
	connectedAt  time.Time

	interest  atomic.Uint32
	state     atomic.Int32
	delivered atomic.Int64

	// sendMu orders frames: it is held across welcome and backfill, and by
	// every producer while it queues a frame.
	sendMu     sync.Mutex
	send       chan []byte
	backfilled map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(e *Engine, conn *websocket.Conn, sub *models.Subscriber) *Connection {
	c := &Connection{
		id:           connIDCounter.Add(1),
		subscriberID: sub.ID,
		engine:       e,
		conn:         conn,
		connectedAt:  e.now(),
		send:         make(chan []byte, e.cfg.SendBuffer),
		backfilled:   make(map[string]struct{}),
		done:         make(chan struct{}),
	}
	c.interest.Store(sub.Channels.Bitmap())
	c.state.Store(int32(StateConnecting))
	return c
}

// SubscriberID returns the subscriber this connection belongs to.
func (c *Connection) SubscriberID() string { return c.subscriberID }

// ConnectedAt returns when the socket was accepted.
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

// Interest returns the current channel snapshot.
func (c *Connection) Interest() models.ChannelSet {
	return models.FromBitmap(c.interest.Load())
}

func (c *Connection) setInterest(set models.ChannelSet) {
	c.interest.Store(set.Bitmap())
}

// State returns the lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Delivered returns the number of live alerts pushed on this connection.
func (c *Connection) Delivered() int64 { return c.delivered.Load() }

// queueLocked encodes and queues a frame. The caller holds sendMu. A full
// queue closes the connection.
func (c *Connection) queueLocked(f models.ServerFrame) bool {
	if c.State() == StateClosed {
		return false
	}
	data, err := models.EncodeFrame(f)
	if err != nil {
		logging.Error().Err(err).Str("frame", string(f.Type())).Msg("Failed to encode frame")
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		metrics.WSErrors.WithLabelValues("slow_consumer").Inc()
		c.closeWith(errSlowConsumer)
		return false
	}
}

// hasRoomLocked reports whether a frame can be queued without closing the
// connection. The caller holds sendMu.
func (c *Connection) hasRoomLocked() bool {
	return len(c.send) < cap(c.send)
}

// queue takes sendMu and queues f.
func (c *Connection) queue(f models.ServerFrame) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.queueLocked(f)
}

// Close closes the socket and removes the registry entry if it still points
// at this connection. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeWith(nil)
}

func (c *Connection) closeWith(reason error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		c.engine.unregister(c)

		evt := logging.Debug()
		if reason != nil {
			evt = logging.Warn().Err(reason)
		}
		evt.Str("subscriber_id", c.subscriberID).
			Int64("delivered", c.Delivered()).
			Msg("Subscriber connection closed")
	})
}

// readPump reads client frames until the socket fails or the peer stops
// answering pings.
func (c *Connection) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
	}()

	cfg := c.engine.cfg
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Debug().Err(err).Str("subscriber_id", c.subscriberID).Msg("Unexpected websocket close")
			}
			return
		}
		c.engine.handleClientFrame(c, data)
	}
}

// writePump drains the send queue and pings the peer.
func (c *Connection) writePump() {
	cfg := c.engine.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait)); err != nil {
				c.closeWith(err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				c.closeWith(err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait)); err != nil {
				c.closeWith(err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.closeWith(err)
				return
			}

		case <-c.done:
			c.flush()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(cfg.WriteWait))
			return
		}
	}
}

// flush writes frames still queued at close, such as the error frame sent
// before rejecting a session.
func (c *Connection) flush() {
	deadline := time.Now().Add(c.engine.cfg.WriteWait)
	for {
		select {
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(deadline); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/metrics"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
)

// ShutdownReason identifies why the engine is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

var errReplaced = errors.New("replaced by a newer connection")

// ConsumptionRecorder credits a publisher when one of its alerts is
// delivered. share is zero for uncharged deliveries.
type ConsumptionRecorder interface {
	RecordConsumption(ctx context.Context, publisherID string, share models.Amount) error
}

// Deps are the stores the engine reads and meters against. Receipts and
// Credits are optional.
type Deps struct {
	Alerts      store.AlertStore
	Subscribers store.SubscriberStore
	Receipts    store.ReceiptStore
	Credits     ConsumptionRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the distribution registry. It holds at most one live connection
// per subscriber and fans created alerts out to those whose interest
// contains the alert's channel.
type Engine struct {
	cfg     config.DistributionConfig
	pricing config.PricingConfig
	price   models.Amount

	alerts      store.AlertStore
	subscribers store.SubscriberStore
	receipts    store.ReceiptStore
	credits     ConsumptionRecorder
	now         func() time.Time

	mu    sync.RWMutex
	conns map[string]*Connection

	alertsSent    atomic.Int64
	revenueMicros atomic.Int64
	startedAt     time.Time
}

// New creates an engine. Zero-valued tuning fields take their defaults.
func New(cfg *config.DistributionConfig, pricing *config.PricingConfig, deps Deps, opts ...Option) (*Engine, error) {
	if deps.Alerts == nil || deps.Subscribers == nil {
		return nil, errors.New("distribution engine needs alert and subscriber stores")
	}
	price, err := pricing.EffectivePrice()
	if err != nil {
		return nil, fmt.Errorf("price per alert: %w", err)
	}
	e := &Engine{
		cfg:         withDefaults(*cfg),
		pricing:     *pricing,
		price:       price,
		alerts:      deps.Alerts,
		subscribers: deps.Subscribers,
		receipts:    deps.Receipts,
		credits:     deps.Credits,
		now:         time.Now,
		conns:       make(map[string]*Connection),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.startedAt = e.now()
	return e, nil
}

func withDefaults(cfg config.DistributionConfig) config.DistributionConfig {
	if cfg.BackfillFetch <= 0 {
		cfg.BackfillFetch = 100
	}
	if cfg.BackfillLimit < 0 {
		cfg.BackfillLimit = 0
	}
	if cfg.SendBuffer <= cfg.BackfillLimit {
		cfg.SendBuffer = cfg.BackfillLimit + 256
	}
	if cfg.FanoutConcurrency <= 0 {
		cfg.FanoutConcurrency = 64
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	return cfg
}

// Price returns the per-alert charge, zero in trial mode.
func (e *Engine) Price() models.Amount { return e.price }

// Attach takes ownership of an upgraded socket for subscriberID. It sends
// the welcome frame and backfill before the connection starts receiving live
// alerts. Unknown and inactive subscribers get an error frame and are
// disconnected.
func (e *Engine) Attach(ctx context.Context, conn *websocket.Conn, subscriberID string) {
	sub, err := e.subscribers.GetSubscriber(ctx, subscriberID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.reject(conn, fmt.Sprintf("unknown subscriber %q", subscriberID))
		return
	case err != nil:
		logging.Ctx(ctx).Error().Err(err).Str("subscriber_id", subscriberID).Msg("Subscriber lookup failed")
		e.reject(conn, "subscriber lookup failed")
		return
	case !sub.Active:
		e.reject(conn, "subscriber is inactive")
		return
	}

	c := newConnection(e, conn, sub)
	c.sendMu.Lock()
	e.register(c)
	go c.writePump()
	go c.readPump()

	c.queueLocked(models.ConnectedFrame{
		SubscriberID:  sub.ID,
		Channels:      sub.Channels,
		TrialMode:     e.price == 0,
		PricePerAlert: e.price,
		Message:       fmt.Sprintf("Connected. Streaming %d channel(s).", sub.Channels.Len()),
	})
	sent := e.backfillLocked(ctx, c)
	if c.State() == StateConnecting {
		c.state.Store(int32(StateOpen))
	}
	c.sendMu.Unlock()

	logging.Ctx(ctx).Info().
		Str("subscriber_id", sub.ID).
		Strs("channels", sub.Channels.Strings()).
		Int("backfill", sent).
		Msg("Subscriber connected")
}

// reject writes a single error frame to a socket that never joined the
// registry, then closes it.
func (e *Engine) reject(conn *websocket.Conn, message string) {
	defer func() { _ = conn.Close() }()
	data, err := models.EncodeFrame(models.ErrorFrame{Message: message})
	if err != nil {
		return
	}
	deadline := time.Now().Add(e.cfg.WriteWait)
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), deadline)
}

// backfillLocked replays recent matching alerts, most recent first. The
// caller holds c.sendMu.
func (e *Engine) backfillLocked(ctx context.Context, c *Connection) int {
	if e.cfg.BackfillLimit == 0 {
		return 0
	}
	recent, err := e.alerts.RecentAlerts(ctx, store.AlertQuery{Limit: e.cfg.BackfillFetch})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("subscriber_id", c.subscriberID).Msg("Backfill query failed")
		return 0
	}

	interest := c.Interest()
	sent := 0
	for _, a := range recent {
		if sent >= e.cfg.BackfillLimit {
			break
		}
		if !interest.Contains(a.Channel) {
			continue
		}
		if !c.queueLocked(models.AlertFrame{Alert: a, Charged: 0, Backfill: true}) {
			break
		}
		c.backfilled[a.AlertID] = struct{}{}
		sent++
		metrics.BackfillSent.Inc()
		if err := e.subscribers.IncrementAlertsReceived(ctx, c.subscriberID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("subscriber_id", c.subscriberID).Msg("Failed to count backfill delivery")
		}
	}
	return sent
}

func (e *Engine) register(c *Connection) {
	e.mu.Lock()
	old := e.conns[c.subscriberID]
	e.conns[c.subscriberID] = c
	metrics.WSConnections.Set(float64(len(e.conns)))
	e.mu.Unlock()

	if old != nil {
		old.closeWith(errReplaced)
	}
}

// unregister removes c only if the registry still points at it.
func (e *Engine) unregister(c *Connection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.conns[c.subscriberID]; ok && cur == c {
		delete(e.conns, c.subscriberID)
	}
	metrics.WSConnections.Set(float64(len(e.conns)))
}

// snapshot copies the registry, ordered by connection id.
func (e *Engine) snapshot() []*Connection {
	e.mu.RLock()
	conns := make([]*Connection, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	e.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool { return conns[i].id < conns[j].id })
	return conns
}

// Connection returns the live connection for subscriberID.
func (e *Engine) Connection(subscriberID string) (*Connection, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.conns[subscriberID]
	return c, ok
}

// ConnectionCount returns the number of registered connections.
func (e *Engine) ConnectionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.conns)
}

// FanoutResult summarizes one Distribute call.
type FanoutResult struct {
	Matched    int `json:"matched"`
	Delivered  int `json:"delivered"`
	LowBalance int `json:"lowBalance"`
	Inactive   int `json:"inactive"`
	Failed     int `json:"failed"`
}

type fanoutCounters struct {
	matched, delivered, lowBalance, inactive, failed atomic.Int64
}

func (fc *fanoutCounters) result() FanoutResult {
	return FanoutResult{
		Matched:    int(fc.matched.Load()),
		Delivered:  int(fc.delivered.Load()),
		LowBalance: int(fc.lowBalance.Load()),
		Inactive:   int(fc.inactive.Load()),
		Failed:     int(fc.failed.Load()),
	}
}

// Distribute pushes alert to every open connection interested in its
// channel, charging each delivery. Connections are processed concurrently
// and one connection's failure does not affect the others.
func (e *Engine) Distribute(ctx context.Context, alert *models.Alert) FanoutResult {
	var fc fanoutCounters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.FanoutConcurrency)

	for _, c := range e.snapshot() {
		if !c.Interest().Contains(alert.Channel) {
			continue
		}
		fc.matched.Add(1)
		g.Go(func() error {
			e.deliver(gctx, c, alert, &fc)
			return nil
		})
	}
	_ = g.Wait()

	res := fc.result()
	logging.Ctx(ctx).Debug().
		Str("alert_id", alert.AlertID).
		Str("channel", string(alert.Channel)).
		Int("matched", res.Matched).
		Int("delivered", res.Delivered).
		Int("low_balance", res.LowBalance).
		Msg("Alert distributed")
	return res
}

// HandleAlert adapts Distribute to the bus handler signature. Delivery
// problems are per-connection and never fail the message.
func (e *Engine) HandleAlert(ctx context.Context, alert *models.Alert) error {
	e.Distribute(ctx, alert)
	return nil
}

func (e *Engine) deliver(ctx context.Context, c *Connection, alert *models.Alert, fc *fanoutCounters) {
	defer func() {
		if r := recover(); r != nil {
			fc.failed.Add(1)
			logging.Error().
				Interface("panic", r).
				Str("subscriber_id", c.subscriberID).
				Str("alert_id", alert.AlertID).
				Msg("Recovered panic during delivery")
		}
	}()

	charged, ok := e.pushLocked(ctx, c, alert, fc)
	if !ok {
		return
	}
	fc.delivered.Add(1)
	e.settle(ctx, c.subscriberID, alert, charged)
}

// pushLocked charges and queues one alert on c under its send lock.
func (e *Engine) pushLocked(ctx context.Context, c *Connection, alert *models.Alert, fc *fanoutCounters) (models.Amount, bool) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.State() != StateOpen {
		return 0, false
	}
	if _, dup := c.backfilled[alert.AlertID]; dup {
		return 0, false
	}
	if !c.hasRoomLocked() {
		metrics.WSErrors.WithLabelValues("slow_consumer").Inc()
		c.closeWith(errSlowConsumer)
		fc.failed.Add(1)
		return 0, false
	}

	var charged models.Amount
	if e.price > 0 {
		ok, err := e.subscribers.Charge(ctx, c.subscriberID, e.price)
		switch {
		case errors.Is(err, store.ErrInactive):
			fc.inactive.Add(1)
			c.queueLocked(models.WarningFrame{
				Code:    models.WarningSubscriberInactive,
				Message: "Subscriber is inactive; alert " + alert.AlertID + " skipped",
			})
			return 0, false
		case err != nil:
			fc.failed.Add(1)
			metrics.WSErrors.WithLabelValues("charge").Inc()
			logging.Ctx(ctx).Error().Err(err).
				Str("subscriber_id", c.subscriberID).
				Str("alert_id", alert.AlertID).
				Msg("Charge failed")
			return 0, false
		case !ok:
			fc.lowBalance.Add(1)
			metrics.LowBalance.Inc()
			c.queueLocked(models.WarningFrame{
				Code:    models.WarningLowBalance,
				Message: fmt.Sprintf("Insufficient balance for alert %s (price %s)", alert.AlertID, e.price),
			})
			return 0, false
		}
		charged = e.price
	}

	// The socket can close while the charge is in flight.
	if c.State() != StateOpen || !c.queueLocked(models.AlertFrame{Alert: alert, Charged: charged}) {
		fc.failed.Add(1)
		e.refund(ctx, c.subscriberID, alert, charged)
		return 0, false
	}
	if charged == 0 {
		if err := e.subscribers.IncrementAlertsReceived(ctx, c.subscriberID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("subscriber_id", c.subscriberID).Msg("Failed to count delivery")
		}
	}
	c.delivered.Add(1)
	e.alertsSent.Add(1)
	e.revenueMicros.Add(int64(charged))
	metrics.RecordDelivery(string(alert.Channel), int64(charged))
	return charged, true
}

// refund returns a charge for an alert that never reached the queue.
func (e *Engine) refund(ctx context.Context, subscriberID string, alert *models.Alert, charged models.Amount) {
	if charged <= 0 {
		return
	}
	if err := e.subscribers.Refund(ctx, subscriberID, charged); err != nil {
		metrics.WSErrors.WithLabelValues("refund").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("subscriber_id", subscriberID).
			Str("alert_id", alert.AlertID).
			Str("amount", charged.String()).
			Msg("Failed to refund undelivered alert")
		return
	}
	logging.Ctx(ctx).Debug().
		Str("subscriber_id", subscriberID).
		Str("alert_id", alert.AlertID).
		Msg("Refunded undelivered alert")
}

// settle writes the receipt for a charged delivery and credits the alert's
// publisher.
func (e *Engine) settle(ctx context.Context, subscriberID string, alert *models.Alert, charged models.Amount) {
	var share models.Amount
	if charged > 0 && alert.PublisherID != "" {
		share = charged.MulBPS(e.pricing.PublisherShareBPS)
	}

	if charged > 0 && e.receipts != nil {
		receipt := &models.DeliveryReceipt{
			ID:             uuid.NewString(),
			SubscriberID:   subscriberID,
			AlertID:        alert.AlertID,
			ContentHash:    alert.ContentHash,
			Amount:         charged,
			TreasuryFee:    charged.MulBPS(e.pricing.TreasuryFeeBPS),
			PublisherID:    alert.PublisherID,
			PublisherShare: share,
			Timestamp:      e.now().UTC(),
		}
		if err := e.receipts.RecordReceipt(ctx, receipt); err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("subscriber_id", subscriberID).
				Str("alert_id", alert.AlertID).
				Msg("Failed to record delivery receipt")
		}
	}

	if alert.PublisherID != "" && e.credits != nil {
		if err := e.credits.RecordConsumption(ctx, alert.PublisherID, share); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("publisher_id", alert.PublisherID).Msg("Failed to credit publisher")
		}
	}
}

func (e *Engine) handleClientFrame(c *Connection, data []byte) {
	frame, err := models.DecodeClientFrame(data)
	if err != nil {
		c.queue(models.ErrorFrame{Message: err.Error()})
		return
	}
	switch f := frame.(type) {
	case models.UpdateChannelsFrame:
		e.updateChannels(c, f.Channels)
	default:
		c.queue(models.ErrorFrame{Message: fmt.Sprintf("unsupported frame %q", frame.Type())})
	}
}

// updateChannels replaces c's interest, persists it and acknowledges.
func (e *Engine) updateChannels(c *Connection, set models.ChannelSet) {
	c.setInterest(set)

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.WriteWait)
	defer cancel()
	if err := e.subscribers.UpdateChannels(ctx, c.subscriberID, set); err != nil {
		logging.Warn().Err(err).Str("subscriber_id", c.subscriberID).Msg("Failed to persist channel update")
	}
	c.queue(models.SubscriptionUpdatedFrame{Channels: set})

	logging.Info().
		Str("subscriber_id", c.subscriberID).
		Strs("channels", set.Strings()).
		Msg("Subscriber channels updated")
}

// RefreshInterest pushes a channel change made outside the socket to the
// subscriber's live connection. It reports whether one was connected.
func (e *Engine) RefreshInterest(subscriberID string, set models.ChannelSet) bool {
	c, ok := e.Connection(subscriberID)
	if !ok {
		return false
	}
	c.setInterest(set)
	c.queue(models.SubscriptionUpdatedFrame{Channels: set})
	return true
}

// Disconnect closes the live connection of subscriberID, if any.
func (e *Engine) Disconnect(subscriberID string) bool {
	c, ok := e.Connection(subscriberID)
	if ok {
		c.Close()
	}
	return ok
}

// Stats are the engine-wide counters.
type Stats struct {
	Connections      int           `json:"connections"`
	AlertsSent       int64         `json:"alertsSent"`
	RevenueGenerated models.Amount `json:"revenueGenerated"`
	PricePerAlert    models.Amount `json:"pricePerAlert"`
	TrialMode        bool          `json:"trialMode"`
	Uptime           string        `json:"uptime"`
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Connections:      e.ConnectionCount(),
		AlertsSent:       e.alertsSent.Load(),
		RevenueGenerated: models.Amount(e.revenueMicros.Load()),
		PricePerAlert:    e.price,
		TrialMode:        e.price == 0,
		Uptime:           e.now().Sub(e.startedAt).Round(time.Second).String(),
	}
}

// Serve implements suture.Service. It closes every connection when ctx is
// canceled.
func (e *Engine) Serve(ctx context.Context) error {
	<-ctx.Done()
	n := e.closeAll()
	logging.Info().
		Str("component", "distribution-engine").
		Str("reason", string(shutdownReason(ctx))).
		Int("connections_closed", n).
		Msg("Distribution engine stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (e *Engine) String() string { return "distribution-engine" }

func (e *Engine) closeAll() int {
	conns := e.snapshot()
	for _, c := range conns {
		c.Close()
	}
	return len(conns)
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package bus is the event bus between ingestion and distribution, built on
// Watermill. Raw items travel on TopicRawItems to the ingestion pipeline;
// created alerts travel on TopicAlertsCreated to the distribution engine.
//
// Two backends are supported: an in-process gochannel pubsub (the default)
// and NATS JetStream, optionally served by an embedded nats-server.
// Publishing goes through a circuit breaker; consuming goes through a router
// with retry and poison-queue middleware.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/metrics"
	"github.com/tomtom215/newswire/internal/models"
)

// Topics.
const (
	TopicRawItems      = "raw.items"
	TopicAlertsCreated = "alerts.created"
)

// Bus owns the publisher, the subscribers and the router.
type Bus struct {
	cfg     config.BusConfig
	logger  watermill.LoggerAdapter
	pub     message.Publisher
	subs    map[string]message.Subscriber
	router  *message.Router
	breaker *gobreaker.CircuitBreaker[interface{}]
	server  *EmbeddedServer
	closers []func() error

	mu     sync.RWMutex
	closed bool
}

// New connects the configured backend and builds the router. Handlers are
// registered with HandleRawItems and HandleAlerts before Run.
func New(ctx context.Context, cfg *config.BusConfig) (*Bus, error) {
	b := &Bus{
		cfg:    *cfg,
		logger: logging.NewWatermillLogger("bus"),
		subs:   make(map[string]message.Subscriber),
	}

	switch cfg.Backend {
	case config.BusGoChannel, "":
		gc := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.OutputBuffer}, b.logger)
		b.pub = gc
		b.subs[TopicRawItems] = gc
		b.subs[TopicAlertsCreated] = gc
		b.closers = append(b.closers, gc.Close)
	case config.BusNATS:
		if err := b.connectNATS(ctx); err != nil {
			_ = b.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	b.breaker = newBreaker("bus-publish", cfg)

	router, err := newRouter(cfg, b.pub, b.logger)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.router = router
	return b, nil
}

func (b *Bus) connectNATS(ctx context.Context) error {
	url := b.cfg.URL
	if b.cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(&b.cfg)
		if err != nil {
			return err
		}
		b.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	if err := ensureStream(ctx, url, []string{TopicRawItems, TopicAlertsCreated, b.cfg.PoisonQueueTopic}); err != nil {
		return err
	}

	pub, err := newNATSPublisher(url, b.logger)
	if err != nil {
		return err
	}
	b.pub = pub
	b.closers = append(b.closers, pub.Close)

	for topic, suffix := range map[string]string{TopicRawItems: "-raw", TopicAlertsCreated: "-alerts"} {
		sub, err := newNATSSubscriber(&b.cfg, url, b.cfg.DurablePrefix+suffix, b.logger)
		if err != nil {
			return err
		}
		b.subs[topic] = sub
		b.closers = append(b.closers, sub.Close)
	}
	return nil
}

func newBreaker(name string, cfg *config.BusConfig) *gobreaker.CircuitBreaker[interface{}] {
	threshold := cfg.BreakerFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// Publish sends msg on topic through the circuit breaker.
func (b *Bus) Publish(_ context.Context, topic string, msg *message.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.pub.Publish(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	metrics.RecordBusPublish(topic)
	return nil
}

func encode(id string, v any) (*message.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	return message.NewMessage(id, data), nil
}

// PublishAlert announces a newly created alert.
func (b *Bus) PublishAlert(ctx context.Context, alert *models.Alert) error {
	msg, err := encode(alert.AlertID, alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	msg.Metadata.Set("channel", string(alert.Channel))
	return b.Publish(ctx, TopicAlertsCreated, msg)
}

// PublishRawItems queues raw items for the ingestion pipeline. It stops at
// the first failure and reports how many were published.
func (b *Bus) PublishRawItems(ctx context.Context, items []*models.RawItem) (int, error) {
	for i, item := range items {
		msg, err := encode("", item)
		if err != nil {
			return i, fmt.Errorf("encode raw item: %w", err)
		}
		msg.Metadata.Set("source", item.Source)
		if err := b.Publish(ctx, TopicRawItems, msg); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

// HandleRawItems registers fn as the consumer of TopicRawItems.
func (b *Bus) HandleRawItems(name string, fn func(ctx context.Context, item *models.RawItem) error) {
	b.router.AddConsumerHandler(name, TopicRawItems, b.subs[TopicRawItems], decoding(fn))
}

// HandleAlerts registers fn as a consumer of TopicAlertsCreated.
func (b *Bus) HandleAlerts(name string, fn func(ctx context.Context, alert *models.Alert) error) {
	b.router.AddConsumerHandler(name, TopicAlertsCreated, b.subs[TopicAlertsCreated], decoding(fn))
}

// decoding adapts a typed handler. Undecodable payloads are permanent.
func decoding[T any](fn func(context.Context, *T) error) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var v T
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			return NewPermanentError("decode payload", err)
		}
		ctx := msg.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(ctx, &v)
	}
}

// Run blocks running the router until ctx is canceled or Close is called.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once the router's handlers are subscribed.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// String implements fmt.Stringer for supervisor logs.
func (b *Bus) String() string {
	return "event-bus"
}

// Close stops the router and releases the backend.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var firstErr error
	if b.router != nil {
		if err := b.router.Close(); err != nil {
			firstErr = err
		}
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.server != nil {
		b.server.Shutdown()
	}
	return firstErr
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package bus

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/newswire/internal/config"
)

// newRouter builds the Watermill router with the middleware stack, outermost
// first:
//
//  1. PoisonQueue: anything still failing after retries is parked
//  2. Retry: exponential backoff for transient failures
//  3. Throttle: optional rate limit
//  4. PoisonQueue (permanent only): malformed messages skip the retries
//  5. Recoverer: handler panics become errors
func newRouter(cfg *config.BusConfig, poison message.Publisher, logger watermill.LoggerAdapter) (*message.Router, error) {
	r, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	final, err := middleware.PoisonQueue(poison, cfg.PoisonQueueTopic)
	if err != nil {
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	r.AddMiddleware(final)

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryCount,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		Logger:          logger,
	}
	r.AddMiddleware(retry.Middleware)

	if cfg.ThrottlePerSecond > 0 {
		r.AddMiddleware(middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second).Middleware)
	}

	permanent, err := middleware.PoisonQueueWithFilter(poison, cfg.PoisonQueueTopic, IsPermanentError)
	if err != nil {
		return nil, fmt.Errorf("create permanent poison queue middleware: %w", err)
	}
	r.AddMiddleware(permanent)
	r.AddMiddleware(middleware.Recoverer)

	return r, nil
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/newswire/internal/models"
)

// minJWTSecretLength is enforced in production.
const minJWTSecretLength = 32

// Validate checks that configuration values are present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateDedup,
		c.validateBus,
		c.validateDistribution,
		c.validatePricing,
		c.validateIngest,
		c.validateIntake,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Backend {
	case BackendDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when DATABASE_BACKEND=duckdb")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("DATABASE_BACKEND must be %q or %q, got %q", BackendDuckDB, BackendMemory, c.Database.Backend)
	}
	return nil
}

func (c *Config) validateDedup() error {
	if c.Dedup.Capacity < 1 {
		return fmt.Errorf("DEDUP_CAPACITY must be at least 1, got %d", c.Dedup.Capacity)
	}
	if c.Dedup.TTL <= 0 {
		return fmt.Errorf("DEDUP_TTL must be positive, got %s", c.Dedup.TTL)
	}
	return nil
}

func (c *Config) validateBus() error {
	switch c.Bus.Backend {
	case BusGoChannel:
	case BusNATS:
		if !c.Bus.EmbeddedServer {
			u, err := url.Parse(c.Bus.URL)
			if err != nil || u.Scheme != "nats" || u.Host == "" {
				return fmt.Errorf("NATS_URL must be a nats:// URL, got %q", c.Bus.URL)
			}
		}
		if c.Bus.SubscribersCount < 1 {
			return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1, got %d", c.Bus.SubscribersCount)
		}
	default:
		return fmt.Errorf("BUS_BACKEND must be %q or %q, got %q", BusGoChannel, BusNATS, c.Bus.Backend)
	}
	if c.Bus.RetryCount < 0 {
		return fmt.Errorf("BUS_ROUTER_RETRY_COUNT must be non-negative, got %d", c.Bus.RetryCount)
	}
	if c.Bus.PoisonQueueTopic == "" {
		return fmt.Errorf("BUS_POISON_TOPIC is required")
	}
	return nil
}

func (c *Config) validateDistribution() error {
	d := c.Distribution
	if d.BackfillFetch < 0 || d.BackfillLimit < 0 {
		return fmt.Errorf("backfill bounds must be non-negative (fetch=%d, limit=%d)", d.BackfillFetch, d.BackfillLimit)
	}
	if d.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be at least 1, got %d", d.SendBuffer)
	}
	if d.FanoutConcurrency < 1 {
		return fmt.Errorf("WS_FANOUT_WORKERS must be at least 1, got %d", d.FanoutConcurrency)
	}
	if d.WriteWait <= 0 || d.PongWait <= 0 || d.PingPeriod <= 0 {
		return fmt.Errorf("websocket timeouts must be positive")
	}
	if d.PingPeriod >= d.PongWait {
		return fmt.Errorf("WS_PING_PERIOD (%s) must be shorter than WS_PONG_WAIT (%s)", d.PingPeriod, d.PongWait)
	}
	return nil
}

func (c *Config) validatePricing() error {
	price, err := models.ParseAmount(c.Pricing.PricePerAlert)
	if err != nil {
		return fmt.Errorf("PRICE_PER_ALERT is invalid: %w", err)
	}
	if price < 0 {
		return fmt.Errorf("PRICE_PER_ALERT must not be negative, got %s", price)
	}
	if err := validateBPS("TREASURY_FEE_BPS", c.Pricing.TreasuryFeeBPS); err != nil {
		return err
	}
	if err := validateBPS("PUBLISHER_SHARE_BPS", c.Pricing.PublisherShareBPS); err != nil {
		return err
	}
	if c.Pricing.TreasuryFeeBPS+c.Pricing.PublisherShareBPS > 10000 {
		return fmt.Errorf("TREASURY_FEE_BPS + PUBLISHER_SHARE_BPS must not exceed 10000")
	}
	return nil
}

func validateBPS(name string, bps int) error {
	if bps < 0 || bps > 10000 {
		return fmt.Errorf("%s must be between 0 and 10000, got %d", name, bps)
	}
	return nil
}

func (c *Config) validateIngest() error {
	if _, err := models.ParseChannel(c.Ingest.DefaultChannel); err != nil {
		return fmt.Errorf("INGEST_DEFAULT_CHANNEL is invalid: %w", err)
	}
	for source, channel := range c.Ingest.Sources {
		if _, err := models.ParseChannel(channel); err != nil {
			return fmt.Errorf("ingest source %q: %w", source, err)
		}
	}
	for _, feed := range c.Ingest.Feeds {
		name, raw, ok := strings.Cut(feed, "=")
		if !ok || name == "" {
			return fmt.Errorf("INGEST_FEEDS entry %q must be name=url", feed)
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("INGEST_FEEDS entry %q has an invalid URL", feed)
		}
	}
	if c.Ingest.PollInterval <= 0 {
		return fmt.Errorf("INGEST_POLL_INTERVAL must be positive, got %s", c.Ingest.PollInterval)
	}
	return nil
}

func (c *Config) validateIntake() error {
	if c.Intake.KeyPrefix == "" {
		return fmt.Errorf("PUBLISHER_KEY_PREFIX is required")
	}
	if _, err := models.ParseAmount(c.Intake.MinStake); err != nil {
		return fmt.Errorf("PUBLISHER_MIN_STAKE is invalid: %w", err)
	}
	if c.Intake.SuspendThreshold < models.MinReputation || c.Intake.SuspendThreshold > models.MaxReputation {
		return fmt.Errorf("PUBLISHER_SUSPEND_THRESHOLD must be within [%v, %v]", models.MinReputation, models.MaxReputation)
	}
	if c.Intake.RejectionPenalty < 0 {
		return fmt.Errorf("PUBLISHER_REJECTION_PENALTY must not be negative, got %v", c.Intake.RejectionPenalty)
	}
	if c.Intake.RatePerSecond <= 0 || c.Intake.RateBurst < 1 {
		return fmt.Errorf("publisher rate limit must be positive (rate=%v, burst=%d)", c.Intake.RatePerSecond, c.Intake.RateBurst)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.IsProduction() && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minJWTSecretLength)
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Security.TokenTTL)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.Security.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled", "":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package config

import (
	"time"

	"github.com/tomtom215/newswire/internal/models"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Config is immutable after LoadWithKoanf() and safe for concurrent reads.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Dedup        DedupConfig        `koanf:"dedup"`
	Bus          BusConfig          `koanf:"bus"`
	Distribution DistributionConfig `koanf:"distribution"`
	Pricing      PricingConfig      `koanf:"pricing"`
	Ingest       IngestConfig       `koanf:"ingest"`
	Intake       IntakeConfig       `koanf:"intake"`
	Security     SecurityConfig     `koanf:"security"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// Storage backends.
const (
	BackendDuckDB = "duckdb"
	BackendMemory = "memory"
)

// DatabaseConfig selects and tunes the store.
type DatabaseConfig struct {
	// Backend is "duckdb" or "memory".
	Backend   string `koanf:"backend"`
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// DedupConfig tunes the fingerprint seen-set.
type DedupConfig struct {
	Capacity int           `koanf:"capacity"`
	TTL      time.Duration `koanf:"ttl"`
	// PersistentPath enables the badger-backed store. Empty keeps the
	// seen-set in memory only; ":memory:" uses badger's in-memory mode.
	PersistentPath string `koanf:"persistent_path"`
}

// Bus backends.
const (
	BusGoChannel = "gochannel"
	BusNATS      = "nats"
)

// BusConfig configures the Watermill event bus and router.
type BusConfig struct {
	Backend          string `koanf:"backend"`
	URL              string `koanf:"url"`
	EmbeddedServer   bool   `koanf:"embedded_server"`
	StoreDir         string `koanf:"store_dir"`
	MaxMemory        int64  `koanf:"max_memory"`
	MaxStore         int64  `koanf:"max_store"`
	SubscribersCount int    `koanf:"subscribers_count"`
	DurablePrefix    string `koanf:"durable_prefix"`
	QueueGroup       string `koanf:"queue_group"`
	OutputBuffer     int64  `koanf:"output_buffer"`

	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	ThrottlePerSecond    int64         `koanf:"throttle_per_second"`
	PoisonQueueTopic     string        `koanf:"poison_queue_topic"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`

	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// DistributionConfig tunes the WebSocket engine.
type DistributionConfig struct {
	BackfillFetch     int           `koanf:"backfill_fetch"`
	BackfillLimit     int           `koanf:"backfill_limit"`
	SendBuffer        int           `koanf:"send_buffer"`
	FanoutConcurrency int           `koanf:"fanout_concurrency"`
	WriteWait         time.Duration `koanf:"write_wait"`
	PongWait          time.Duration `koanf:"pong_wait"`
	PingPeriod        time.Duration `koanf:"ping_period"`
	MaxMessageSize    int64         `koanf:"max_message_size"`
}

// PricingConfig sets the metering policy. Amounts are decimal strings.
type PricingConfig struct {
	PricePerAlert     string `koanf:"price_per_alert"`
	TrialMode         bool   `koanf:"trial_mode"`
	TreasuryFeeBPS    int    `koanf:"treasury_fee_bps"`
	PublisherShareBPS int    `koanf:"publisher_share_bps"`
}

// EffectivePrice returns the per-alert price, zero in trial mode.
func (p PricingConfig) EffectivePrice() (models.Amount, error) {
	if p.TrialMode {
		return 0, nil
	}
	return models.ParseAmount(p.PricePerAlert)
}

// IngestConfig configures classification and source polling.
type IngestConfig struct {
	// Sources maps a source name to the channel its items default to.
	Sources        map[string]string `koanf:"sources"`
	SourcesFile    string            `koanf:"sources_file"`
	DefaultChannel string            `koanf:"default_channel"`
	PollInterval   time.Duration     `koanf:"poll_interval"`
	// Feeds lists RSS/JSON endpoints polled as "name=url" pairs.
	Feeds []string `koanf:"feeds"`
}

// IntakeConfig configures publisher registration and submission policy.
type IntakeConfig struct {
	KeyPrefix        string  `koanf:"key_prefix"`
	MinStake         string  `koanf:"min_stake"`
	AutoApprove      bool    `koanf:"auto_approve"`
	SuspendThreshold float64 `koanf:"suspend_threshold"`
	// RejectionPenalty is the reputation lost per rejected submission.
	// Zero keeps rejections free of side effects.
	RejectionPenalty float64 `koanf:"rejection_penalty"`
	ConsumptionBonus float64 `koanf:"consumption_bonus"`
	RatePerSecond    float64 `koanf:"rate_per_second"`
	RateBurst        int     `koanf:"rate_burst"`
}

// SecurityConfig holds token and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	RequireStreamAuth bool          `koanf:"require_stream_auth"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	// PolicyPath overrides the embedded route policy with a casbin CSV file.
	PolicyPath string `koanf:"policy_path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

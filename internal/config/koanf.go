// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/newswire/internal/models"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/newswire/config.yaml",
	"/etc/newswire/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8787,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Backend:   BackendDuckDB,
			Path:      "/data/newswire.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Dedup: DedupConfig{
			Capacity:       100000,
			TTL:            72 * time.Hour,
			PersistentPath: "",
		},
		Bus: BusConfig{
			Backend:              BusGoChannel,
			URL:                  "nats://127.0.0.1:4222",
			EmbeddedServer:       false,
			StoreDir:             "/data/nats/jetstream",
			MaxMemory:            256 << 20,
			MaxStore:             1 << 30,
			SubscribersCount:     2,
			DurablePrefix:        "newswire",
			QueueGroup:           "newswire",
			OutputBuffer:         1024,
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
			ThrottlePerSecond:    0, // unlimited
			PoisonQueueTopic:     "newswire.poison",
			CloseTimeout:         30 * time.Second,
			BreakerFailures:      5,
			BreakerTimeout:       30 * time.Second,
		},
		Distribution: DistributionConfig{
			BackfillFetch:     100,
			BackfillLimit:     10,
			SendBuffer:        256,
			FanoutConcurrency: 64,
			WriteWait:         10 * time.Second,
			PongWait:          60 * time.Second,
			PingPeriod:        54 * time.Second,
			MaxMessageSize:    4096,
		},
		Pricing: PricingConfig{
			PricePerAlert:     "0.001",
			TrialMode:         false,
			TreasuryFeeBPS:    500,
			PublisherShareBPS: 7000,
		},
		Ingest: IngestConfig{
			Sources:        map[string]string{},
			DefaultChannel: string(models.ChannelBreakingNews),
			PollInterval:   time.Minute,
		},
		Intake: IntakeConfig{
			KeyPrefix:        "nw_pub_",
			MinStake:         "0",
			AutoApprove:      true,
			SuspendThreshold: 20,
			RejectionPenalty: 0,
			ConsumptionBonus: 0.1,
			RatePerSecond:    5,
			RateBurst:        20,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			TokenTTL:          24 * time.Hour,
			RequireStreamAuth: false,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File (optional)
//  3. Environment Variables
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is LoadWithKoanf with an explicit config file path. An empty
// path skips the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// LOG_LEVEL -> logging.level
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.loadSourcesFile(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"ingest.feeds",
}

// processSliceFields converts comma-separated string values to slices.
// Env vars arrive as strings; YAML lists are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Database
	"database_backend":  "database.backend",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Dedup
	"dedup_capacity":        "dedup.capacity",
	"dedup_ttl":             "dedup.ttl",
	"dedup_persistent_path": "dedup.persistent_path",

	// Bus
	"bus_backend":            "bus.backend",
	"nats_url":               "bus.url",
	"nats_embedded":          "bus.embedded_server",
	"nats_store_dir":         "bus.store_dir",
	"nats_max_memory":        "bus.max_memory",
	"nats_max_store":         "bus.max_store",
	"nats_subscribers":       "bus.subscribers_count",
	"nats_durable_prefix":    "bus.durable_prefix",
	"nats_queue_group":       "bus.queue_group",
	"bus_router_retry_count": "bus.retry_count",
	"bus_router_retry_delay": "bus.retry_initial_interval",
	"bus_router_throttle":    "bus.throttle_per_second",
	"bus_poison_topic":       "bus.poison_queue_topic",
	"bus_close_timeout":      "bus.close_timeout",
	"bus_breaker_failures":   "bus.breaker_failures",
	"bus_breaker_timeout":    "bus.breaker_timeout",

	// Distribution
	"backfill_fetch":      "distribution.backfill_fetch",
	"backfill_limit":      "distribution.backfill_limit",
	"ws_send_buffer":      "distribution.send_buffer",
	"ws_fanout_workers":   "distribution.fanout_concurrency",
	"ws_write_wait":       "distribution.write_wait",
	"ws_pong_wait":        "distribution.pong_wait",
	"ws_ping_period":      "distribution.ping_period",
	"ws_max_message_size": "distribution.max_message_size",

	// Pricing
	"price_per_alert":     "pricing.price_per_alert",
	"trial_mode":          "pricing.trial_mode",
	"treasury_fee_bps":    "pricing.treasury_fee_bps",
	"publisher_share_bps": "pricing.publisher_share_bps",

	// Ingest
	"ingest_sources_file":    "ingest.sources_file",
	"ingest_default_channel": "ingest.default_channel",
	"ingest_poll_interval":   "ingest.poll_interval",
	"ingest_feeds":           "ingest.feeds",

	// Intake
	"publisher_key_prefix":        "intake.key_prefix",
	"publisher_min_stake":         "intake.min_stake",
	"publisher_auto_approve":      "intake.auto_approve",
	"publisher_suspend_threshold": "intake.suspend_threshold",
	"publisher_rejection_penalty": "intake.rejection_penalty",
	"publisher_rate_per_second":   "intake.rate_per_second",
	"publisher_rate_burst":        "intake.rate_burst",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"require_stream_auth": "security.require_stream_auth",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"authz_policy_path":   "security.policy_path",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config
// paths. Unmapped variables return "" and are ignored.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - PRICE_PER_ALERT -> pricing.price_per_alert
//   - WS_PING_PERIOD -> distribution.ping_period
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

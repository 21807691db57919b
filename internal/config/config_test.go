// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/newswire/internal/models"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Distribution.BackfillFetch != 100 || cfg.Distribution.BackfillLimit != 10 {
		t.Errorf("backfill = %d/%d, want 100/10", cfg.Distribution.BackfillFetch, cfg.Distribution.BackfillLimit)
	}
	if cfg.Distribution.SendBuffer != 256 {
		t.Errorf("SendBuffer = %d, want 256", cfg.Distribution.SendBuffer)
	}
	if cfg.Distribution.PingPeriod != 54*time.Second || cfg.Distribution.PongWait != 60*time.Second {
		t.Errorf("ping/pong = %s/%s", cfg.Distribution.PingPeriod, cfg.Distribution.PongWait)
	}
	if cfg.Database.Backend != BackendDuckDB {
		t.Errorf("Database.Backend = %q", cfg.Database.Backend)
	}
	if cfg.Bus.Backend != BusGoChannel {
		t.Errorf("Bus.Backend = %q", cfg.Bus.Backend)
	}
	if cfg.Intake.SuspendThreshold != 20 {
		t.Errorf("SuspendThreshold = %v, want 20", cfg.Intake.SuspendThreshold)
	}
	if cfg.Intake.RejectionPenalty != 0 {
		t.Errorf("RejectionPenalty = %v, want 0", cfg.Intake.RejectionPenalty)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"DUCKDB_PATH", "database.path"},
		{"DATABASE_BACKEND", "database.backend"},
		{"DEDUP_PERSISTENT_PATH", "dedup.persistent_path"},
		{"NATS_URL", "bus.url"},
		{"BUS_BACKEND", "bus.backend"},
		{"WS_PING_PERIOD", "distribution.ping_period"},
		{"PRICE_PER_ALERT", "pricing.price_per_alert"},
		{"TRIAL_MODE", "pricing.trial_mode"},
		{"INGEST_FEEDS", "ingest.feeds"},
		{"PUBLISHER_MIN_STAKE", "intake.min_stake"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"LOG_LEVEL", "logging.level"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadFileLayers(t *testing.T) {
	dir := t.TempDir()
	sources := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(sources, []byte("sources:\n  whale-alert: markets/whale-movements\n  sec-edgar: news/breaking\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
server:
  port: 9000
pricing:
  price_per_alert: "0.25"
ingest:
  sources_file: ` + sources + `
  sources:
    sec-edgar: regulatory/sec
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PRICE_PER_ALERT", "0.5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000 from file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug from env", cfg.Logging.Level)
	}
	price, err := cfg.Pricing.EffectivePrice()
	if err != nil || price != models.MustParseAmount("0.5") {
		t.Errorf("EffectivePrice = %s, %v; want 0.5 (env beats file)", price, err)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Ingest.Sources["sec-edgar"] != "regulatory/sec" {
		t.Errorf("main config should win over sources file, got %q", cfg.Ingest.Sources["sec-edgar"])
	}
	if cfg.Ingest.Sources["whale-alert"] != "markets/whale-movements" {
		t.Errorf("sources file entry missing: %v", cfg.Ingest.Sources)
	}
}

func TestEffectivePriceTrialMode(t *testing.T) {
	p := PricingConfig{PricePerAlert: "1.5", TrialMode: true}
	price, err := p.EffectivePrice()
	if err != nil || price != 0 {
		t.Errorf("trial mode price = %s, %v; want 0", price, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"unknown backend", func(c *Config) { c.Database.Backend = "postgres" }, "DATABASE_BACKEND"},
		{"memory backend without path", func(c *Config) { c.Database.Backend = BackendMemory; c.Database.Path = "" }, ""},
		{"bad bus", func(c *Config) { c.Bus.Backend = "kafka" }, "BUS_BACKEND"},
		{"nats needs url", func(c *Config) { c.Bus.Backend = BusNATS; c.Bus.URL = "http://x" }, "NATS_URL"},
		{"embedded nats ignores url", func(c *Config) { c.Bus.Backend = BusNATS; c.Bus.EmbeddedServer = true; c.Bus.URL = "" }, ""},
		{"ping after pong", func(c *Config) { c.Distribution.PingPeriod = 2 * time.Minute }, "WS_PING_PERIOD"},
		{"negative price", func(c *Config) { c.Pricing.PricePerAlert = "-1" }, "PRICE_PER_ALERT"},
		{"bps overflow", func(c *Config) { c.Pricing.TreasuryFeeBPS = 5000; c.Pricing.PublisherShareBPS = 6000 }, "must not exceed"},
		{"unknown default channel", func(c *Config) { c.Ingest.DefaultChannel = "sports/football" }, "INGEST_DEFAULT_CHANNEL"},
		{"unknown mapped channel", func(c *Config) { c.Ingest.Sources = map[string]string{"x": "nope"} }, "ingest source"},
		{"bad feed", func(c *Config) { c.Ingest.Feeds = []string{"nofeed"} }, "INGEST_FEEDS"},
		{"production needs secret", func(c *Config) { c.Server.Environment = "production" }, "JWT_SECRET"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(explicit, []byte("server:\n  port: 1234\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, explicit)
	if got := findConfigFile(); got != explicit {
		t.Errorf("findConfigFile() = %q, want %q", got, explicit)
	}
}

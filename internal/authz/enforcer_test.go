// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package authz

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/newswire/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func setupEnforcer(t *testing.T, cfg EnforcerConfig) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(cfg)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEmbeddedPolicy(t *testing.T) {
	e := setupEnforcer(t, EnforcerConfig{})

	tests := []struct {
		role   string
		path   string
		action string
		want   bool
	}{
		{"anonymous", "/api/v1/channels", ActionRead, true},
		{"anonymous", "/api/v1/alerts", ActionRead, true},
		{"anonymous", "/api/v1/alerts/a-1/verify", ActionRead, true},
		{"anonymous", "/api/v1/stats", ActionRead, true},
		{"anonymous", "/api/v1/subscribers", ActionWrite, true},
		{"anonymous", "/api/v1/publishers", ActionWrite, true},
		{"anonymous", "/api/v1/publishers/self/withdraw-stake", ActionWrite, true},
		{"anonymous", "/api/v1/alerts/publish", ActionWrite, true},
		{"anonymous", "/api/v1/subscribers/s-1", ActionRead, false},
		{"anonymous", "/api/v1/admin/ingest", ActionWrite, false},
		{"anonymous", "/api/v1/channels", ActionWrite, false},

		{"subscriber", "/api/v1/subscribers/s-1", ActionRead, true},
		{"subscriber", "/api/v1/subscribers/s-1/deposit", ActionWrite, true},
		{"subscriber", "/api/v1/subscribers/s-1/channels", ActionWrite, true},
		{"subscriber", "/api/v1/subscribers/s-1/receipts", ActionRead, true},
		{"subscriber", "/api/v1/stats", ActionRead, true},
		{"subscriber", "/api/v1/admin/publishers/p-1/slash", ActionWrite, false},
		{"subscriber", "/api/v1/subscribers/s-1", ActionDelete, false},

		{"publisher", "/api/v1/alerts/publish", ActionWrite, true},
		{"publisher", "/api/v1/subscribers/s-1", ActionRead, false},

		{"admin", "/api/v1/admin/publishers/p-1/status", ActionWrite, true},
		{"admin", "/api/v1/admin/alerts/dedupe", ActionWrite, true},
		{"admin", "/api/v1/admin/dedup", ActionRead, true},
		{"subscriber", "/api/v1/admin/dedup", ActionRead, false},
		{"admin", "/api/v1/subscribers/s-9", ActionRead, true},

		{"root", "/api/v1/channels", ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.action+" "+tt.path, func(t *testing.T) {
			got, err := e.Enforce(tt.role, tt.path, tt.action)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce(%s, %s, %s) = %v, want %v", tt.role, tt.path, tt.action, got, tt.want)
			}
		})
	}
}

func TestPolicyFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, anonymous, /api/v1/stats, read\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}

	e := setupEnforcer(t, EnforcerConfig{PolicyPath: path})
	if got, _ := e.Enforce("anonymous", "/api/v1/stats", ActionRead); !got {
		t.Error("stats should be readable")
	}
	if got, _ := e.Enforce("anonymous", "/api/v1/channels", ActionRead); got {
		t.Error("channels should not be readable under the override policy")
	}
	if n := len(e.Policy()); n != 1 {
		t.Errorf("len(Policy()) = %d, want 1", n)
	}
}

func TestMissingPolicyFileFallsBack(t *testing.T) {
	e := setupEnforcer(t, EnforcerConfig{PolicyPath: filepath.Join(t.TempDir(), "absent.csv")})
	if got, _ := e.Enforce("anonymous", "/api/v1/channels", ActionRead); !got {
		t.Error("embedded policy not loaded")
	}
}

func TestDecisionCache(t *testing.T) {
	e := setupEnforcer(t, EnforcerConfig{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		if got, _ := e.Enforce("anonymous", "/api/v1/stats", ActionRead); !got {
			t.Fatal("stats should be readable")
		}
	}
	if n := e.cache.len(); n != 1 {
		t.Errorf("cache entries = %d, want 1", n)
	}

	c := newDecisionCache(time.Minute, 2)
	defer c.stop()
	c.set("a", "/1", "read", true)
	c.set("a", "/2", "read", true)
	c.set("a", "/3", "read", true)
	if c.len() != 2 {
		t.Errorf("bounded cache len = %d, want 2", c.len())
	}
	if _, ok := c.get("a", "/3", "read"); ok {
		t.Error("entry beyond the bound was cached")
	}
	c.set("a", "/1", "read", false)
	if allowed, ok := c.get("a", "/1", "read"); !ok || allowed {
		t.Error("existing entry should be replaceable when full")
	}
}

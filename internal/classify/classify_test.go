// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package classify

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/models"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(map[string]string{
		"sec-edgar":   "regulatory/sec",
		"whale-alert": "markets/whale-movements",
	}, "news/breaking")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsUnknownChannels(t *testing.T) {
	if _, err := New(nil, "news/nope"); err == nil {
		t.Error("expected error for unknown default channel")
	}
	if _, err := New(map[string]string{"x": "bogus"}, "news/breaking"); err == nil {
		t.Error("expected error for unknown source channel")
	}
	c, err := NewFromConfig(&config.IngestConfig{DefaultChannel: "news/macro"})
	if err != nil {
		t.Fatal(err)
	}
	if c.DefaultChannel() != models.ChannelMacro {
		t.Errorf("DefaultChannel = %s", c.DefaultChannel())
	}
}

func TestClassifyChannelResolution(t *testing.T) {
	c := newTestClassifier(t)
	tests := []struct {
		name string
		item models.RawItem
		want models.Channel
	}{
		{
			name: "explicit hint wins over source",
			item: models.RawItem{Source: "sec-edgar", Title: "Bridge exploited for 5M", Channel: models.ChannelBridges},
			want: models.ChannelBridges,
		},
		{
			name: "source mapping is case insensitive",
			item: models.RawItem{Source: "SEC-EDGAR", Title: "Form 8-K filed by Acme Corp"},
			want: models.ChannelRegulatorySEC,
		},
		{
			name: "invalid hint falls through",
			item: models.RawItem{Source: "whale-alert", Title: "1,000 BTC moved", Channel: "bogus"},
			want: models.ChannelWhaleMovements,
		},
		{
			name: "keyword rules",
			item: models.RawItem{Source: "rss", Title: "Protocol X exploited, $40M drained from pool"},
			want: models.ChannelDefiExploits,
		},
		{
			name: "default channel",
			item: models.RawItem{Source: "rss", Title: "Quarterly community call recap"},
			want: models.ChannelBreakingNews,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := c.Classify(&tt.item)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if cl.Channel != tt.want {
				t.Errorf("Channel = %s, want %s", cl.Channel, tt.want)
			}
		})
	}
}

func TestClassifyEnrichesAndScores(t *testing.T) {
	c := newTestClassifier(t)
	cl, err := c.Classify(&models.RawItem{
		Source:  "rss",
		Title:   "Protocol X exploited, $40M drained from pool",
		Summary: "<p>Attackers drained the <b>ETH</b> pool. Binance froze funds.</p>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cl.Summary != "Attackers drained the ETH pool. Binance froze funds." {
		t.Errorf("Summary = %q", cl.Summary)
	}
	if cl.Sentiment != models.SentimentBearish {
		t.Errorf("Sentiment = %q, want bearish", cl.Sentiment)
	}
	if cl.ImpactScore == nil || *cl.ImpactScore != 10 {
		t.Errorf("ImpactScore = %v, want 10", cl.ImpactScore)
	}
	if cl.Priority != models.PriorityCritical {
		t.Errorf("Priority = %s, want critical", cl.Priority)
	}
	if !reflect.DeepEqual(cl.Tokens, []string{"ETH"}) {
		t.Errorf("Tokens = %v", cl.Tokens)
	}
	if !reflect.DeepEqual(cl.Entities, []string{"Binance"}) {
		t.Errorf("Entities = %v", cl.Entities)
	}
	if cl.Tickers == nil || len(cl.Tickers) != 0 {
		t.Errorf("Tickers = %#v, want empty non-nil", cl.Tickers)
	}
}

func TestClassifyRegulatoryHeadline(t *testing.T) {
	c := newTestClassifier(t)
	cl, err := c.Classify(&models.RawItem{Source: "wire", Title: "SEC approves spot bitcoin ETF"})
	if err != nil {
		t.Fatal(err)
	}
	if cl.Channel != models.ChannelRegulatorySEC {
		t.Errorf("Channel = %s", cl.Channel)
	}
	if cl.Sentiment != models.SentimentBullish {
		t.Errorf("Sentiment = %q", cl.Sentiment)
	}
	if cl.Priority != models.PriorityHigh {
		t.Errorf("Priority = %s, want high", cl.Priority)
	}
	if !reflect.DeepEqual(cl.Entities, []string{"SEC"}) {
		t.Errorf("Entities = %v", cl.Entities)
	}
}

func TestClassifyMetadataPriorityOverride(t *testing.T) {
	c := newTestClassifier(t)
	cl, err := c.Classify(&models.RawItem{
		Source:   "rss",
		Title:    "Quarterly community call recap",
		Metadata: map[string]string{"priority": "low"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cl.Priority != models.PriorityLow {
		t.Errorf("Priority = %s, want low", cl.Priority)
	}
}

func TestClassifyIsolatesFailures(t *testing.T) {
	c := newTestClassifier(t)

	if _, err := c.Classify(&models.RawItem{Source: "rss", Title: "<p>  </p>"}); !errors.Is(err, ErrEmptyItem) {
		t.Errorf("err = %v, want ErrEmptyItem", err)
	}
	// a nil item panics inside the heuristics and must come back as an error
	if _, err := c.Classify(nil); err == nil {
		t.Error("expected error from recovered panic")
	}
}

func TestMatchRules(t *testing.T) {
	tests := []struct {
		text string
		want models.Channel
		ok   bool
	}{
		{"$120M in longs liquidated as BTC slides", models.ChannelLiquidations, true},
		{"Whale moves 10,000 ETH to Coinbase", models.ChannelWhaleMovements, true},
		{"Wormhole bridge volume doubles", models.ChannelBridges, true},
		{"Aave DAO vote passes proposal 42", models.ChannelDefiGovernance, true},
		{"Lido TVL crosses $30B", models.ChannelDefiTVL, true},
		{"CFTC fines trading firm", models.ChannelRegulatoryCFTC, true},
		{"FCA publishes new crypto rules", models.ChannelRegulatoryGlobal, true},
		{"FOMC holds rates, CPI cools", models.ChannelMacro, true},
		{"Bybit will list NEWCOIN", models.ChannelTokenLaunches, true},
		{"Nothing to see here", "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		got, ok := MatchRules(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MatchRules(%q) = %s, %v; want %s, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

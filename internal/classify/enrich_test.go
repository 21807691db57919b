// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package classify

import (
	"reflect"
	"testing"

	"github.com/tomtom215/newswire/internal/models"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"<p>Hello <b>world</b></p><script>x()</script>", "Hello world"},
		{"AT&amp;T files 8-K", "AT&T files 8-K"},
		{"<style>p{}</style>Body", "Body"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractTickers(t *testing.T) {
	got := ExtractTickers("Tesla $TSLA jumps while NASDAQ:AAPL is flat; $BTC and $tsla again, NYSE: GME")
	want := []string{"TSLA", "AAPL", "GME"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractTickers = %v, want %v", got, want)
	}
	if got := ExtractTickers("no symbols"); got == nil || len(got) != 0 {
		t.Errorf("ExtractTickers(no symbols) = %#v", got)
	}
}

func TestExtractTokens(t *testing.T) {
	got := ExtractTokens("Bybit Will List BIRB (BIRB) with OPNUSDT pair; BTC and $eth steady (SEC)")
	want := []string{"BIRB", "OPN", "ETH", "BTC"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractTokens = %v, want %v", got, want)
	}
}

func TestExtractEntities(t *testing.T) {
	got := ExtractEntities("Coinbase says the Securities and Exchange Commission and Binance met; the SEC declined comment")
	want := []string{"Coinbase", "SEC", "Binance"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractEntities = %v, want %v", got, want)
	}
}

func TestScoreSentiment(t *testing.T) {
	tests := []struct {
		text string
		want models.Sentiment
	}{
		{"SEC approves ETF", models.SentimentBullish},
		{"Exchange hacked, funds drained", models.SentimentBearish},
		{"ETF approved but exchange sues", models.SentimentMixed},
		{"Quarterly report", ""},
	}
	for _, tt := range tests {
		if got := ScoreSentiment(tt.text); got != tt.want {
			t.Errorf("ScoreSentiment(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestScoreImpact(t *testing.T) {
	tests := []struct {
		ch   models.Channel
		text string
		want float64
		ok   bool
	}{
		{models.ChannelDefiYields, "Yield update", 2.5, true},
		{models.ChannelWhaleMovements, "$12.5M moved", 5.5, true},
		{models.ChannelWhaleMovements, "$250m moved", 6, true},
		{models.ChannelMacro, "Breaking: $1.2 billion stimulus", 9, true},
		{models.ChannelDefiExploits, "Emergency: bridge hacked, $2bn drained", 10, true},
		{models.ChannelWhaleMovements, "40,000 BTC moved", 4, true},
		{"unknown", "anything", 0, false},
	}
	for _, tt := range tests {
		got, ok := ScoreImpact(tt.ch, tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ScoreImpact(%s, %q) = %v, %v; want %v, %v", tt.ch, tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPriorityFor(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		impact *float64
		text   string
		want   models.Priority
	}{
		{nil, "", models.PriorityMedium},
		{f(8.5), "", models.PriorityCritical},
		{f(6), "", models.PriorityHigh},
		{f(3), "", models.PriorityMedium},
		{f(2), "", models.PriorityLow},
		{f(2), "Breaking news", models.PriorityMedium},
		{f(9), "Breaking news", models.PriorityCritical},
	}
	for _, tt := range tests {
		if got := PriorityFor(tt.impact, tt.text); got != tt.want {
			t.Errorf("PriorityFor(%v, %q) = %s, want %s", tt.impact, tt.text, got, tt.want)
		}
	}
}

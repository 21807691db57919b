// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestEncodeFrameAddsType(t *testing.T) {
	alert := &Alert{
		AlertID:   "a-1",
		Channel:   ChannelDefiYields,
		Priority:  PriorityHigh,
		Headline:  "Protocol X yield spikes to 40% APY",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	tests := []struct {
		name  string
		frame ServerFrame
		want  []string
	}{
		{
			name: "connected",
			frame: ConnectedFrame{
				SubscriberID:  "sub-1",
				Channels:      NewChannelSet(ChannelDefiYields),
				TrialMode:     false,
				PricePerAlert: MustParseAmount("0.01"),
				Message:       "welcome",
			},
			want: []string{`"type":"connected"`, `"subscriberId":"sub-1"`, `"channels":["defi/yields"]`, `"pricePerAlert":0.01`, `"trialMode":false`},
		},
		{
			name:  "live alert",
			frame: AlertFrame{Alert: alert, Charged: MustParseAmount("0.01")},
			want:  []string{`"type":"alert"`, `"charged":0.01`, `"alertId":"a-1"`},
		},
		{
			name:  "backfill alert",
			frame: AlertFrame{Alert: alert, Backfill: true},
			want:  []string{`"backfill":true`, `"charged":0`},
		},
		{
			name:  "warning",
			frame: WarningFrame{Code: WarningLowBalance, Message: "top up"},
			want:  []string{`"type":"warning"`, `"code":"LOW_BALANCE"`},
		},
		{
			name:  "subscription updated",
			frame: SubscriptionUpdatedFrame{Channels: NewChannelSet(ChannelMacro)},
			want:  []string{`"type":"subscription_updated"`, `"channels":["news/macro"]`},
		},
		{
			name:  "error",
			frame: ErrorFrame{Message: "unknown subscriber"},
			want:  []string{`"type":"error"`, `"message":"unknown subscriber"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFrame(tt.frame)
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(data), w) {
					t.Errorf("encoded %s missing %s", data, w)
				}
			}
		})
	}
}

func TestLiveAlertFrameOmitsBackfill(t *testing.T) {
	data, err := EncodeFrame(AlertFrame{Alert: &Alert{AlertID: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "backfill") {
		t.Errorf("live frame should omit backfill: %s", data)
	}
}

func TestDecodeClientFrame(t *testing.T) {
	frame, err := DecodeClientFrame([]byte(`{"type":"update_channels","channels":["defi/yields","news/macro"]}`))
	if err != nil {
		t.Fatalf("DecodeClientFrame: %v", err)
	}
	switch f := frame.(type) {
	case UpdateChannelsFrame:
		if !f.Channels.Contains(ChannelDefiYields) || !f.Channels.Contains(ChannelMacro) || f.Channels.Len() != 2 {
			t.Errorf("channels = %v", f.Channels.Channels())
		}
	default:
		t.Fatalf("unexpected frame %T", frame)
	}
}

func TestDecodeClientFrameErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		unknown bool
	}{
		{"not json", `{{`, false},
		{"no type", `{"channels":[]}`, false},
		{"unknown type", `{"type":"subscribe_all"}`, true},
		{"bad channel", `{"type":"update_channels","channels":["bad/channel"]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClientFrame([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.unknown != errors.Is(err, ErrUnknownFrame) {
				t.Errorf("errors.Is(ErrUnknownFrame) = %v, want %v (err=%v)", !tt.unknown, tt.unknown, err)
			}
		})
	}
}

func TestServerFrameRoundTrip(t *testing.T) {
	original := WarningFrame{Code: WarningLowBalance, Message: "insufficient balance"}
	data, err := EncodeFrame(original)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeServerFrame(data)
	if err != nil {
		t.Fatalf("DecodeServerFrame: %v", err)
	}
	w, ok := decoded.(WarningFrame)
	if !ok {
		t.Fatalf("decoded %T, want WarningFrame", decoded)
	}
	if w != original {
		t.Errorf("decoded %+v, want %+v", w, original)
	}
}

func TestAmountParsing(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"0.01", 10000, false},
		{"1", 1000000, false},
		{"0", 0, false},
		{"12.345678", 12345678, false},
		{"0.0000001", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAmount(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	var a Amount
	if err := json.Unmarshal([]byte(`"2.5"`), &a); err != nil || a != 2500000 {
		t.Errorf("unmarshal quoted = %d, %v", a, err)
	}
	if err := json.Unmarshal([]byte(`0.25`), &a); err != nil || a != 250000 {
		t.Errorf("unmarshal number = %d, %v", a, err)
	}
	if got := MustParseAmount("1").MulBPS(250); got != 25000 {
		t.Errorf("MulBPS = %d, want 25000", got)
	}
}

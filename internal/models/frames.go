// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package models

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// FrameType discriminates WebSocket frames on the wire.
type FrameType string

// Server to client frame types.
const (
	FrameConnected           FrameType = "connected"
	FrameAlert               FrameType = "alert"
	FrameWarning             FrameType = "warning"
	FrameSubscriptionUpdated FrameType = "subscription_updated"
	FrameError               FrameType = "error"
)

// Client to server frame types.
const (
	FrameUpdateChannels FrameType = "update_channels"
)

// WarningCode identifies a non-fatal condition reported to a subscriber.
type WarningCode string

const (
	WarningLowBalance         WarningCode = "LOW_BALANCE"
	WarningSubscriberInactive WarningCode = "SUBSCRIBER_INACTIVE"
)

// ErrUnknownFrame is returned when a frame carries an unrecognized type.
var ErrUnknownFrame = errors.New("unknown frame type")

// ServerFrame is the closed set of frames the server sends.
type ServerFrame interface {
	Type() FrameType
	serverFrame()
}

// ClientFrame is the closed set of frames a client may send.
type ClientFrame interface {
	Type() FrameType
	clientFrame()
}

// ConnectedFrame is the welcome frame sent when a connection opens.
type ConnectedFrame struct {
	SubscriberID  string     `json:"subscriberId"`
	Channels      ChannelSet `json:"channels"`
	TrialMode     bool       `json:"trialMode"`
	PricePerAlert Amount     `json:"pricePerAlert"`
	Message       string     `json:"message"`
}

// AlertFrame delivers one alert.
type AlertFrame struct {
	Alert    *Alert `json:"alert"`
	Charged  Amount `json:"charged"`
	Backfill bool   `json:"backfill,omitempty"`
}

// WarningFrame reports a skipped delivery or similar soft failure.
type WarningFrame struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// SubscriptionUpdatedFrame acknowledges a channel change.
type SubscriptionUpdatedFrame struct {
	Channels ChannelSet `json:"channels"`
}

// ErrorFrame reports a request or session error.
type ErrorFrame struct {
	Message string `json:"message"`
}

// UpdateChannelsFrame replaces the connection's channel interest.
type UpdateChannelsFrame struct {
	Channels ChannelSet `json:"channels"`
}

func (ConnectedFrame) Type() FrameType           { return FrameConnected }
func (AlertFrame) Type() FrameType               { return FrameAlert }
func (WarningFrame) Type() FrameType             { return FrameWarning }
func (SubscriptionUpdatedFrame) Type() FrameType { return FrameSubscriptionUpdated }
func (ErrorFrame) Type() FrameType               { return FrameError }
func (UpdateChannelsFrame) Type() FrameType      { return FrameUpdateChannels }

func (ConnectedFrame) serverFrame()           {}
func (AlertFrame) serverFrame()               {}
func (WarningFrame) serverFrame()             {}
func (SubscriptionUpdatedFrame) serverFrame() {}
func (ErrorFrame) serverFrame()               {}
func (UpdateChannelsFrame) clientFrame()      {}

// The wire types drop the methods above so that marshaling the embedded
// body does not recurse.
type (
	connectedWire           ConnectedFrame
	alertWire               AlertFrame
	warningWire             WarningFrame
	subscriptionUpdatedWire SubscriptionUpdatedFrame
	errorWire               ErrorFrame
	updateChannelsWire      UpdateChannelsFrame
)

type envelope struct {
	Type FrameType `json:"type"`
}

func (f ConnectedFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		connectedWire
	}{envelope{FrameConnected}, connectedWire(f)})
}

func (f AlertFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		alertWire
	}{envelope{FrameAlert}, alertWire(f)})
}

func (f WarningFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		warningWire
	}{envelope{FrameWarning}, warningWire(f)})
}

func (f SubscriptionUpdatedFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		subscriptionUpdatedWire
	}{envelope{FrameSubscriptionUpdated}, subscriptionUpdatedWire(f)})
}

func (f ErrorFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		errorWire
	}{envelope{FrameError}, errorWire(f)})
}

func (f UpdateChannelsFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		envelope
		updateChannelsWire
	}{envelope{FrameUpdateChannels}, updateChannelsWire(f)})
}

// EncodeFrame serializes a server frame.
func EncodeFrame(f ServerFrame) ([]byte, error) {
	return json.Marshal(f)
}

func peekType(data []byte) (FrameType, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("frame has no type")
	}
	return env.Type, nil
}

// DecodeClientFrame parses a frame received from a client.
func DecodeClientFrame(data []byte) (ClientFrame, error) {
	t, err := peekType(data)
	if err != nil {
		return nil, err
	}
	switch t {
	case FrameUpdateChannels:
		var w updateChannelsWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
		return UpdateChannelsFrame(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, t)
	}
}

// DecodeServerFrame parses a frame received from the server.
func DecodeServerFrame(data []byte) (ServerFrame, error) {
	t, err := peekType(data)
	if err != nil {
		return nil, err
	}
	var frame ServerFrame
	switch t {
	case FrameConnected:
		var w connectedWire
		err = json.Unmarshal(data, &w)
		frame = ConnectedFrame(w)
	case FrameAlert:
		var w alertWire
		err = json.Unmarshal(data, &w)
		frame = AlertFrame(w)
	case FrameWarning:
		var w warningWire
		err = json.Unmarshal(data, &w)
		frame = WarningFrame(w)
	case FrameSubscriptionUpdated:
		var w subscriptionUpdatedWire
		err = json.Unmarshal(data, &w)
		frame = SubscriptionUpdatedFrame(w)
	case FrameError:
		var w errorWire
		err = json.Unmarshal(data, &w)
		frame = ErrorFrame(w)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, t)
	}
	if err != nil {
		return nil, wrapDecode(t, err)
	}
	return frame, nil
}

func wrapDecode(t FrameType, err error) error {
	if err != nil {
		return fmt.Errorf("decode %s: %w", t, err)
	}
	return nil
}

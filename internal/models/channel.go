// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package models

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Channel is a topic identifier alerts are classified into.
type Channel string

// Channel identifiers. The bit position of each channel is fixed in
// channelBits and must never be reassigned.
const (
	ChannelRegulatorySEC     Channel = "regulatory/sec"
	ChannelRegulatoryCFTC    Channel = "regulatory/cftc"
	ChannelRegulatoryGlobal  Channel = "regulatory/global"
	ChannelWhaleMovements    Channel = "markets/whale-movements"
	ChannelLiquidations      Channel = "markets/liquidations"
	ChannelExchangeFlows     Channel = "markets/exchange-flows"
	ChannelDefiYields        Channel = "defi/yields"
	ChannelDefiExploits      Channel = "defi/exploits"
	ChannelDefiGovernance    Channel = "defi/governance"
	ChannelDefiTVL           Channel = "defi/tvl"
	ChannelTokenLaunches     Channel = "onchain/token-launches"
	ChannelBridges           Channel = "onchain/bridges"
	ChannelBreakingNews      Channel = "news/breaking"
	ChannelMacro             Channel = "news/macro"
	ChannelAgentIntelligence Channel = "agents/intelligence"
)

// MaxChannelBit is the highest usable bit position in a 32-bit interest bitmap.
const MaxChannelBit = 31

var channelBits = map[Channel]uint{
	ChannelRegulatorySEC:     0,
	ChannelRegulatoryCFTC:    1,
	ChannelRegulatoryGlobal:  2,
	ChannelWhaleMovements:    3,
	ChannelLiquidations:      4,
	ChannelExchangeFlows:     5,
	ChannelDefiYields:        6,
	ChannelDefiExploits:      7,
	ChannelDefiGovernance:    8,
	ChannelDefiTVL:           9,
	ChannelTokenLaunches:     10,
	ChannelBridges:           11,
	ChannelBreakingNews:      12,
	ChannelMacro:             13,
	ChannelAgentIntelligence: 14,
}

// bitChannels is the inverse of channelBits, indexed by bit position.
var bitChannels [MaxChannelBit + 1]Channel

func init() {
	for ch, bit := range channelBits {
		if bit > MaxChannelBit {
			panic(fmt.Sprintf("channel %s assigned out-of-range bit %d", ch, bit))
		}
		if bitChannels[bit] != "" {
			panic(fmt.Sprintf("channel %s reuses bit %d of %s", ch, bit, bitChannels[bit]))
		}
		bitChannels[bit] = ch
	}
}

// ParseChannel returns the Channel named by s.
func ParseChannel(s string) (Channel, error) {
	ch := Channel(strings.TrimSpace(strings.ToLower(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("unknown channel %q", s)
	}
	return ch, nil
}

// IsValid reports whether c is a member of the closed channel set.
func (c Channel) IsValid() bool {
	_, ok := channelBits[c]
	return ok
}

// Bit returns the bitmap position of c, or -1 for an unknown channel.
func (c Channel) Bit() int {
	bit, ok := channelBits[c]
	if !ok {
		return -1
	}
	return int(bit)
}

func (c Channel) String() string { return string(c) }

// AllChannels returns every known channel ordered by bit position.
func AllChannels() []Channel {
	out := make([]Channel, 0, len(channelBits))
	for _, ch := range bitChannels {
		if ch != "" {
			out = append(out, ch)
		}
	}
	return out
}

// ChannelInfo describes a channel for listing endpoints.
type ChannelInfo struct {
	Name     Channel `json:"name"`
	Bit      int     `json:"bit"`
	Category string  `json:"category"`
}

// ChannelCatalog returns descriptive entries for every channel.
func ChannelCatalog() []ChannelInfo {
	all := AllChannels()
	out := make([]ChannelInfo, len(all))
	for i, ch := range all {
		category, _, _ := strings.Cut(string(ch), "/")
		out[i] = ChannelInfo{Name: ch, Bit: ch.Bit(), Category: category}
	}
	return out
}

// ChannelSet is a compact set of channels backed by a 32-bit bitmap.
// The zero value is the empty set.
type ChannelSet uint32

// NewChannelSet builds a set from the given channels, ignoring unknown ones.
func NewChannelSet(channels ...Channel) ChannelSet {
	var s ChannelSet
	for _, ch := range channels {
		s = s.Add(ch)
	}
	return s
}

// ParseChannelSet builds a set from channel names. Any unknown name is an error.
func ParseChannelSet(names []string) (ChannelSet, error) {
	var s ChannelSet
	for _, name := range names {
		ch, err := ParseChannel(name)
		if err != nil {
			return 0, err
		}
		s = s.Add(ch)
	}
	return s, nil
}

// FromBitmap converts a raw bitmap, dropping bits with no assigned channel.
func FromBitmap(bitmap uint32) ChannelSet {
	var s ChannelSet
	for bit := 0; bit <= MaxChannelBit; bit++ {
		if bitmap&(1<<bit) != 0 && bitChannels[bit] != "" {
			s |= 1 << bit
		}
	}
	return s
}

// Bitmap returns the raw bitmap.
func (s ChannelSet) Bitmap() uint32 { return uint32(s) }

// Add returns s with ch included. Unknown channels leave s unchanged.
func (s ChannelSet) Add(ch Channel) ChannelSet {
	bit := ch.Bit()
	if bit < 0 {
		return s
	}
	return s | 1<<bit
}

// Remove returns s without ch.
func (s ChannelSet) Remove(ch Channel) ChannelSet {
	bit := ch.Bit()
	if bit < 0 {
		return s
	}
	return s &^ (1 << bit)
}

// Contains reports whether ch is in s.
func (s ChannelSet) Contains(ch Channel) bool {
	bit := ch.Bit()
	return bit >= 0 && s&(1<<bit) != 0
}

// Len returns the number of channels in s.
func (s ChannelSet) Len() int { return bits.OnesCount32(uint32(s)) }

// IsEmpty reports whether s has no channels.
func (s ChannelSet) IsEmpty() bool { return s == 0 }

// Channels returns the members of s ordered by bit position.
func (s ChannelSet) Channels() []Channel {
	out := make([]Channel, 0, s.Len())
	for bit := 0; bit <= MaxChannelBit; bit++ {
		if s&(1<<bit) != 0 && bitChannels[bit] != "" {
			out = append(out, bitChannels[bit])
		}
	}
	return out
}

// Strings returns the channel names of s ordered by bit position.
func (s ChannelSet) Strings() []string {
	chs := s.Channels()
	out := make([]string, len(chs))
	for i, ch := range chs {
		out[i] = string(ch)
	}
	return out
}

// MarshalJSON encodes the set as an array of channel names.
func (s ChannelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of channel names. Unknown names are rejected.
func (s *ChannelSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("channel set must be an array of channel names: %w", err)
	}
	parsed, err := ParseChannelSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SortChannels sorts channels in place by bit position.
func SortChannels(chs []Channel) {
	sort.Slice(chs, func(i, j int) bool { return chs[i].Bit() < chs[j].Bit() })
}

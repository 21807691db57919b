// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package classify

import (
	"regexp"
	"strings"

	"github.com/tomtom215/newswire/internal/models"
)

// rule assigns a channel when any of its patterns matches. Rules are
// evaluated in order and the first match wins, so the more specific
// channels come first.
type rule struct {
	channel  models.Channel
	patterns []*regexp.Regexp
}

func words(ws ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(ws))
	for i, w := range ws {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

var rules = []rule{
	{models.ChannelDefiExploits, words("exploit", "exploited", "hack", "hacked", "drained", "rug pull", "flash loan attack", "reentrancy")},
	{models.ChannelLiquidations, words("liquidation", "liquidations", "liquidated", "margin call")},
	{models.ChannelWhaleMovements, words("whale", "whales", "large transfer", "moved from unknown wallet")},
	{models.ChannelExchangeFlows, words("exchange inflow", "exchange outflow", "inflows", "outflows", "net flow", "exchange reserves")},
	{models.ChannelBridges, words("bridge", "bridged", "cross-chain", "wormhole", "layerzero")},
	{models.ChannelTokenLaunches, words("token launch", "launches token", "tge", "airdrop", "listing", "will list", "new token")},
	{models.ChannelDefiGovernance, words("governance", "proposal", "dao vote", "snapshot vote", "quorum")},
	{models.ChannelDefiTVL, words("tvl", "total value locked")},
	{models.ChannelDefiYields, words("apy", "apr", "yield", "yields", "staking rewards")},
	{models.ChannelRegulatoryCFTC, words("cftc", "commodity futures trading commission")},
	{models.ChannelRegulatorySEC, words("sec", "securities and exchange commission", "form 8-k", "form 10-k", "13f", "edgar")},
	{models.ChannelRegulatoryGlobal, words("fca", "esma", "mica", "finma", "mas", "regulator", "regulators", "central bank digital")},
	{models.ChannelMacro, words("fed", "fomc", "cpi", "inflation", "interest rate", "rate cut", "rate hike", "gdp", "payrolls", "treasury yields")},
}

// MatchRules returns the first channel whose keywords occur in text.
func MatchRules(text string) (models.Channel, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				return r.channel, true
			}
		}
	}
	return "", false
}

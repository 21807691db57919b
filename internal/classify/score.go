// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package classify

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/newswire/internal/models"
)

var (
	bullishTerms = words("approves", "approved", "approval", "surge", "surges", "soars", "rally", "rallies",
		"record high", "all-time high", "inflows", "partnership", "launches", "upgrade", "adopts", "buys", "rate cut")
	bearishTerms = words("rejects", "rejected", "denies", "plunge", "plunges", "crash", "crashes", "exploit",
		"hack", "hacked", "drained", "lawsuit", "sues", "charges", "fraud", "outflows", "liquidated",
		"delist", "delists", "halts", "ban", "bans", "rate hike", "insolvent", "bankruptcy")
	urgentTerms = words("breaking", "urgent", "emergency", "halted", "exploit", "hacked", "drained", "insolvent")

	// $12.5M, 1.2 billion, 40,000 BTC
	reMagnitude = regexp.MustCompile(`(?i)\$?\s?(\d+(?:[.,]\d+)*)\s?(k|m|mn|b|bn|million|billion|thousand)?\b`)
)

// channelBaseImpact is the starting impact score per channel.
var channelBaseImpact = map[models.Channel]float64{
	models.ChannelRegulatorySEC:     6,
	models.ChannelRegulatoryCFTC:    5.5,
	models.ChannelRegulatoryGlobal:  4.5,
	models.ChannelWhaleMovements:    4,
	models.ChannelLiquidations:      5,
	models.ChannelExchangeFlows:     3.5,
	models.ChannelDefiYields:        2.5,
	models.ChannelDefiExploits:      7,
	models.ChannelDefiGovernance:    3,
	models.ChannelDefiTVL:           3,
	models.ChannelTokenLaunches:     3.5,
	models.ChannelBridges:           4,
	models.ChannelBreakingNews:      5,
	models.ChannelMacro:             5,
	models.ChannelAgentIntelligence: 4,
}

func countMatches(res []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range res {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// ScoreSentiment classifies text as bullish, bearish or mixed. One side
// must outnumber the other two to one to win. Text with no directional
// terms has no sentiment.
func ScoreSentiment(text string) models.Sentiment {
	bull := countMatches(bullishTerms, text)
	bear := countMatches(bearishTerms, text)
	switch {
	case bull == 0 && bear == 0:
		return ""
	case bull > bear*2:
		return models.SentimentBullish
	case bear > bull*2:
		return models.SentimentBearish
	default:
		return models.SentimentMixed
	}
}

// ScoreImpact returns a 0-10 impact score rounded to one decimal. The
// second result is false for channels with no baseline.
func ScoreImpact(ch models.Channel, text string) (float64, bool) {
	base, ok := channelBaseImpact[ch]
	if !ok {
		return 0, false
	}
	score := base
	score += 1.5 * math.Min(float64(countMatches(urgentTerms, text)), 2)
	score += magnitudeBoost(text)
	score = math.Max(0, math.Min(models.MaxImpactScore, score))
	return math.Round(score*10) / 10, true
}

// magnitudeBoost adds up to 2.5 points for large dollar or unit amounts.
func magnitudeBoost(text string) float64 {
	largest := 0.0
	for _, m := range reMagnitude.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "k", "thousand":
			v *= 1e3
		case "m", "mn", "million":
			v *= 1e6
		case "b", "bn", "billion":
			v *= 1e9
		}
		if v > largest {
			largest = v
		}
	}
	switch {
	case largest >= 1e9:
		return 2.5
	case largest >= 1e8:
		return 2
	case largest >= 1e7:
		return 1.5
	case largest >= 1e6:
		return 1
	default:
		return 0
	}
}

// PriorityFor maps an impact score to a priority. Urgent wording lifts the
// result by one level. No score yields medium.
func PriorityFor(impact *float64, text string) models.Priority {
	if impact == nil {
		return models.PriorityMedium
	}
	var p models.Priority
	switch s := *impact; {
	case s >= 8:
		p = models.PriorityCritical
	case s >= 6:
		p = models.PriorityHigh
	case s >= 3:
		p = models.PriorityMedium
	default:
		p = models.PriorityLow
	}
	if countMatches(urgentTerms, text) > 0 {
		switch p {
		case models.PriorityLow:
			p = models.PriorityMedium
		case models.PriorityMedium:
			p = models.PriorityHigh
		case models.PriorityHigh:
			p = models.PriorityCritical
		}
	}
	return p
}

// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxExtracted = 16

var (
	// $TSLA, $btc
	reCashtag = regexp.MustCompile(`\$([A-Za-z]{1,6})\b`)
	// NASDAQ:TSLA, NYSE: GME
	reExchangeTicker = regexp.MustCompile(`\b(?:NASDAQ|NYSE|AMEX|OTC|LSE|TSX)\s*:\s*([A-Z]{1,6})\b`)
	// "Bybit Will List BIRB (BIRB)" → BIRB
	reParenSymbol = regexp.MustCompile(`\(([A-Z][A-Z0-9]{1,9})\)`)
	// OPNUSDT → OPN
	reUSDTPair  = regexp.MustCompile(`\b([A-Z]{2,10})(?:USDT|USDC)\b`)
	reUpperWord = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}\b`)
	reSpace     = regexp.MustCompile(`\s+`)
)

// knownTokens are symbols recognised as crypto tokens wherever they appear
// as a standalone uppercase word.
var knownTokens = map[string]bool{
	"BTC": true, "ETH": true, "SOL": true, "USDT": true, "USDC": true,
	"BNB": true, "XRP": true, "ADA": true, "DOGE": true, "AVAX": true,
	"DOT": true, "LINK": true, "MATIC": true, "POL": true, "ARB": true,
	"OP": true, "UNI": true, "AAVE": true, "MKR": true, "LDO": true,
	"DAI": true, "TRX": true, "TON": true, "SUI": true, "APT": true,
	"ATOM": true, "NEAR": true, "PEPE": true, "SHIB": true, "WBTC": true,
	"STETH": true, "CRV": true, "JUP": true, "TIA": true, "SEI": true,
}

// stopSymbols are uppercase words that look like symbols but are not.
var stopSymbols = map[string]bool{
	"WILL": true, "LIST": true, "THE": true, "AND": true, "FOR": true,
	"NEW": true, "NOW": true, "USD": true, "SPOT": true, "PAIR": true,
	"PAIRS": true, "TGE": true, "IEO": true, "ICO": true, "CEO": true,
	"SEC": true, "CFTC": true, "ETF": true, "ETFS": true, "FED": true,
	"FOMC": true, "CPI": true, "GDP": true, "DAO": true, "TVL": true,
	"APY": true, "APR": true, "NFT": true, "API": true, "US": true,
	"UK": true, "EU": true, "IPO": true, "AI": true,
}

// knownEntities maps a lowercase match key to its canonical name.
var knownEntities = map[string]string{
	"sec":                                 "SEC",
	"securities and exchange commission": "SEC",
	"cftc":                                "CFTC",
	"federal reserve":                     "Federal Reserve",
	"fomc":                                "FOMC",
	"ecb":                                 "ECB",
	"fca":                                 "FCA",
	"esma":                                "ESMA",
	"binance":                             "Binance",
	"coinbase":                            "Coinbase",
	"kraken":                              "Kraken",
	"okx":                                 "OKX",
	"bybit":                               "Bybit",
	"blackrock":                           "BlackRock",
	"grayscale":                           "Grayscale",
	"tether":                              "Tether",
	"microstrategy":                       "MicroStrategy",
	"uniswap":                             "Uniswap",
	"aave":                                "Aave",
	"lido":                                "Lido",
	"makerdao":                            "MakerDAO",
	"wormhole":                            "Wormhole",
	"layerzero":                           "LayerZero",
	"ethereum foundation":                 "Ethereum Foundation",
}

var entityPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(knownEntities))
	for k := range knownEntities {
		m[k] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(k) + `\b`)
	}
	return m
}()

// StripHTML returns the text content of an HTML fragment. Plain text passes
// through unchanged apart from entity decoding.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

func collapseSpace(s string) string {
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

// ExtractTickers returns equity tickers written as cashtags or with an
// exchange prefix, uppercased, in order of first appearance. Cashtags of
// known crypto symbols are left to ExtractTokens.
func ExtractTickers(text string) []string {
	type hit struct {
		pos int
		sym string
	}
	var hits []hit
	for _, m := range reExchangeTicker.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{m[2], text[m[2]:m[3]]})
	}
	for _, m := range reCashtag.FindAllStringSubmatchIndex(text, -1) {
		sym := strings.ToUpper(text[m[2]:m[3]])
		if !knownTokens[sym] {
			hits = append(hits, hit{m[2], sym})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	acc := newOrderedSet()
	for _, h := range hits {
		acc.add(h.sym)
	}
	return acc.items()
}

// ExtractTokens returns crypto token symbols: known symbols, parenthesised
// symbols and the base of USDT/USDC pairs.
func ExtractTokens(text string) []string {
	acc := newOrderedSet()
	for _, m := range reParenSymbol.FindAllStringSubmatch(text, -1) {
		if !stopSymbols[m[1]] {
			acc.add(m[1])
		}
	}
	for _, m := range reUSDTPair.FindAllStringSubmatch(text, -1) {
		if !stopSymbols[m[1]] {
			acc.add(m[1])
		}
	}
	for _, m := range reCashtag.FindAllStringSubmatch(text, -1) {
		if sym := strings.ToUpper(m[1]); knownTokens[sym] {
			acc.add(sym)
		}
	}
	for _, w := range reUpperWord.FindAllString(text, -1) {
		if knownTokens[w] {
			acc.add(w)
		}
	}
	return acc.items()
}

// ExtractEntities returns the canonical names of known organisations found
// in text, sorted by first occurrence.
func ExtractEntities(text string) []string {
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	seen := make(map[string]bool)
	for key, re := range entityPatterns {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		name := knownEntities[key]
		if seen[name] {
			// keep the earliest alias
			for i := range hits {
				if hits[i].name == name && loc[0] < hits[i].pos {
					hits[i].pos = loc[0]
				}
			}
			continue
		}
		seen[name] = true
		hits = append(hits, hit{loc[0], name})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].name < hits[j].name
	})
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if len(out) == maxExtracted {
			break
		}
		out = append(out, h.name)
	}
	return out
}

type orderedSet struct {
	seen  map[string]bool
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (o *orderedSet) add(s string) {
	if s == "" || o.seen[s] || len(o.order) >= maxExtracted {
		return
	}
	o.seen[s] = true
	o.order = append(o.order, s)
}

func (o *orderedSet) items() []string {
	if o.order == nil {
		return []string{}
	}
	return o.order
}

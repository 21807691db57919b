// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package classify maps raw source items to a channel and derives the
// enrichment fields of an alert: entities, tickers, tokens, sentiment, an
// impact score and a priority.
//
// Everything here is a pure function of the item and the source map. The
// ingestion pipeline calls Classify once per item; a failure, including a
// panic, affects only that item.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/models"
)

// ErrEmptyItem is returned for items with no usable headline.
var ErrEmptyItem = errors.New("raw item has no headline")

// Classification is the derived metadata for one raw item.
type Classification struct {
	Channel     models.Channel
	Headline    string
	Summary     string
	Entities    []string
	Tickers     []string
	Tokens      []string
	Sentiment   models.Sentiment
	ImpactScore *float64
	Priority    models.Priority
}

// Classifier holds the source→channel map.
type Classifier struct {
	sources        map[string]models.Channel
	defaultChannel models.Channel
}

// New builds a Classifier. Unknown channel names in sources are rejected.
func New(sources map[string]string, defaultChannel string) (*Classifier, error) {
	def, err := models.ParseChannel(defaultChannel)
	if err != nil {
		return nil, fmt.Errorf("default channel: %w", err)
	}
	c := &Classifier{
		sources:        make(map[string]models.Channel, len(sources)),
		defaultChannel: def,
	}
	for name, chName := range sources {
		ch, err := models.ParseChannel(chName)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		c.sources[strings.ToLower(name)] = ch
	}
	return c, nil
}

// NewFromConfig builds a Classifier from the ingest section.
func NewFromConfig(cfg *config.IngestConfig) (*Classifier, error) {
	return New(cfg.Sources, cfg.DefaultChannel)
}

// Classify derives the classification of item. Panics in the heuristics
// are recovered and returned as errors.
func (c *Classifier) Classify(item *models.RawItem) (cl Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			cl = Classification{}
			err = fmt.Errorf("classify: panic: %v", r)
		}
	}()
	return c.classify(item)
}

func (c *Classifier) classify(item *models.RawItem) (Classification, error) {
	headline := collapseSpace(StripHTML(item.Title))
	if headline == "" {
		return Classification{}, ErrEmptyItem
	}
	summary := collapseSpace(StripHTML(item.Summary))
	text := headline + " " + summary

	cl := Classification{
		Channel:  c.channelFor(item, text),
		Headline: headline,
		Summary:  summary,
		Entities: ExtractEntities(text),
		Tickers:  ExtractTickers(text),
		Tokens:   ExtractTokens(text),
	}
	cl.Sentiment = ScoreSentiment(text)
	if score, ok := ScoreImpact(cl.Channel, text); ok {
		cl.ImpactScore = &score
	}
	cl.Priority = PriorityFor(cl.ImpactScore, text)

	// adapters may pin a priority they know better
	if p, ok := item.Metadata["priority"]; ok {
		if parsed, err := models.ParsePriority(p); err == nil {
			cl.Priority = parsed
		}
	}
	return cl, nil
}

// channelFor resolves the channel: an explicit valid hint wins, then the
// configured source mapping, then keyword rules, then the default.
func (c *Classifier) channelFor(item *models.RawItem, text string) models.Channel {
	if item.Channel.IsValid() {
		return item.Channel
	}
	if ch, ok := c.sources[strings.ToLower(item.Source)]; ok {
		return ch
	}
	if ch, ok := MatchRules(text); ok {
		return ch
	}
	return c.defaultChannel
}

// DefaultChannel is the fallback channel.
func (c *Classifier) DefaultChannel() models.Channel {
	return c.defaultChannel
}

// SourceChannel returns the configured channel for a source name.
func (c *Classifier) SourceChannel(source string) (models.Channel, bool) {
	ch, ok := c.sources[strings.ToLower(source)]
	return ch, ok
}

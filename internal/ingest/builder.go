// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tomtom215/newswire/internal/classify"
	"github.com/tomtom215/newswire/internal/dedup"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
)

// Draft is the validated, classified content of an alert before it has an
// identity.
type Draft struct {
	Channel     models.Channel
	Priority    models.Priority
	Sentiment   models.Sentiment
	ImpactScore *float64

	Headline  string
	Summary   string
	Entities  []string
	Tickers   []string
	Tokens    []string
	SourceURL string

	// SourceType is models.SourceTypeFeed or models.SourceTypeAgent.
	SourceType    string
	PublisherID   string
	PublisherName string

	// Source names the adapter or publisher, recorded with the fingerprint.
	Source string
}

// DraftFromClassification builds a feed draft for item.
func DraftFromClassification(item *models.RawItem, cl classify.Classification) Draft {
	return Draft{
		Channel:     cl.Channel,
		Priority:    cl.Priority,
		Sentiment:   cl.Sentiment,
		ImpactScore: cl.ImpactScore,
		Headline:    cl.Headline,
		Summary:     cl.Summary,
		Entities:    cl.Entities,
		Tickers:     cl.Tickers,
		Tokens:      cl.Tokens,
		SourceURL:   item.Link,
		SourceType:  models.SourceTypeFeed,
		Source:      item.Source,
	}
}

// Fingerprint is the dedup key of the draft.
func (d *Draft) Fingerprint() string {
	return dedup.Fingerprint(truncateRunes(d.Headline, models.MaxHeadlineLength), d.Channel)
}

// IDGenerator returns a new unique alert id.
type IDGenerator func() string

// Builder assembles alerts and inserts each one exactly once.
type Builder struct {
	alerts store.AlertStore
	newID  IDGenerator
	now    func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithIDGenerator replaces the default uuid generator.
func WithIDGenerator(gen IDGenerator) BuilderOption {
	return func(b *Builder) { b.newID = gen }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder writing to alerts.
func NewBuilder(alerts store.AlertStore, opts ...BuilderOption) *Builder {
	b := &Builder{
		alerts: alerts,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates the alert for d and persists it with a single insert.
// A uniqueness conflict is returned as store.ErrDuplicate.
func (b *Builder) Build(ctx context.Context, d Draft) (*models.Alert, error) {
	if !d.Channel.IsValid() {
		return nil, fmt.Errorf("build alert: invalid channel %q", d.Channel)
	}
	priority := d.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	sourceType := d.SourceType
	if sourceType == "" {
		sourceType = models.SourceTypeFeed
	}
	headline := truncateRunes(d.Headline, models.MaxHeadlineLength)
	summary := truncateRunes(d.Summary, models.MaxSummaryLength)

	alert := &models.Alert{
		AlertID:       b.newID(),
		Channel:       d.Channel,
		Priority:      priority,
		Sentiment:     d.Sentiment,
		ImpactScore:   d.ImpactScore,
		Headline:      headline,
		Summary:       summary,
		Entities:      nonNil(d.Entities),
		Tickers:       nonNil(d.Tickers),
		Tokens:        nonNil(d.Tokens),
		SourceURL:     d.SourceURL,
		SourceType:    sourceType,
		PublisherID:   d.PublisherID,
		PublisherName: d.PublisherName,
		Timestamp:     b.now().UTC(),
		Fingerprint:   dedup.Fingerprint(headline, d.Channel),
		ContentHash:   dedup.ContentHash(d.Channel, headline, summary, d.SourceURL),
	}

	if err := b.alerts.InsertAlert(ctx, alert); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	return alert, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

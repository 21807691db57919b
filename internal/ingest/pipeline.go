// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/newswire/internal/bus"
	"github.com/tomtom215/newswire/internal/classify"
	"github.com/tomtom215/newswire/internal/dedup"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/metrics"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
)

// ErrClassify marks items the classifier could not handle. Retrying them
// cannot succeed.
var ErrClassify = errors.New("classification failed")

// Emitter receives every newly created alert.
type Emitter interface {
	PublishAlert(ctx context.Context, alert *models.Alert) error
}

// Classifier is the subset of *classify.Classifier used by the pipeline.
type Classifier interface {
	Classify(item *models.RawItem) (classify.Classification, error)
}

// PipelineDeps wires the pipeline's collaborators.
type PipelineDeps struct {
	Dedup      *dedup.Deduplicator
	Classifier Classifier
	Builder    *Builder
	// Emitter may be nil, in which case alerts are stored but not announced.
	Emitter Emitter
}

// Pipeline turns raw items into stored, announced alerts.
type Pipeline struct {
	dedup      *dedup.Deduplicator
	classifier Classifier
	builder    *Builder
	emitter    Emitter
}

// BatchResult counts the outcome of ProcessBatch.
type BatchResult struct {
	Accepted   int      `json:"accepted"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
	AlertIDs   []string `json:"alertIds"`
}

// NewPipeline constructs the pipeline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		dedup:      deps.Dedup,
		classifier: deps.Classifier,
		builder:    deps.Builder,
		emitter:    deps.Emitter,
	}
}

// Process classifies item and admits it. A duplicate returns store.ErrDuplicate.
func (p *Pipeline) Process(ctx context.Context, item *models.RawItem) (*models.Alert, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: %w", ErrClassify, classify.ErrEmptyItem)
	}
	cl, err := p.classifier.Classify(item)
	if err != nil {
		return nil, fmt.Errorf("%w: item from %s: %w", ErrClassify, item.Source, err)
	}
	return p.Admit(ctx, DraftFromClassification(item, cl))
}

// Admit runs the dedup and build steps for a draft and emits the result.
// Publisher intake enters here with its own drafts.
//
// The seen-set is keyed by (headline, channel), so the channel must be known
// before the check. Nothing before the check mutates state.
func (p *Pipeline) Admit(ctx context.Context, d Draft) (*models.Alert, error) {
	fp := d.Fingerprint()
	dup, err := p.dedup.Check(ctx, fp, d.Source)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if dup {
		return nil, store.ErrDuplicate
	}

	alert, err := p.builder.Build(ctx, d)
	if err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			// Let a later retry of the same content through.
			p.dedup.Forget(ctx, fp)
		}
		return nil, err
	}

	if p.emitter != nil {
		if err := p.emitter.PublishAlert(ctx, alert); err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("alert_id", alert.AlertID).
				Str("channel", string(alert.Channel)).
				Msg("Failed to announce alert")
		}
	}
	return alert, nil
}

// ProcessBatch processes items independently and synchronously, bypassing
// the bus. A failure affects only its own item.
func (p *Pipeline) ProcessBatch(ctx context.Context, items []*models.RawItem) BatchResult {
	res := BatchResult{AlertIDs: []string{}}
	for _, item := range items {
		if ctx.Err() != nil {
			res.Failed++
			continue
		}
		alert, err := p.Process(ctx, item)
		switch {
		case err == nil:
			res.Accepted++
			res.AlertIDs = append(res.AlertIDs, alert.AlertID)
			metrics.RecordIngest(metrics.IngestAccepted)
		case errors.Is(err, store.ErrDuplicate):
			res.Duplicates++
			metrics.RecordIngest(metrics.IngestDuplicate)
		default:
			res.Failed++
			metrics.RecordIngest(metrics.IngestFailed)
			logItemFailure(ctx, item, err)
		}
	}
	return res
}

// HandleRawItem is the bus consumer for raw items. Duplicates are consumed
// silently; unclassifiable items are permanent failures; store trouble is
// retried.
func (p *Pipeline) HandleRawItem(ctx context.Context, item *models.RawItem) error {
	alert, err := p.Process(ctx, item)
	switch {
	case err == nil:
		metrics.RecordIngest(metrics.IngestAccepted)
		logging.Ctx(ctx).Debug().
			Str("alert_id", alert.AlertID).
			Str("channel", string(alert.Channel)).
			Str("source", item.Source).
			Msg("Alert created")
		return nil
	case errors.Is(err, store.ErrDuplicate):
		metrics.RecordIngest(metrics.IngestDuplicate)
		return nil
	case errors.Is(err, ErrClassify):
		metrics.RecordIngest(metrics.IngestFailed)
		logItemFailure(ctx, item, err)
		return bus.NewPermanentError("unclassifiable item", err)
	default:
		metrics.RecordIngest(metrics.IngestFailed)
		logItemFailure(ctx, item, err)
		return bus.NewRetryableError("ingest item", err)
	}
}

func logItemFailure(ctx context.Context, item *models.RawItem, err error) {
	ev := logging.Ctx(ctx).Warn().Err(err)
	if item != nil {
		ev = ev.Str("source", item.Source).Str("title", item.Title)
	}
	ev.Msg("Failed to ingest item")
}

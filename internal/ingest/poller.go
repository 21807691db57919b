// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/models"
)

// RawPublisher queues raw items for the pipeline.
type RawPublisher interface {
	PublishRawItems(ctx context.Context, items []*models.RawItem) (int, error)
}

// Poller fetches every source on an interval and publishes new items.
// Items returned by the previous fetch of the same source are not
// republished; the deduplicator catches anything older.
type Poller struct {
	sources  []Source
	out      RawPublisher
	interval time.Duration

	mu       sync.Mutex
	previous map[string]map[string]struct{}
}

// NewPoller creates a poller. A zero interval defaults to one minute.
func NewPoller(sources []Source, out RawPublisher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		sources:  sources,
		out:      out,
		interval: interval,
		previous: make(map[string]map[string]struct{}),
	}
}

// Serve implements suture.Service. It polls once immediately, then on every
// tick until ctx is canceled.
func (p *Poller) Serve(ctx context.Context) error {
	if len(p.sources) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	logging.Info().Int("sources", len(p.sources)).Dur("interval", p.interval).Msg("Starting source poller")

	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Source poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (p *Poller) String() string { return "source-poller" }

// PollOnce fetches all sources concurrently and returns the number of items
// published. One failing source does not affect the others.
func (p *Poller) PollOnce(ctx context.Context) int {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for _, src := range p.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			n := p.pollSource(ctx, src)
			mu.Lock()
			total += n
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return total
}

func (p *Poller) pollSource(ctx context.Context, src Source) int {
	items, err := src.Fetch(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("source", src.Name()).Msg("Source fetch failed")
		return 0
	}

	fresh := p.filterFresh(src.Name(), items)
	if len(fresh) == 0 {
		return 0
	}
	n, err := p.out.PublishRawItems(ctx, fresh)
	if err != nil {
		logging.Warn().Err(err).Str("source", src.Name()).Int("published", n).Msg("Publishing raw items failed")
		// Keep unpublished items eligible for the next poll.
		p.forget(src.Name(), fresh[n:])
	}
	logging.Debug().Str("source", src.Name()).Int("items", n).Msg("Polled source")
	return n
}

func itemKey(item *models.RawItem) string {
	switch {
	case item.ID != "":
		return item.ID
	case item.Link != "":
		return item.Link
	default:
		return item.Title
	}
}

// filterFresh drops items seen in the previous fetch and remembers this one.
func (p *Poller) filterFresh(source string, items []*models.RawItem) []*models.RawItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.previous[source]
	current := make(map[string]struct{}, len(items))
	fresh := make([]*models.RawItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if item.Source == "" {
			item.Source = source
		}
		key := itemKey(item)
		current[key] = struct{}{}
		if _, seen := prev[key]; !seen {
			fresh = append(fresh, item)
		}
	}
	p.previous[source] = current
	return fresh
}

func (p *Poller) forget(source string, items []*models.RawItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range items {
		delete(p.previous[source], itemKey(item))
	}
}

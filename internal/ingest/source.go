// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mmcdole/gofeed"

	"github.com/tomtom215/newswire/internal/models"
)

// Source is a polling adapter that returns raw items.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]*models.RawItem, error)
}

// maxFeedBytes caps a single feed response.
const maxFeedBytes = 2 << 20

// FeedSource polls an RSS, Atom or JSON endpoint.
type FeedSource struct {
	name   string
	url    string
	client *http.Client
}

// NewFeedSource creates a feed adapter. client may be nil.
func NewFeedSource(name, url string, client *http.Client) *FeedSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &FeedSource{name: name, url: url, client: client}
}

// ParseFeeds builds feed sources from "name=url" entries.
func ParseFeeds(entries []string, client *http.Client) ([]Source, error) {
	sources := make([]Source, 0, len(entries))
	for _, e := range entries {
		name, url, ok := strings.Cut(e, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("feed %q: want name=url", e)
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, fmt.Errorf("feed %q: url must be http or https", name)
		}
		sources = append(sources, NewFeedSource(name, url, client))
	}
	return sources, nil
}

// Name implements Source.
func (f *FeedSource) Name() string { return f.name }

// Fetch implements Source.
func (f *FeedSource) Fetch(ctx context.Context) ([]*models.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/json, text/xml")
	req.Header.Set("User-Agent", "newswire/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", f.name, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.name, err)
	}
	items, err := ParseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.name, err)
	}
	for _, item := range items {
		item.Source = f.name
	}
	return items, nil
}

// ParseFeed decodes an RSS, Atom or JSON Feed document. A JSON array of
// items, or an object with an "items" array and no JSON Feed version, is
// read as raw items directly so adapters can pass channel hints.
func ParseFeed(body []byte) ([]*models.RawItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty feed")
	}
	switch trimmed[0] {
	case '[':
		var items []*models.RawItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode json feed: %w", err)
		}
		return items, nil
	case '{':
		var wrapped struct {
			Version string            `json:"version"`
			Items   []*models.RawItem `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode json feed: %w", err)
		}
		if !strings.Contains(wrapped.Version, "jsonfeed.org") {
			return wrapped.Items, nil
		}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	items := make([]*models.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, fromFeedItem(it))
	}
	return items, nil
}

func fromFeedItem(it *gofeed.Item) *models.RawItem {
	summary := it.Description
	if summary == "" {
		summary = it.Content
	}
	link := strings.TrimSpace(it.Link)
	if link == "" && len(it.Links) > 0 {
		link = strings.TrimSpace(it.Links[0])
	}
	item := &models.RawItem{
		ID:      it.GUID,
		Title:   strings.TrimSpace(it.Title),
		Summary: summary,
		Link:    link,
	}
	switch {
	case it.PublishedParsed != nil:
		item.PublishedAt = it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		item.PublishedAt = it.UpdatedParsed.UTC()
	}
	return item
}

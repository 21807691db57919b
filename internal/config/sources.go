// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// sourcesFile is the standalone source map format:
//
//	sources:
//	  sec-edgar: regulatory/sec
//	  whale-alert: markets/whale-movements
type sourcesFile struct {
	Sources map[string]string `yaml:"sources"`
}

// loadSourcesFile merges Ingest.SourcesFile into Ingest.Sources. Entries
// from the main config win over the file.
func (c *Config) loadSourcesFile() error {
	if c.Ingest.SourcesFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.Ingest.SourcesFile)
	if err != nil {
		return fmt.Errorf("failed to read sources file %s: %w", c.Ingest.SourcesFile, err)
	}
	var sf sourcesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("failed to parse sources file %s: %w", c.Ingest.SourcesFile, err)
	}
	if c.Ingest.Sources == nil {
		c.Ingest.Sources = make(map[string]string, len(sf.Sources))
	}
	for source, channel := range sf.Sources {
		if _, exists := c.Ingest.Sources[source]; !exists {
			c.Ingest.Sources[source] = channel
		}
	}
	return nil
}

// Copyright 2025 The Legal-MCP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog serves offline, read-only discovery of document
// identifiers per source.
//
// Each source is backed by a bundled SQLite database built at dev time from
// a discovery snapshot. The runtime only reads: no network IO, no writes.
// Content retrieval stays on-demand elsewhere.
//
// Schema (required), table "documents":
//
//	source TEXT NOT NULL
//	document_id TEXT NOT NULL
//	canonical_url TEXT NOT NULL
//	document_type_prefix TEXT NOT NULL
//	PRIMARY KEY (source, document_id)
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Pagination bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Known sources.
const (
	SourceBerlin = "de-state-berlin-bsbe"
)

var (
	// ErrCatalogNotFound means the source is unknown or its database file
	// is missing.
	ErrCatalogNotFound = errors.New("catalog not found")

	// ErrCatalogCorrupt means the database could not be opened or its
	// schema is wrong.
	ErrCatalogCorrupt = errors.New("catalog database invalid")

	// ErrInvalidQuery rejects out-of-bounds pagination or prefixes.
	ErrInvalidQuery = errors.New("invalid catalog query")
)

// Source describes one registered catalog source.
type Source struct {
	// Name is the stable source identifier used as tool input.
	Name string

	// SQLitePath locates the backing database file.
	SQLitePath string

	// Version is a build marker for the database contents (timestamp,
	// git SHA).
	Version string
}

// Item is one catalog entry returned by a query.
type Item struct {
	DocumentID         string `json:"document_id"`
	CanonicalURL       string `json:"canonical_url"`
	DocumentTypePrefix string `json:"document_type_prefix"`
}

// QueryResult is the structured response of a catalog query.
type QueryResult struct {
	Source         string         `json:"source"`
	CatalogVersion string         `json:"catalog_version"`
	Prefix         string         `json:"prefix,omitempty"`
	Offset         int            `json:"offset"`
	Limit          int            `json:"limit"`
	CountTotal     int            `json:"count_total"`
	CountFiltered  int            `json:"count_filtered"`
	PrefixCounts   map[string]int `json:"prefix_counts"`
	Items          []Item         `json:"items"`
}

// Registry maps source names to their databases. Configured at startup and
// read-only afterwards.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source. Duplicate or empty names are rejected.
func (r *Registry) Register(src Source) error {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		return fmt.Errorf("catalog source must be a non-empty string")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("catalog source already registered: %s", name)
	}
	src.Name = name
	r.sources[name] = src
	return nil
}

// Get looks up a registered source.
func (r *Registry) Get(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[strings.TrimSpace(name)]
	if !ok {
		return Source{}, fmt.Errorf("%w: unknown source %q", ErrCatalogNotFound, name)
	}
	return src, nil
}

// Sources lists registered source names, sorted.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizePrefix maps a raw prefix filter to the source's vocabulary.
// Berlin accepts "jlr"/"jlr-" and "NJRE" (case-insensitive); other sources
// pass through trimmed.
func NormalizePrefix(source, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", nil
	}
	if source == SourceBerlin {
		switch {
		case strings.HasPrefix(strings.ToLower(prefix), "jlr"):
			return "jlr", nil
		case strings.HasPrefix(strings.ToUpper(prefix), "NJRE"):
			return "NJRE", nil
		default:
			return "", fmt.Errorf("%w: prefix must be one of 'jlr'/'jlr-' or 'NJRE'", ErrInvalidQuery)
		}
	}
	return prefix, nil
}

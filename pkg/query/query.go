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

// Package query builds filter expressions, embeds queries and executes
// semantic search over the corpus and tenant collections. Tenant scoping
// is pinned here before any call reaches the vector store.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/legalmcp/legalmcp/pkg/chunking"
	"github.com/legalmcp/legalmcp/pkg/embedder"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

// Query bounds.
const (
	MinQueryChars       = 2
	MaxQueryChars       = 1000
	DefaultResults      = 10
	MaxResults          = 50
	DefaultExcerptChars = 500
)

var (
	// ErrInvalidQuery rejects malformed search input.
	ErrInvalidQuery = errors.New("invalid search input")

	// ErrNormNotFound means no document matches the requested identifier.
	ErrNormNotFound = errors.New("norm not found")
)

// Engine executes searches against the vector store.
type Engine struct {
	embedder embedder.Provider
	store    *vector.Store
	chunkCfg chunking.Config
}

// New creates a query engine. The chunking config must match the one used
// at ingestion time so multi-chunk documents reassemble without seams.
func New(provider embedder.Provider, store *vector.Store, chunkCfg chunking.Config) *Engine {
	if chunkCfg.SizeChars < 1 {
		chunkCfg = chunking.DefaultConfig()
	}
	return &Engine{embedder: provider, store: store, chunkCfg: chunkCfg}
}

// Hit is one ranked search result. Excerpt is a bounded prefix of the
// chunk content; full content comes only from explicit retrieval.
type Hit struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Similarity float32        `json:"similarity"`
	Excerpt    string         `json:"excerpt"`
	Metadata   map[string]any `json:"metadata"`
}

// CorpusQuery searches the shared corpus.
type CorpusQuery struct {
	// Query text, 2 to 1000 characters.
	Query string

	// LawAbbrev filters by law abbreviation ("BGB"); optional.
	LawAbbrev string

	// Level filters by document level, "norm" or "paragraph"; optional.
	Level string

	// NResults bounds the hit count, 1 to 50; 0 means the default.
	NResults int
}

// UserQuery searches a tenant's documents.
type UserQuery struct {
	Query    string
	TenantID string

	// Optional equality filters.
	CaseID     string
	DocumentID string
	SourceName string
	Tag        string

	// NResults bounds the hit count, 1 to 50; 0 means the default.
	NResults int

	// ExcerptChars bounds the excerpt; 0 means the default of 500.
	ExcerptChars int
}

// SearchCorpus embeds the query and runs a filtered search over the
// shared corpus.
func (e *Engine) SearchCorpus(ctx context.Context, q CorpusQuery) ([]Hit, error) {
	if err := validateQueryText(q.Query); err != nil {
		return nil, err
	}
	topK, err := normalizeResults(q.NResults)
	if err != nil {
		return nil, err
	}

	var preds []vector.Predicate
	if q.LawAbbrev != "" {
		preds = append(preds, vector.Eq("law_abbrev", strings.ToUpper(q.LawAbbrev)))
	}
	if q.Level != "" {
		if q.Level != "norm" && q.Level != "paragraph" {
			return nil, fmt.Errorf("%w: level must be \"norm\" or \"paragraph\"", ErrInvalidQuery)
		}
		preds = append(preds, vector.Eq("level", q.Level))
	}

	queryVec, err := e.embedQuery(ctx, q.Query)
	if err != nil {
		return nil, err
	}

	results, err := e.store.SearchCorpus(ctx, queryVec, topK, vector.And(preds...))
	if err != nil {
		return nil, err
	}
	return toHits(results, DefaultExcerptChars), nil
}

// SearchUser embeds the query and runs a tenant-scoped search. The tenant
// predicate always comes first in the filter.
func (e *Engine) SearchUser(ctx context.Context, q UserQuery) ([]Hit, error) {
	if q.TenantID == "" {
		return nil, vector.ErrTenantRequired
	}
	if err := validateQueryText(q.Query); err != nil {
		return nil, err
	}
	topK, err := normalizeResults(q.NResults)
	if err != nil {
		return nil, err
	}
	excerptChars := q.ExcerptChars
	if excerptChars < 1 {
		excerptChars = DefaultExcerptChars
	}

	preds := []vector.Predicate{vector.Eq("tenant_id", q.TenantID)}
	if q.CaseID != "" {
		preds = append(preds, vector.Eq("case_id", q.CaseID))
	}
	if q.DocumentID != "" {
		preds = append(preds, vector.Eq("document_id", q.DocumentID))
	}
	if q.SourceName != "" {
		preds = append(preds, vector.Eq("source_name", q.SourceName))
	}
	if q.Tag != "" {
		preds = append(preds, vector.Eq("tag", strings.ToLower(strings.TrimSpace(q.Tag))))
	}

	queryVec, err := e.embedQuery(ctx, q.Query)
	if err != nil {
		return nil, err
	}

	results, err := e.store.SearchUserDocuments(ctx, queryVec, topK, vector.And(preds...))
	if err != nil {
		return nil, err
	}
	return toHits(results, excerptChars), nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func validateQueryText(query string) error {
	length := len([]rune(strings.TrimSpace(query)))
	if length < MinQueryChars {
		return fmt.Errorf("%w: query must have at least %d characters", ErrInvalidQuery, MinQueryChars)
	}
	if length > MaxQueryChars {
		return fmt.Errorf("%w: query exceeds %d characters", ErrInvalidQuery, MaxQueryChars)
	}
	return nil
}

func normalizeResults(n int) (int, error) {
	if n == 0 {
		return DefaultResults, nil
	}
	if n < 1 || n > MaxResults {
		return 0, fmt.Errorf("%w: n_results must be between 1 and %d", ErrInvalidQuery, MaxResults)
	}
	return n, nil
}

func toHits(results []vector.Result, excerptChars int) []Hit {
	hits := make([]Hit, len(results))
	for i, r := range results {
		documentID, _ := r.Metadata["document_id"].(string)
		hits[i] = Hit{
			ChunkID:    r.ID,
			DocumentID: documentID,
			Similarity: r.Score,
			Excerpt:    chunking.TruncateAtBoundary(r.Content, excerptChars),
			Metadata:   r.Metadata,
		}
	}
	return hits
}

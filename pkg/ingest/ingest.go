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

// Package ingest coordinates path resolution, parsing, chunking, embedding
// and persistence for the five ingestion flows: corpus bulk, plain text,
// Markdown files, PDF files, and on-demand rendered documents.
//
// Per-document failures never abort a batch; each document's outcome is
// recorded in its summary with a bounded error message.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/legalmcp/legalmcp/pkg/chunking"
	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/embedder"
	"github.com/legalmcp/legalmcp/pkg/observability"
	"github.com/legalmcp/legalmcp/pkg/renderer"
	"github.com/legalmcp/legalmcp/pkg/safepath"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

// Source kinds written to chunk metadata.
const (
	SourceKindCorpusNorm   = "corpus-norm"
	SourceKindPlainText    = "plain-text"
	SourceKindMarkdownFile = "markdown-file"
	SourceKindPDFDerived   = "pdf-derived"
	SourceKindRendered     = "rendered"
)

// Config bounds one engine.
type Config struct {
	// Workers is the corpus ingest pool size.
	Workers int

	// MaxEmbedConcurrency bounds in-flight embedding calls.
	MaxEmbedConcurrency int

	// MaxTextBytes caps files read directly (Markdown, plain text).
	MaxTextBytes int64

	// MaxConvertedBytes caps converted sidecars.
	MaxConvertedBytes int64

	// Chunking holds the chunker parameters.
	Chunking chunking.Config
}

// DefaultConfig returns the standard engine bounds.
func DefaultConfig() Config {
	return Config{
		Workers:             16,
		MaxEmbedConcurrency: 4,
		MaxTextBytes:        2_000_000,
		MaxConvertedBytes:   5_000_000,
		Chunking:            chunking.DefaultConfig(),
	}
}

// Engine wires the ingestion collaborators together.
type Engine struct {
	resolver  *safepath.Resolver
	embedder  embedder.Provider
	store     *vector.Store
	converter *convert.Converter
	renderer  renderer.Renderer
	metrics   *observability.Metrics

	cfg      Config
	embedSem chan struct{}
	now      func() time.Time
}

// Params collects the engine's collaborators. Renderer is optional; the
// on-demand flow fails cleanly without one.
type Params struct {
	Resolver  *safepath.Resolver
	Embedder  embedder.Provider
	Store     *vector.Store
	Converter *convert.Converter
	Renderer  renderer.Renderer
	Metrics   *observability.Metrics
	Config    Config
}

// New creates an ingestion engine.
func New(params Params) (*Engine, error) {
	if params.Embedder == nil {
		return nil, fmt.Errorf("ingest engine requires an embedding provider")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("ingest engine requires a vector store")
	}

	cfg := params.Config
	if cfg.Workers < 1 {
		cfg.Workers = 16
	}
	if cfg.MaxEmbedConcurrency < 1 {
		cfg.MaxEmbedConcurrency = 4
	}
	if cfg.MaxTextBytes < 1 {
		cfg.MaxTextBytes = 2_000_000
	}
	if cfg.MaxConvertedBytes < 1 {
		cfg.MaxConvertedBytes = 5_000_000
	}
	if cfg.Chunking.SizeChars < 1 {
		cfg.Chunking = chunking.DefaultConfig()
	}

	return &Engine{
		resolver:  params.Resolver,
		embedder:  params.Embedder,
		store:     params.Store,
		converter: params.Converter,
		renderer:  params.Renderer,
		metrics:   params.Metrics,
		cfg:       cfg,
		embedSem:  make(chan struct{}, cfg.MaxEmbedConcurrency),
		now:       time.Now,
	}, nil
}

// DocumentSummary is the per-document outcome of a batch.
type DocumentSummary struct {
	DocumentID    string `json:"document_id"`
	SourceName    string `json:"source_name"`
	ChunksCreated int    `json:"chunks_created"`
	ChunksAdded   int    `json:"chunks_added"`
	Error         string `json:"error,omitempty"`
}

// Result aggregates one ingestion run.
type Result struct {
	Processed     int               `json:"processed"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	Skipped       int               `json:"skipped"`
	ChunksCreated int               `json:"chunks_created"`
	ChunksAdded   int               `json:"chunks_added"`
	Documents     []DocumentSummary `json:"documents"`
}

func (r *Result) record(summary DocumentSummary) {
	r.Processed++
	if summary.Error != "" {
		r.Failed++
	} else {
		r.Succeeded++
	}
	r.ChunksCreated += summary.ChunksCreated
	r.ChunksAdded += summary.ChunksAdded
	r.Documents = append(r.Documents, summary)
}

// DeriveDocumentID hashes source name and text into the stable document
// identifier used when the caller does not supply one.
func DeriveDocumentID(sourceName, text string) string {
	sum := sha256.Sum256([]byte(sourceName + "\n" + text))
	return "doc_" + hex.EncodeToString(sum[:])[:16]
}

// embedTexts runs one bounded embedding call.
func (e *Engine) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case e.embedSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.embedSem }()

	start := e.now()
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if e.metrics != nil {
		e.metrics.EmbeddingRequests.Inc()
		e.metrics.EmbeddingDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			e.metrics.EmbeddingFailures.Inc()
		}
	}
	return vectors, err
}

// observeDocument records one per-document ingestion outcome.
func (e *Engine) observeDocument(sourceKind string, summary DocumentSummary) {
	if e.metrics == nil {
		return
	}
	if summary.Error != "" {
		e.metrics.IngestFailures.WithLabelValues(sourceKind).Inc()
		return
	}
	e.metrics.DocumentsIngested.WithLabelValues(sourceKind).Inc()
	e.metrics.ChunksIngested.WithLabelValues(sourceKind).Add(float64(summary.ChunksAdded))
}

// chunkUnit is one chunk with its per-chunk metadata additions.
type chunkUnit struct {
	index   int
	content string
	meta    map[string]any
}

// buildUnits chunks a document. Markdown documents chunk per heading
// section so each chunk carries its section breadcrumb; chunk indices stay
// document-global either way.
func (e *Engine) buildUnits(text string, markdown bool) ([]chunkUnit, error) {
	if !markdown {
		chunks, err := chunking.Split(text, e.cfg.Chunking)
		if err != nil {
			return nil, err
		}
		units := make([]chunkUnit, len(chunks))
		for i, chunk := range chunks {
			units[i] = chunkUnit{index: chunk.Index, content: chunk.Content}
		}
		return units, nil
	}

	var units []chunkUnit
	for _, section := range chunking.SplitMarkdownSections(text) {
		chunks, err := chunking.Split(section.Content, e.cfg.Chunking)
		if err != nil {
			// Whitespace-only sections carry no content worth indexing.
			continue
		}
		for _, chunk := range chunks {
			units = append(units, chunkUnit{
				index:   len(units),
				content: chunk.Content,
				meta: map[string]any{
					"section_index": section.Index,
					"section_title": section.Title,
					"section_level": section.Level,
					"section_path":  section.Path,
				},
			})
		}
	}
	if len(units) == 0 {
		return nil, chunking.ErrEmptyDocument
	}
	return units, nil
}

// buildRecords embeds the units and assembles vector records.
func (e *Engine) buildRecords(ctx context.Context, documentID string, units []chunkUnit, base map[string]any) ([]vector.Record, error) {
	texts := make([]string, len(units))
	for i, unit := range units {
		texts[i] = unit.content
	}

	vectors, err := e.embedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	ingestedAt := e.now().UTC().Format(time.RFC3339)
	records := make([]vector.Record, len(units))
	for i, unit := range units {
		metadata := make(map[string]any, len(base)+len(unit.meta)+4)
		for k, v := range base {
			metadata[k] = v
		}
		for k, v := range unit.meta {
			metadata[k] = v
		}
		metadata["document_id"] = documentID
		metadata["chunk_index"] = unit.index
		metadata["ingested_at"] = ingestedAt
		// Mixed-model collections are undetectable without the model id on
		// every chunk.
		metadata["embedding_model"] = e.embedder.Model()

		records[i] = vector.Record{
			ID:       chunking.ChunkID(documentID, unit.index),
			Content:  unit.content,
			Vector:   vectors[i],
			Metadata: metadata,
		}
	}
	return records, nil
}

// basename strips directories from a path for use as a source name.
func basename(path string) string {
	return filepath.Base(filepath.ToSlash(path))
}

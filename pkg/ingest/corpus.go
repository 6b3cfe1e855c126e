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

package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/lawparse"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

// CorpusRequest scopes one corpus bulk ingest.
type CorpusRequest struct {
	// Dir is the local HTML tree, laid out one directory per law with the
	// law abbreviation as the directory name.
	Dir string

	// Jurisdiction tags every corpus chunk (e.g. "de").
	Jurisdiction string
}

// IngestCorpus walks a local HTML tree and ingests every norm into the
// shared corpus. Files are processed by a bounded worker pool; documents
// whose chunks already exist are skipped, so an interrupted run resumes by
// re-invocation. Corpus chunks never carry tenant metadata.
func (e *Engine) IngestCorpus(ctx context.Context, req CorpusRequest) (*Result, error) {
	if req.Dir == "" {
		return nil, fmt.Errorf("corpus directory is required")
	}
	if req.Jurisdiction == "" {
		req.Jurisdiction = "de"
	}
	info, err := os.Stat(req.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("corpus directory %s is not readable", req.Dir)
	}

	var files []string
	err = filepath.WalkDir(req.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot walk corpus tree: %w", err)
	}
	slog.Info("corpus ingest starting", "dir", req.Dir, "files", len(files), "workers", e.cfg.Workers)

	var (
		mu        sync.Mutex
		result    = &Result{}
		group, gc = errgroup.WithContext(ctx)
		semaphore = make(chan struct{}, e.cfg.Workers)
	)

	for _, file := range files {
		file := file
		group.Go(func() error {
			select {
			case semaphore <- struct{}{}:
			case <-gc.Done():
				return gc.Err()
			}
			defer func() { <-semaphore }()

			summaries, skipped := e.ingestCorpusFile(gc, file, req)
			mu.Lock()
			defer mu.Unlock()
			result.Skipped += skipped
			for _, summary := range summaries {
				result.record(summary)
				e.observeDocument(SourceKindCorpusNorm, summary)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}

	slog.Info("corpus ingest finished",
		"processed", result.Processed, "failed", result.Failed,
		"skipped", result.Skipped, "chunks", result.ChunksAdded)
	return result, nil
}

// ingestCorpusFile parses one legal HTML file and persists its documents.
// The law abbreviation comes from the file's parent directory name, the
// gesetze-im-internet tree convention.
func (e *Engine) ingestCorpusFile(ctx context.Context, path string, req CorpusRequest) (summaries []DocumentSummary, skipped int) {
	relative, err := filepath.Rel(req.Dir, path)
	if err != nil {
		relative = basename(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return []DocumentSummary{{
			SourceName: relative,
			Error:      convert.TruncateError(err),
		}}, 0
	}

	norm, err := lawparse.ParseLatin1(data)
	if err != nil {
		return []DocumentSummary{{
			SourceName: relative,
			Error:      convert.TruncateError(err),
		}}, 0
	}

	lawAbbrev := strings.ToUpper(filepath.Base(filepath.Dir(path)))
	documents := lawparse.BuildDocuments(norm, lawAbbrev, req.Jurisdiction, filepath.ToSlash(relative))

	for _, doc := range documents {
		summary := DocumentSummary{DocumentID: doc.ID, SourceName: relative}

		units, err := e.buildUnits(doc.Content, false)
		if err != nil {
			summary.Error = convert.TruncateError(err)
			summaries = append(summaries, summary)
			continue
		}
		summary.ChunksCreated = len(units)

		existing, err := e.store.CountCorpus(ctx, vector.Eq("document_id", doc.ID))
		if err != nil {
			summary.Error = convert.TruncateError(err)
			summaries = append(summaries, summary)
			continue
		}
		if existing >= len(units) {
			skipped++
			continue
		}

		records, err := e.buildRecords(ctx, doc.ID, units, doc.Metadata)
		if err != nil {
			summary.Error = convert.TruncateError(err)
			summaries = append(summaries, summary)
			continue
		}
		if err := e.store.UpsertCorpus(ctx, records); err != nil {
			summary.Error = convert.TruncateError(err)
			summaries = append(summaries, summary)
			continue
		}
		summary.ChunksAdded = len(records)
		summaries = append(summaries, summary)
	}
	return summaries, skipped
}

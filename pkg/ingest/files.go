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
	"strings"
	"unicode/utf8"

	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

var markdownSuffixes = []string{".md", ".markdown"}

// IngestMarkdownFiles runs the Markdown-file flow: each path is resolved
// against the allowlisted root, read as UTF-8 (invalid bytes replaced) and
// ingested section-aware under source_name = basename.
func (e *Engine) IngestMarkdownFiles(ctx context.Context, batch UserBatch, paths []string) (*Result, error) {
	if batch.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", vector.ErrTenantRequired)
	}
	if e.resolver == nil {
		return nil, fmt.Errorf("no ingest root configured")
	}

	result := &Result{}
	for _, path := range paths {
		doc, err := e.loadMarkdownFile(path, e.cfg.MaxTextBytes)
		if err != nil {
			summary := DocumentSummary{
				SourceName: basename(path),
				Error:      convert.TruncateError(err),
			}
			result.record(summary)
			e.observeDocument(SourceKindMarkdownFile, summary)
			continue
		}
		result.record(e.ingestUserDocument(ctx, batch, *doc))
	}
	return result, nil
}

// loadMarkdownFile resolves and reads one Markdown file into a user
// document with its file provenance metadata.
func (e *Engine) loadMarkdownFile(path string, maxBytes int64) (*userDocument, error) {
	_, data, err := e.resolver.ReadFile(path, markdownSuffixes, maxBytes)
	if err != nil {
		return nil, err
	}

	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}

	return &userDocument{
		SourceName: basename(path),
		SourceKind: SourceKindMarkdownFile,
		Text:       text,
		Markdown:   true,
		Extra: map[string]any{
			"relative_path": path,
			"size_bytes":    len(data),
			"truncated":     false,
		},
	}, nil
}

// IngestPDFFiles runs the PDF flow: convert each PDF to a Markdown sidecar
// under the same root, then ingest the sidecar like a Markdown file.
func (e *Engine) IngestPDFFiles(ctx context.Context, batch UserBatch, paths []string) (*Result, error) {
	if batch.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", vector.ErrTenantRequired)
	}
	if e.resolver == nil || e.converter == nil {
		return nil, fmt.Errorf("no ingest root configured")
	}

	result := &Result{}
	for _, path := range paths {
		converted, err := e.converter.ConvertFile(ctx, path, convert.Options{
			MaxChars:  int(e.cfg.MaxConvertedBytes),
			Overwrite: true,
		})
		if err != nil {
			summary := DocumentSummary{
				SourceName: basename(path),
				Error:      convert.TruncateError(err),
			}
			result.record(summary)
			e.observeDocument(SourceKindPDFDerived, summary)
			continue
		}

		doc, err := e.loadMarkdownFile(converted.OutputPath, e.cfg.MaxConvertedBytes)
		if err != nil {
			summary := DocumentSummary{
				SourceName: basename(path),
				Error:      convert.TruncateError(err),
			}
			result.record(summary)
			e.observeDocument(SourceKindPDFDerived, summary)
			continue
		}

		// The document keeps the PDF's identity, not the sidecar's.
		doc.SourceName = basename(path)
		doc.SourceKind = SourceKindPDFDerived
		doc.Extra["relative_path"] = path
		doc.Extra["converted_path"] = converted.OutputPath
		doc.Extra["truncated"] = converted.Truncated

		result.record(e.ingestUserDocument(ctx, batch, *doc))
	}
	return result, nil
}

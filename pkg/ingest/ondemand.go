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

	"github.com/legalmcp/legalmcp/pkg/renderer"
)

// RenderRequest fetches one document from a script-rendered site.
type RenderRequest struct {
	// URL of the single document to render.
	URL string

	// Jurisdiction labels the origin (e.g. "de-state-berlin").
	Jurisdiction string

	// Store persists the rendered document into the caller's tenant
	// partition; without it the document is only returned.
	Store bool

	// Batch scopes persistence; required when Store is set.
	Batch UserBatch
}

// RenderDocument renders exactly one document through the external
// renderer and optionally ingests it on explicit request. There is no
// bulk variant.
func (e *Engine) RenderDocument(ctx context.Context, req RenderRequest) (*renderer.Document, *Result, error) {
	if e.renderer == nil {
		return nil, nil, renderer.ErrRendererUnavailable
	}
	if req.URL == "" {
		return nil, nil, fmt.Errorf("url is required")
	}

	doc, err := e.renderer.Render(ctx, req.URL)
	if err != nil {
		return nil, nil, err
	}
	if !req.Store {
		return doc, nil, nil
	}
	if req.Batch.TenantID == "" {
		return doc, nil, fmt.Errorf("tenant_id is required to store a rendered document")
	}

	sourceName := doc.Title
	if sourceName == "" {
		sourceName = req.URL
	}

	extra := map[string]any{"source_url": req.URL}
	if req.Jurisdiction != "" {
		extra["source_jurisdiction"] = req.Jurisdiction
	}

	result := &Result{}
	result.record(e.ingestUserDocument(ctx, req.Batch, userDocument{
		SourceName: sourceName,
		SourceKind: SourceKindRendered,
		Text:       doc.Text,
		Extra:      extra,
	}))
	return doc, result, nil
}

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

	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

// InputDocument is one in-memory document submitted for ingestion.
type InputDocument struct {
	// DocumentID overrides the derived identifier; optional.
	DocumentID string `json:"document_id,omitempty"`

	// SourceName is the human-readable label (e.g. a file name).
	SourceName string `json:"source_name"`

	// Text is the document body.
	Text string `json:"text"`
}

// UserBatch scopes a user-document ingestion.
type UserBatch struct {
	// TenantID is mandatory; every chunk is pinned to it.
	TenantID string

	// CaseID optionally narrows the scope; empty means absent.
	CaseID string

	// TagsCSV is a comma-separated tag list, normalised before storage.
	TagsCSV string

	// Replace deletes existing chunks of each document before upserting,
	// scoped to (tenant_id, case_id?, document_id).
	Replace bool
}

// IngestDocuments runs the plain-text flow: chunk, embed and persist each
// document into the tenant collection. Whitespace-only documents fail
// individually without aborting the batch.
func (e *Engine) IngestDocuments(ctx context.Context, batch UserBatch, documents []InputDocument) (*Result, error) {
	if batch.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", vector.ErrTenantRequired)
	}

	result := &Result{}
	for _, doc := range documents {
		result.record(e.ingestUserDocument(ctx, batch, userDocument{
			DocumentID: doc.DocumentID,
			SourceName: doc.SourceName,
			SourceKind: SourceKindPlainText,
			Text:       doc.Text,
		}))
	}
	return result, nil
}

// userDocument is the normalised input of the shared user-document path.
type userDocument struct {
	DocumentID string
	SourceName string
	SourceKind string
	Text       string
	Markdown   bool
	Extra      map[string]any
}

// ingestUserDocument chunks, embeds and persists one document, returning
// its summary. Errors are captured in the summary, never raised.
func (e *Engine) ingestUserDocument(ctx context.Context, batch UserBatch, doc userDocument) DocumentSummary {
	summary := e.runUserDocument(ctx, batch, doc)
	e.observeDocument(doc.SourceKind, summary)
	return summary
}

func (e *Engine) runUserDocument(ctx context.Context, batch UserBatch, doc userDocument) DocumentSummary {
	summary := DocumentSummary{DocumentID: doc.DocumentID, SourceName: doc.SourceName}

	if doc.SourceName == "" {
		summary.Error = "source_name is required"
		return summary
	}
	if summary.DocumentID == "" {
		summary.DocumentID = DeriveDocumentID(doc.SourceName, doc.Text)
	}

	units, err := e.buildUnits(doc.Text, doc.Markdown)
	if err != nil {
		summary.Error = convert.TruncateError(err)
		return summary
	}
	summary.ChunksCreated = len(units)

	base := map[string]any{
		"tenant_id":   batch.TenantID,
		"source_name": doc.SourceName,
		"source_kind": doc.SourceKind,
	}
	if batch.CaseID != "" {
		base["case_id"] = batch.CaseID
	}
	for k, v := range tagMetadata(batch.TagsCSV) {
		base[k] = v
	}
	for k, v := range doc.Extra {
		base[k] = v
	}

	records, err := e.buildRecords(ctx, summary.DocumentID, units, base)
	if err != nil {
		summary.Error = convert.TruncateError(err)
		return summary
	}

	if batch.Replace {
		if err := e.store.DeleteUserDocuments(ctx, e.replaceFilter(batch, summary.DocumentID)); err != nil {
			summary.Error = convert.TruncateError(err)
			return summary
		}
	}

	if err := e.store.UpsertUserDocuments(ctx, records); err != nil {
		summary.Error = convert.TruncateError(err)
		return summary
	}
	summary.ChunksAdded = len(records)
	return summary
}

// replaceFilter pins the delete scope of replace mode.
func (e *Engine) replaceFilter(batch UserBatch, documentID string) vector.Expr {
	preds := []vector.Predicate{
		vector.Eq("tenant_id", batch.TenantID),
		vector.Eq("document_id", documentID),
	}
	if batch.CaseID != "" {
		preds = append(preds, vector.Eq("case_id", batch.CaseID))
	}
	return vector.And(preds...)
}

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

package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/ingest"
	"github.com/legalmcp/legalmcp/pkg/query"
	"github.com/legalmcp/legalmcp/pkg/refcache"
)

// Cache namespace of the user-document tools.
const namespaceDocuments = "documents"

type inputDocumentArgs struct {
	DocumentID string `json:"document_id,omitempty" jsonschema:"description=Stable document identifier; derived from content when omitted"`
	SourceName string `json:"source_name" jsonschema:"required,description=Human-readable source name"`
	Text       string `json:"text" jsonschema:"required,description=Document text (UTF-8)"`
}

type ingestDocumentsArgs struct {
	TenantID  string              `json:"tenant_id" jsonschema:"required,description=Tenant scope; every chunk is tagged with it"`
	CaseID    string              `json:"case_id,omitempty" jsonschema:"description=Optional case scope"`
	TagsCSV   string              `json:"tags_csv,omitempty" jsonschema:"description=Comma-separated tags; normalised to sorted lowercase"`
	Replace   bool                `json:"replace,omitempty" jsonschema:"description=Delete existing chunks of each document before upserting"`
	Documents []inputDocumentArgs `json:"documents" jsonschema:"required,description=Documents to ingest"`
}

// ingestResult returns large batches as a cache reference and small ones
// inline; either way only summaries travel, never document text.
func (d Deps) ingestResult(ctx context.Context, result *ingest.Result) (*mcp.CallToolResult, error) {
	if len(result.Documents) > inlineBatchLimit {
		return d.cachedResult(ctx, namespaceDocuments, result, refcache.StrategySample)
	}
	return jsonResult(result)
}

func (d Deps) ingestDocuments() Tool {
	return Tool{
		Name: "ingest_documents",
		Description: "Ingest plain-text documents into a tenant's collection. " +
			"Chunks, embeds and upserts each document; failures are isolated " +
			"per document.",
		InputSchema: schemaFor[ingestDocumentsArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args ingestDocumentsArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}

			documents := make([]ingest.InputDocument, len(args.Documents))
			for i, doc := range args.Documents {
				documents[i] = ingest.InputDocument{
					DocumentID: doc.DocumentID,
					SourceName: doc.SourceName,
					Text:       doc.Text,
				}
			}
			result, err := d.Ingest.IngestDocuments(ctx, ingest.UserBatch{
				TenantID: args.TenantID,
				CaseID:   args.CaseID,
				TagsCSV:  args.TagsCSV,
				Replace:  args.Replace,
			}, documents)
			if err != nil {
				return errorResult(err)
			}
			return d.ingestResult(ctx, result)
		},
	}
}

type ingestFilesArgs struct {
	TenantID string   `json:"tenant_id" jsonschema:"required,description=Tenant scope"`
	CaseID   string   `json:"case_id,omitempty" jsonschema:"description=Optional case scope"`
	TagsCSV  string   `json:"tags_csv,omitempty" jsonschema:"description=Comma-separated tags"`
	Replace  bool     `json:"replace,omitempty" jsonschema:"description=Delete existing chunks of each document before upserting"`
	Paths    []string `json:"paths" jsonschema:"required,description=Paths relative to the allowlisted ingestion root"`
}

func (a ingestFilesArgs) batch() ingest.UserBatch {
	return ingest.UserBatch{
		TenantID: a.TenantID,
		CaseID:   a.CaseID,
		TagsCSV:  a.TagsCSV,
		Replace:  a.Replace,
	}
}

func (d Deps) ingestMarkdownFiles() Tool {
	return Tool{
		Name: "ingest_markdown_files",
		Description: "Ingest Markdown files from the allowlisted root into a " +
			"tenant's collection, with section-aware chunking.",
		InputSchema: schemaFor[ingestFilesArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args ingestFilesArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}
			result, err := d.Ingest.IngestMarkdownFiles(ctx, args.batch(), args.Paths)
			if err != nil {
				return errorResult(err)
			}
			return d.ingestResult(ctx, result)
		},
	}
}

func (d Deps) ingestPDFFiles() Tool {
	return Tool{
		Name: "ingest_pdf_files",
		Description: "Convert PDF files from the allowlisted root to Markdown " +
			"sidecars and ingest them into a tenant's collection.",
		InputSchema: schemaFor[ingestFilesArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args ingestFilesArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}
			result, err := d.Ingest.IngestPDFFiles(ctx, args.batch(), args.Paths)
			if err != nil {
				return errorResult(err)
			}
			return d.ingestResult(ctx, result)
		},
	}
}

type convertFilesArgs struct {
	Paths     []string `json:"paths" jsonschema:"required,description=Paths relative to the allowlisted ingestion root"`
	MaxChars  int      `json:"max_chars,omitempty" jsonschema:"minimum=1,description=Per-file character cap (default 5000000)"`
	Overwrite *bool    `json:"overwrite,omitempty" jsonschema:"description=Replace existing sidecars (default true)"`
}

func (d Deps) convertFilesToMarkdown() Tool {
	return Tool{
		Name: "convert_files_to_markdown",
		Description: "Convert files under the allowlisted root to Markdown " +
			"sidecars. Returns per-file metadata, never the Markdown body.",
		InputSchema: schemaFor[convertFilesArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args convertFilesArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}
			if d.Converter == nil {
				return mcp.NewToolResultError("no converter is configured"), nil
			}

			opts := convert.DefaultOptions()
			if args.MaxChars > 0 {
				opts.MaxChars = args.MaxChars
			}
			if args.Overwrite != nil {
				opts.Overwrite = *args.Overwrite
			}
			result := d.Converter.ConvertAll(ctx, args.Paths, opts)
			if len(result.Files) > inlineBatchLimit {
				return d.cachedResult(ctx, namespaceDocuments, result, refcache.StrategySample)
			}
			return jsonResult(result)
		},
	}
}

type fetchRenderedDocumentArgs struct {
	URL          string `json:"url" jsonschema:"required,description=URL of the single document to render"`
	Jurisdiction string `json:"jurisdiction,omitempty" jsonschema:"description=Origin label recorded on stored chunks (e.g. de-state-berlin)"`
	Store        bool   `json:"store,omitempty" jsonschema:"description=Persist the rendered document into the tenant's collection"`
	TenantID     string `json:"tenant_id,omitempty" jsonschema:"description=Tenant scope; required when store is set"`
	CaseID       string `json:"case_id,omitempty" jsonschema:"description=Optional case scope"`
	TagsCSV      string `json:"tags_csv,omitempty" jsonschema:"description=Comma-separated tags"`
}

func (d Deps) fetchRenderedDocument() Tool {
	return Tool{
		Name: "fetch_rendered_document",
		Description: "Render one script-backed page through the external " +
			"renderer and optionally ingest it. The content comes back as a " +
			"cache reference; there is no bulk variant.",
		InputSchema: schemaFor[fetchRenderedDocumentArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args fetchRenderedDocumentArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}

			doc, result, err := d.Ingest.RenderDocument(ctx, ingest.RenderRequest{
				URL:          args.URL,
				Jurisdiction: args.Jurisdiction,
				Store:        args.Store,
				Batch: ingest.UserBatch{
					TenantID: args.TenantID,
					CaseID:   args.CaseID,
					TagsCSV:  args.TagsCSV,
				},
			})
			if err != nil {
				return errorResult(err)
			}

			ref, err := d.Cache.Put(ctx, refcache.PutRequest{
				Namespace: namespaceDocuments,
				Value:     doc.Text,
				Strategy:  refcache.StrategyTruncate,
			})
			if err != nil {
				return errorResult(err)
			}
			payload := map[string]any{
				"url":         doc.URL,
				"title":       doc.Title,
				"chars":       len([]rune(doc.Text)),
				"content_ref": ref,
			}
			if result != nil {
				payload["ingest"] = result
			}
			return jsonResult(payload)
		},
	}
}

type searchDocumentsArgs struct {
	Query        string `json:"query" jsonschema:"required,description=Semantic search query (2-1000 characters)"`
	TenantID     string `json:"tenant_id" jsonschema:"required,description=Tenant scope; results never cross it"`
	CaseID       string `json:"case_id,omitempty" jsonschema:"description=Equality filter on case"`
	DocumentID   string `json:"document_id,omitempty" jsonschema:"description=Equality filter on document"`
	SourceName   string `json:"source_name,omitempty" jsonschema:"description=Equality filter on source name"`
	Tag          string `json:"tag,omitempty" jsonschema:"description=Single-tag equality filter"`
	NResults     int    `json:"n_results,omitempty" jsonschema:"minimum=1,maximum=50,description=Number of results (default 10)"`
	ExcerptChars int    `json:"excerpt_chars,omitempty" jsonschema:"minimum=1,description=Excerpt length in characters (default 500)"`
}

func (d Deps) searchDocuments() Tool {
	return Tool{
		Name: "search_documents",
		Description: "Semantic search over a tenant's ingested documents. " +
			"Returns a cache reference with a preview of the ranked hits.",
		InputSchema: schemaFor[searchDocumentsArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args searchDocumentsArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}

			defer d.observeSearch("user_documents", time.Now())
			hits, err := d.Query.SearchUser(ctx, query.UserQuery{
				Query:        args.Query,
				TenantID:     args.TenantID,
				CaseID:       args.CaseID,
				DocumentID:   args.DocumentID,
				SourceName:   args.SourceName,
				Tag:          args.Tag,
				NResults:     args.NResults,
				ExcerptChars: args.ExcerptChars,
			})
			if err != nil {
				return errorResult(err)
			}
			return d.cachedResult(ctx, namespaceDocuments, toList(hits), refcache.StrategySample)
		},
	}
}

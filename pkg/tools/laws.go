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

	"github.com/legalmcp/legalmcp/pkg/query"
	"github.com/legalmcp/legalmcp/pkg/refcache"
)

// Cache namespaces of the corpus-side tools.
const (
	namespaceLaws    = "laws"
	namespaceCatalog = "catalog"
)

type listAvailableDocumentsArgs struct {
	Source string `json:"source" jsonschema:"required,description=Catalog source name (e.g. de-state-berlin-bsbe)"`
	Prefix string `json:"prefix,omitempty" jsonschema:"description=Document-type prefix filter (e.g. jlr)"`
	Offset int    `json:"offset,omitempty" jsonschema:"minimum=0,description=Pagination offset"`
	// The maximum mirrors catalog.MaxLimit so schema validation and the
	// store agree on the bound.
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=200,description=Page size (default 50)"`
}

func (d Deps) listAvailableDocuments() Tool {
	return Tool{
		Name: "list_available_documents",
		Description: "List documents available in a pre-built offline catalog. " +
			"Returns a cache reference with a paginated preview; retrieve the " +
			"full listing via get_cached_result.",
		InputSchema: schemaFor[listAvailableDocumentsArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args listAvailableDocumentsArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}
			if d.Catalog == nil {
				return mcp.NewToolResultError("no catalog is configured"), nil
			}

			result, err := d.Catalog.ListAvailable(ctx, args.Source, args.Prefix, args.Offset, args.Limit)
			if err != nil {
				return errorResult(err)
			}
			return d.cachedResult(ctx, namespaceCatalog, result, refcache.StrategySample)
		},
	}
}

type searchLawsArgs struct {
	Query     string `json:"query" jsonschema:"required,description=Semantic search query (2-1000 characters)"`
	LawAbbrev string `json:"law_abbrev,omitempty" jsonschema:"description=Restrict to one law (e.g. BGB)"`
	Level     string `json:"level,omitempty" jsonschema:"enum=norm,enum=paragraph,description=Restrict to norm or paragraph level"`
	NResults  int    `json:"n_results,omitempty" jsonschema:"minimum=1,maximum=50,description=Number of results (default 10)"`
}

func (d Deps) searchLaws() Tool {
	return Tool{
		Name: "search_laws",
		Description: "Semantic search over the German federal law corpus. " +
			"Returns a cache reference with a preview of the ranked hits.",
		InputSchema: schemaFor[searchLawsArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args searchLawsArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}

			defer d.observeSearch("laws", time.Now())
			hits, err := d.Query.SearchCorpus(ctx, query.CorpusQuery{
				Query:     args.Query,
				LawAbbrev: args.LawAbbrev,
				Level:     args.Level,
				NResults:  args.NResults,
			})
			if err != nil {
				return errorResult(err)
			}
			return d.cachedResult(ctx, namespaceLaws, toList(hits), refcache.StrategySample)
		},
	}
}

type getLawByIDArgs struct {
	LawAbbrev string `json:"law_abbrev" jsonschema:"required,description=Law abbreviation (e.g. BGB)"`
	NormID    string `json:"norm_id,omitempty" jsonschema:"description=Norm identifier (e.g. § 433); omit to list the law"`
}

func (d Deps) getLawByID() Tool {
	return Tool{
		Name: "get_law_by_id",
		Description: "Retrieve a norm by exact identifier, or list a law's norms " +
			"when norm_id is omitted. Returns a cache reference; the full text " +
			"comes from get_cached_result.",
		InputSchema: schemaFor[getLawByIDArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args getLawByIDArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}

			result, err := d.Query.GetLawByID(ctx, args.LawAbbrev, args.NormID)
			if err != nil {
				return errorResult(err)
			}
			return d.cachedResult(ctx, namespaceLaws, result, refcache.StrategySample)
		},
	}
}

type getLawStatsArgs struct{}

// lawStats is the inline stats payload; small enough to skip the cache.
type lawStats struct {
	CorpusChunks   int    `json:"corpus_chunks"`
	UserChunks     int    `json:"user_chunks"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	VectorProvider string `json:"vector_provider"`
	CatalogSources int    `json:"catalog_sources"`
}

func (d Deps) getLawStats() Tool {
	return Tool{
		Name:        "get_law_stats",
		Description: "Report collection sizes and the embedding and vector-store setup.",
		InputSchema: schemaFor[getLawStatsArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			stats, err := d.Query.CollectStats(ctx)
			if err != nil {
				return errorResult(err)
			}
			payload := lawStats{
				CorpusChunks:   stats.CorpusChunks,
				UserChunks:     stats.UserChunks,
				EmbeddingModel: stats.EmbeddingModel,
				Dimension:      stats.Dimension,
				VectorProvider: stats.VectorProvider,
			}
			if d.Catalog != nil {
				payload.CatalogSources = len(d.Catalog.Registry().Sources())
			}
			return jsonResult(payload)
		},
	}
}

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

// Package tools declares the operation contracts exposed to agents: input
// schemas, validation, and the cache-envelope convention for large
// results. Handlers return structured errors, never raise.
package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/legalmcp/legalmcp/pkg/catalog"
	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/ingest"
	"github.com/legalmcp/legalmcp/pkg/observability"
	"github.com/legalmcp/legalmcp/pkg/query"
	"github.com/legalmcp/legalmcp/pkg/refcache"
)

// Batches larger than this come back as a cache reference instead of an
// inline result.
const inlineBatchLimit = 10

// Deps wires the tool surface to the engines behind it.
type Deps struct {
	Query     *query.Engine
	Ingest    *ingest.Engine
	Cache     *refcache.Cache
	Catalog   *catalog.Service
	Converter *convert.Converter
	Metrics   *observability.Metrics
}

// Tool pairs a declared contract with its handler.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// All assembles the complete tool table.
func (d Deps) All() []Tool {
	tools := []Tool{
		d.listAvailableDocuments(),
		d.searchLaws(),
		d.getLawByID(),
		d.getLawStats(),
		d.ingestDocuments(),
		d.ingestMarkdownFiles(),
		d.ingestPDFFiles(),
		d.convertFilesToMarkdown(),
		d.fetchRenderedDocument(),
		d.searchDocuments(),
		d.getCachedResult(),
		d.storeSecret(),
		d.computeWithSecret(),
		d.generateItems(),
		d.healthCheck(),
	}
	for i := range tools {
		tools[i].Handler = d.instrument(tools[i].Name, tools[i].Handler)
	}
	return tools
}

// instrument wraps a handler with metrics and logging.
func (d Deps) instrument(name string, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, req)
		if d.Metrics != nil {
			observed := err
			if observed == nil && result != nil && result.IsError {
				observed = errToolResult
			}
			d.Metrics.ObserveTool(name, start, observed)
		}
		slog.Debug("tool call finished", "tool", name, "elapsed", time.Since(start))
		return result, err
	}
}

// errToolResult marks handler-level failures for metrics without carrying
// a message.
var errToolResult = &toolResultError{}

type toolResultError struct{}

func (*toolResultError) Error() string { return "tool returned an error result" }

// jsonResult marshals a payload into a text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("internal error: result serialisation failed"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult converts an error into a structured tool error. Error
// messages never carry document content.
func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(convert.TruncateError(err)), nil
}

// observeSearch records one search against its collection.
func (d Deps) observeSearch(collection string, start time.Time) {
	if d.Metrics == nil {
		return
	}
	d.Metrics.SearchQueries.WithLabelValues(collection).Inc()
	d.Metrics.SearchDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
}

// toList widens a typed slice so the cache recognises it as list-shaped
// (sampled previews, item counts, pagination).
func toList[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// cachedResult registers a payload in the cache and returns only the
// reference envelope: handle, bounded preview, metadata.
func (d Deps) cachedResult(ctx context.Context, namespace string, value any, strategy refcache.PreviewStrategy) (*mcp.CallToolResult, error) {
	ref, err := d.Cache.Put(ctx, refcache.PutRequest{
		Namespace: namespace,
		Value:     value,
		Strategy:  strategy,
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(ref)
}

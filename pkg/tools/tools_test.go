package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalmcp/legalmcp/pkg/chunking"
	"github.com/legalmcp/legalmcp/pkg/catalog"
	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/embedder"
	"github.com/legalmcp/legalmcp/pkg/ingest"
	"github.com/legalmcp/legalmcp/pkg/observability"
	"github.com/legalmcp/legalmcp/pkg/query"
	"github.com/legalmcp/legalmcp/pkg/refcache"
	"github.com/legalmcp/legalmcp/pkg/renderer"
	"github.com/legalmcp/legalmcp/pkg/safepath"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

const testDimension = 32

type harness struct {
	deps     Deps
	store    *vector.Store
	embedder embedder.Provider
	resolver *safepath.Resolver
	renderer *renderer.Fake
	byName   map[string]Tool
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	provider, err := vector.NewChromemProvider(vector.ChromemConfig{Dimension: testDimension})
	require.NoError(t, err)
	store := vector.NewStore(provider)
	t.Cleanup(func() { _ = store.Close() })

	resolver, err := safepath.NewResolver(t.TempDir())
	require.NoError(t, err)

	local := embedder.NewLocal(testDimension)
	converter := convert.New(resolver)
	fake := renderer.NewFake()
	engine, err := ingest.New(ingest.Params{
		Resolver:  resolver,
		Embedder:  local,
		Store:     store,
		Converter: converter,
		Renderer:  fake,
	})
	require.NoError(t, err)

	backend, err := refcache.NewMemoryBackend(1000)
	require.NoError(t, err)
	cache := refcache.New(backend, refcache.DefaultConfig())
	t.Cleanup(func() { _ = cache.Close() })

	deps := Deps{
		Query:     query.New(local, store, chunking.DefaultConfig()),
		Ingest:    engine,
		Cache:     cache,
		Converter: converter,
		Metrics:   observability.New(),
	}

	byName := make(map[string]Tool)
	for _, tool := range deps.All() {
		byName[tool.Name] = tool
	}
	return &harness{deps: deps, store: store, embedder: local, resolver: resolver, renderer: fake, byName: byName}
}

// call invokes a tool handler the way the protocol layer would.
func (h *harness) call(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool, ok := h.byName[name]
	require.True(t, ok, "tool %s is not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	return payload
}

func (h *harness) seedCorpusNorm(t *testing.T, documentID, text string, metadata map[string]any) {
	t.Helper()
	ctx := context.Background()

	chunks, err := chunking.Split(text, chunking.DefaultConfig())
	require.NoError(t, err)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := h.embedder.EmbedBatch(ctx, texts)
	require.NoError(t, err)

	records := make([]vector.Record, len(chunks))
	for i, c := range chunks {
		meta := map[string]any{"document_id": documentID}
		for k, v := range metadata {
			meta[k] = v
		}
		records[i] = vector.Record{
			ID:       chunking.ChunkID(documentID, c.Index),
			Content:  c.Content,
			Vector:   vectors[i],
			Metadata: meta,
		}
	}
	require.NoError(t, h.store.UpsertCorpus(ctx, records))
}

func TestToolTableIsWellFormed(t *testing.T) {
	h := newHarness(t)

	seen := make(map[string]bool)
	for name, tool := range h.byName {
		assert.False(t, seen[name], "duplicate tool %s", name)
		seen[name] = true
		assert.NotEmpty(t, tool.Description, "%s has no description", name)
		assert.NotNil(t, tool.Handler, "%s has no handler", name)

		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.InputSchema, &schema), "%s schema is not JSON", name)
		assert.Equal(t, "object", schema["type"], "%s schema is not an object", name)
		assert.NotContains(t, schema, "$schema")
	}
	assert.Len(t, seen, 15)
}

func TestSchemaRequiredFields(t *testing.T) {
	h := newHarness(t)

	var schema struct {
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(h.byName["search_laws"].InputSchema, &schema))
	assert.Equal(t, []string{"query"}, schema.Required)

	require.NoError(t, json.Unmarshal(h.byName["search_documents"].InputSchema, &schema))
	assert.Contains(t, schema.Required, "query")
	assert.Contains(t, schema.Required, "tenant_id")
}

func TestListLimitBoundMatchesCatalog(t *testing.T) {
	// The schema's upper bound must agree with the store's limit, or a
	// schema-valid request fails at runtime.
	var schema struct {
		Properties struct {
			Limit struct {
				Maximum float64 `json:"maximum"`
			} `json:"limit"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(schemaFor[listAvailableDocumentsArgs](), &schema))
	assert.EqualValues(t, catalog.MaxLimit, schema.Properties.Limit.Maximum)
}

func TestSearchLawsReturnsEnvelope(t *testing.T) {
	h := newHarness(t)
	h.seedCorpusNorm(t, "bgb_para_433",
		"Durch den Kaufvertrag wird der Verkäufer einer Sache verpflichtet, dem Käufer die Sache zu übergeben.",
		map[string]any{"law_abbrev": "BGB", "norm_id": "§ 433", "level": "norm"})

	result := h.call(t, "search_laws", map[string]any{"query": "Kaufvertrag Pflichten"})
	require.False(t, result.IsError, resultText(t, result))

	envelope := decodeResult(t, result)
	refID, _ := envelope["ref_id"].(string)
	require.NotEmpty(t, refID)
	assert.Equal(t, "laws", envelope["namespace"])
	assert.Equal(t, "sample", envelope["preview_strategy"])
	assert.NotNil(t, envelope["preview"])

	// The full hits come back only through explicit retrieval.
	retrieved := h.call(t, "get_cached_result", map[string]any{"ref_id": refID})
	require.False(t, retrieved.IsError)
	payload := decodeResult(t, retrieved)
	hits, ok := payload["value"].([]any)
	require.True(t, ok)
	require.Len(t, hits, 1)
	hit := hits[0].(map[string]any)
	assert.Equal(t, "bgb_para_433", hit["document_id"])
}

func TestSearchLawsValidation(t *testing.T) {
	h := newHarness(t)

	result := h.call(t, "search_laws", map[string]any{"query": "k"})
	assert.True(t, result.IsError)

	result = h.call(t, "search_laws", map[string]any{"query": "Kaufvertrag", "n_results": 51})
	assert.True(t, result.IsError)
}

func TestGetLawByIDEnvelope(t *testing.T) {
	h := newHarness(t)
	h.seedCorpusNorm(t, "stgb_para_211",
		"Der Mörder wird mit lebenslanger Freiheitsstrafe bestraft.",
		map[string]any{"law_abbrev": "StGB", "norm_id": "§ 211", "level": "norm"})

	result := h.call(t, "get_law_by_id", map[string]any{"law_abbrev": "stgb", "norm_id": "§ 211"})
	require.False(t, result.IsError, resultText(t, result))
	envelope := decodeResult(t, result)
	assert.NotEmpty(t, envelope["ref_id"])

	missing := h.call(t, "get_law_by_id", map[string]any{"law_abbrev": "HGB", "norm_id": "§ 1"})
	assert.True(t, missing.IsError)
}

func TestIngestDocumentsInlineSummary(t *testing.T) {
	h := newHarness(t)

	result := h.call(t, "ingest_documents", map[string]any{
		"tenant_id": "T1",
		"documents": []any{
			map[string]any{"source_name": "vertrag.txt", "text": "Die Kündigungsfrist beträgt vier Wochen."},
		},
	})
	require.False(t, result.IsError, resultText(t, result))

	payload := decodeResult(t, result)
	assert.Equal(t, float64(1), payload["processed"])
	assert.Equal(t, float64(1), payload["succeeded"])
	documents, ok := payload["documents"].([]any)
	require.True(t, ok)
	require.Len(t, documents, 1)

	search := h.call(t, "search_documents", map[string]any{
		"query": "Kündigungsfrist", "tenant_id": "T1",
	})
	require.False(t, search.IsError, resultText(t, search))
	envelope := decodeResult(t, search)
	assert.NotEmpty(t, envelope["ref_id"])
}

func TestIngestDocumentsLargeBatchIsCached(t *testing.T) {
	h := newHarness(t)

	documents := make([]any, 12)
	for i := range documents {
		documents[i] = map[string]any{
			"source_name": "doc.txt",
			"text":        "Absatz Nummer " + string(rune('a'+i)) + " mit Inhalt.",
		}
	}
	result := h.call(t, "ingest_documents", map[string]any{
		"tenant_id": "T1",
		"documents": documents,
	})
	require.False(t, result.IsError, resultText(t, result))

	envelope := decodeResult(t, result)
	assert.NotEmpty(t, envelope["ref_id"])
	assert.NotContains(t, envelope, "processed")
}

func TestIngestDocumentsRequiresTenant(t *testing.T) {
	h := newHarness(t)

	result := h.call(t, "ingest_documents", map[string]any{
		"tenant_id": "",
		"documents": []any{
			map[string]any{"source_name": "a.txt", "text": "Inhalt."},
		},
	})
	assert.True(t, result.IsError)
}

func TestSecretFlow(t *testing.T) {
	h := newHarness(t)

	stored := h.call(t, "store_secret", map[string]any{"name": "rate", "value": 21.0})
	require.False(t, stored.IsError, resultText(t, stored))
	payload := decodeResult(t, stored)
	refID, _ := payload["ref_id"].(string)
	require.NotEmpty(t, refID)
	assert.NotContains(t, payload, "value")
	assert.NotContains(t, payload, "preview")

	computed := h.call(t, "compute_with_secret", map[string]any{
		"secret_ref": refID, "multiplier": 2.0,
	})
	require.False(t, computed.IsError, resultText(t, computed))
	assert.Equal(t, float64(42), decodeResult(t, computed)["result"])

	// The agent-level read path must never surface the raw secret.
	leaked := h.call(t, "get_cached_result", map[string]any{"ref_id": refID})
	assert.True(t, leaked.IsError)
	assert.Contains(t, resultText(t, leaked), "permission denied")
}

func TestGenerateItemsEnvelope(t *testing.T) {
	h := newHarness(t)

	result := h.call(t, "generate_items", map[string]any{"count": 100})
	require.False(t, result.IsError, resultText(t, result))

	envelope := decodeResult(t, result)
	assert.Equal(t, float64(100), envelope["total_items"])
	preview, ok := envelope["preview"].([]any)
	require.True(t, ok)
	assert.Less(t, len(preview), 100)

	refID := envelope["ref_id"].(string)
	page := h.call(t, "get_cached_result", map[string]any{
		"ref_id": refID, "page": 2, "page_size": 10,
	})
	require.False(t, page.IsError)
	payload := decodeResult(t, page)
	items := payload["value"].([]any)
	require.Len(t, items, 10)
	first := items[0].(map[string]any)
	assert.Equal(t, float64(10), first["index"])
}

func TestGetCachedResultUnknownRef(t *testing.T) {
	h := newHarness(t)

	result := h.call(t, "get_cached_result", map[string]any{"ref_id": "laws:deadbeef00"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}

func TestConvertFilesToMarkdownInline(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(h.resolver.Root(), "vertrag.txt")
	require.NoError(t, os.WriteFile(path, []byte("Der Mietvertrag endet zum Monatsende."), 0o644))

	result := h.call(t, "convert_files_to_markdown", map[string]any{
		"paths": []any{"vertrag.txt", "missing.txt"},
	})
	require.False(t, result.IsError, resultText(t, result))

	payload := decodeResult(t, result)
	assert.Equal(t, float64(1), payload["converted"])
	assert.Equal(t, float64(1), payload["failed"])
}

func TestFetchRenderedDocument(t *testing.T) {
	h := newHarness(t)
	h.renderer.Add(&renderer.Document{
		URL:   "https://example.org/bsbe/jlr-1",
		Title: "Berliner Hundegesetz",
		Text:  "Hunde sind in Berlin anzuleinen.",
	})

	result := h.call(t, "fetch_rendered_document", map[string]any{
		"url": "https://example.org/bsbe/jlr-1",
	})
	require.False(t, result.IsError, resultText(t, result))

	payload := decodeResult(t, result)
	assert.Equal(t, "Berliner Hundegesetz", payload["title"])
	assert.NotContains(t, resultText(t, result), "\"ingest\"")
	contentRef, ok := payload["content_ref"].(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, contentRef["ref_id"])

	full := h.call(t, "get_cached_result", map[string]any{"ref_id": contentRef["ref_id"]})
	require.False(t, full.IsError)
	assert.Equal(t, "Hunde sind in Berlin anzuleinen.", decodeResult(t, full)["value"])

	stored := h.call(t, "fetch_rendered_document", map[string]any{
		"url":          "https://example.org/bsbe/jlr-1",
		"store":        true,
		"tenant_id":    "T1",
		"jurisdiction": "de-state-berlin",
	})
	require.False(t, stored.IsError, resultText(t, stored))
	storedPayload := decodeResult(t, stored)
	ingestResult, ok := storedPayload["ingest"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), ingestResult["succeeded"])

	missing := h.call(t, "fetch_rendered_document", map[string]any{
		"url": "https://example.org/unknown",
	})
	assert.True(t, missing.IsError)
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t)

	result := h.call(t, "health_check", nil)
	require.False(t, result.IsError)
	payload := decodeResult(t, result)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, float64(0), payload["cache_entries"])
}

func TestListAvailableDocumentsWithoutCatalog(t *testing.T) {
	h := newHarness(t)

	result := h.call(t, "list_available_documents", map[string]any{"source": "de-state-berlin-bsbe"})
	assert.True(t, result.IsError)
}

func TestInstrumentationCounts(t *testing.T) {
	h := newHarness(t)
	m := h.deps.Metrics

	h.call(t, "health_check", nil)
	h.call(t, "search_laws", map[string]any{"query": "k"})

	assert.Equal(t, float64(1), counterValue(m.ToolCalls, "health_check"))
	assert.Equal(t, float64(0), counterValue(m.ToolErrors, "health_check"))
	assert.Equal(t, float64(1), counterValue(m.ToolCalls, "search_laws"))
	assert.Equal(t, float64(1), counterValue(m.ToolErrors, "search_laws"))
}

func counterValue(vec *prometheus.CounterVec, tool string) float64 {
	return testutil.ToFloat64(vec.WithLabelValues(tool))
}

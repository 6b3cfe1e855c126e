package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/embedder"
	"github.com/legalmcp/legalmcp/pkg/renderer"
	"github.com/legalmcp/legalmcp/pkg/safepath"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

const testDimension = 32

type harness struct {
	engine   *Engine
	store    *vector.Store
	embedder embedder.Provider
	root     string
	renderer *renderer.Fake
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
	fake := renderer.NewFake()

	engine, err := New(Params{
		Resolver:  resolver,
		Embedder:  local,
		Store:     store,
		Converter: convert.New(resolver),
		Renderer:  fake,
		Config:    DefaultConfig(),
	})
	require.NoError(t, err)

	return &harness{
		engine:   engine,
		store:    store,
		embedder: local,
		root:     resolver.Root(),
		renderer: fake,
	}
}

func (h *harness) searchTenant(t *testing.T, query, tenantID string, extra ...vector.Predicate) []vector.Result {
	t.Helper()
	vecs, err := h.embedder.EmbedBatch(context.Background(), []string{query})
	require.NoError(t, err)
	preds := append([]vector.Predicate{vector.Eq("tenant_id", tenantID)}, extra...)
	results, err := h.store.SearchUserDocuments(context.Background(), vecs[0], 10, vector.And(preds...))
	require.NoError(t, err)
	return results
}

func TestIngestDocumentsTenantIsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc := InputDocument{SourceName: "a.txt", Text: "Die Kündigungsfrist beträgt vier Wochen."}
	for _, tenant := range []string{"T1", "T2"} {
		result, err := h.engine.IngestDocuments(ctx, UserBatch{TenantID: tenant, CaseID: "C1"}, []InputDocument{doc})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)
	}

	hits := h.searchTenant(t, "Kündigungsfrist", "T1")
	require.Len(t, hits, 1)
	assert.Equal(t, "T1", hits[0].Metadata["tenant_id"])

	assert.Empty(t, h.searchTenant(t, "Kündigungsfrist", "T3"))
}

func TestIngestRecordsEmbeddingModel(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.IngestDocuments(context.Background(),
		UserBatch{TenantID: "T1"},
		[]InputDocument{{SourceName: "a.txt", Text: "Die Kündigungsfrist beträgt vier Wochen."}})
	require.NoError(t, err)

	// Every chunk carries the model id so mixed-model collections are
	// detectable at query time.
	hits := h.searchTenant(t, "Kündigungsfrist", "T1")
	require.NotEmpty(t, hits)
	assert.Equal(t, h.embedder.Model(), hits[0].Metadata["embedding_model"])
}

func TestDeriveDocumentID(t *testing.T) {
	id := DeriveDocumentID("a.txt", "Inhalt")
	assert.True(t, strings.HasPrefix(id, "doc_"))
	assert.Len(t, id, len("doc_")+16)
	assert.Equal(t, id, DeriveDocumentID("a.txt", "Inhalt"))
	assert.NotEqual(t, id, DeriveDocumentID("b.txt", "Inhalt"))
	assert.NotEqual(t, id, DeriveDocumentID("a.txt", "anderer Inhalt"))
}

func TestIngestDocumentsIsolatesEmptyText(t *testing.T) {
	h := newHarness(t)

	result, err := h.engine.IngestDocuments(context.Background(),
		UserBatch{TenantID: "T1"},
		[]InputDocument{
			{SourceName: "leer.txt", Text: "   \n\t "},
			{SourceName: "ok.txt", Text: "Der Mietvertrag endet zum Monatsende."},
		})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Documents, 2)
	assert.NotEmpty(t, result.Documents[0].Error)
	assert.LessOrEqual(t, len(result.Documents[0].Error), 200)
	assert.Empty(t, result.Documents[1].Error)
}

func TestIngestDocumentsRequiresTenant(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.IngestDocuments(context.Background(), UserBatch{}, nil)
	assert.ErrorIs(t, err, vector.ErrTenantRequired)
}

func TestIngestMarkdownFilesTraversalWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.engine.IngestMarkdownFiles(ctx, UserBatch{TenantID: "T"}, []string{"../etc/passwd"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Documents[0].Error, "parent-directory")

	count, err := h.store.CountUserDocuments(ctx, vector.Eq("tenant_id", "T"))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngestMarkdownFilesSectionMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	content := "# Mietvertrag\n\nDie Parteien schließen einen Mietvertrag.\n\n## Kündigung\n\nDie Kündigungsfrist beträgt drei Monate.\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "vertrag.md"), []byte(content), 0o644))

	result, err := h.engine.IngestMarkdownFiles(ctx, UserBatch{TenantID: "T1"}, []string{"vertrag.md"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	assert.GreaterOrEqual(t, result.ChunksAdded, 2)

	hits := h.searchTenant(t, "Kündigungsfrist", "T1")
	require.NotEmpty(t, hits)

	var sawSection bool
	for _, hit := range hits {
		assert.Equal(t, "vertrag.md", hit.Metadata["source_name"])
		assert.Equal(t, SourceKindMarkdownFile, hit.Metadata["source_kind"])
		if hit.Metadata["section_title"] == "Kündigung" {
			sawSection = true
		}
	}
	assert.True(t, sawSection, "expected a chunk annotated with its section title")
}

func TestIngestReplaceMode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	batch := UserBatch{TenantID: "T1", CaseID: "C1", Replace: true}
	doc := InputDocument{DocumentID: "doc_fixed", SourceName: "a.txt", Text: strings.Repeat("Altes Recht. ", 200)}
	_, err := h.engine.IngestDocuments(ctx, batch, []InputDocument{doc})
	require.NoError(t, err)

	before, err := h.store.CountUserDocuments(ctx, vector.And(
		vector.Eq("tenant_id", "T1"), vector.Eq("document_id", "doc_fixed")))
	require.NoError(t, err)
	assert.Greater(t, before, 1)

	// Re-ingest a shorter text under the same id; stale chunks must go.
	doc.Text = "Neues Recht."
	result, err := h.engine.IngestDocuments(ctx, batch, []InputDocument{doc})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	after, err := h.store.CountUserDocuments(ctx, vector.And(
		vector.Eq("tenant_id", "T1"), vector.Eq("document_id", "doc_fixed")))
	require.NoError(t, err)
	assert.Equal(t, 1, after)
}

func TestIngestTagsNormalised(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.IngestDocuments(ctx,
		UserBatch{TenantID: "T1", TagsCSV: " Miete, ARBEITSRECHT ,miete"},
		[]InputDocument{{SourceName: "a.txt", Text: "Inhalt des Dokuments."}})
	require.NoError(t, err)

	hits := h.searchTenant(t, "Inhalt", "T1")
	require.NotEmpty(t, hits)
	assert.Equal(t, "arbeitsrecht,miete", hits[0].Metadata["tags_csv"])
	assert.NotContains(t, hits[0].Metadata, "tag")
}

func TestNormalizeTagsCSV(t *testing.T) {
	assert.Equal(t, "", NormalizeTagsCSV(""))
	assert.Equal(t, "", NormalizeTagsCSV(" , ,"))
	assert.Equal(t, "miete", NormalizeTagsCSV("Miete"))
	assert.Equal(t, "arbeitsrecht,miete", NormalizeTagsCSV("miete,Arbeitsrecht,MIETE"))
}

func TestTagMetadataSingleTag(t *testing.T) {
	meta := tagMetadata("Miete")
	assert.Equal(t, "miete", meta["tags_csv"])
	assert.Equal(t, "miete", meta["tag"])
	assert.Nil(t, tagMetadata("  "))
}

func TestRenderDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.renderer.Add(&renderer.Document{
		URL:   "https://example.test/berlin/jlr-Norm1",
		Title: "Berliner Norm",
		Text:  "Der Senat erlässt die folgende Verordnung über Mietobergrenzen.",
	})

	// Render-only never persists.
	doc, result, err := h.engine.RenderDocument(ctx, RenderRequest{URL: "https://example.test/berlin/jlr-Norm1"})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, "Berliner Norm", doc.Title)

	count, err := h.store.CountUserDocuments(ctx, vector.Eq("tenant_id", "T1"))
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Explicit store request persists into the tenant partition.
	_, result, err = h.engine.RenderDocument(ctx, RenderRequest{
		URL:          "https://example.test/berlin/jlr-Norm1",
		Jurisdiction: "de-state-berlin",
		Store:        true,
		Batch:        UserBatch{TenantID: "T1"},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Succeeded)

	hits := h.searchTenant(t, "Mietobergrenzen", "T1")
	require.NotEmpty(t, hits)
	assert.Equal(t, SourceKindRendered, hits[0].Metadata["source_kind"])
	assert.Equal(t, "de-state-berlin", hits[0].Metadata["source_jurisdiction"])
}

func TestRenderDocumentUnknownURL(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.engine.RenderDocument(context.Background(), RenderRequest{URL: "https://example.test/missing"})
	assert.ErrorIs(t, err, renderer.ErrRendererUnavailable)
}

package query

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalmcp/legalmcp/pkg/chunking"
	"github.com/legalmcp/legalmcp/pkg/embedder"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

const testDimension = 32

type harness struct {
	engine   *Engine
	store    *vector.Store
	embedder embedder.Provider
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	provider, err := vector.NewChromemProvider(vector.ChromemConfig{Dimension: testDimension})
	require.NoError(t, err)
	store := vector.NewStore(provider)
	t.Cleanup(func() { _ = store.Close() })

	local := embedder.NewLocal(testDimension)
	return &harness{
		engine:   New(local, store, chunking.DefaultConfig()),
		store:    store,
		embedder: local,
	}
}

// seedDocument chunks and embeds text, upserting it with the given base
// metadata into the chosen collection.
func (h *harness) seedDocument(t *testing.T, corpus bool, documentID, text string, base map[string]any) {
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
		metadata := map[string]any{"document_id": documentID}
		for k, v := range base {
			metadata[k] = v
		}
		records[i] = vector.Record{
			ID:       chunking.ChunkID(documentID, c.Index),
			Content:  c.Content,
			Vector:   vectors[i],
			Metadata: metadata,
		}
	}
	if corpus {
		require.NoError(t, h.store.UpsertCorpus(ctx, records))
	} else {
		require.NoError(t, h.store.UpsertUserDocuments(ctx, records))
	}
}

func (h *harness) seedCorpusNorm(t *testing.T) {
	h.seedDocument(t, true, "bgb_para_433",
		"Durch den Kaufvertrag wird der Verkäufer einer Sache verpflichtet, dem Käufer die Sache zu übergeben.",
		map[string]any{
			"law_abbrev": "BGB", "norm_id": "§ 433", "level": "norm",
			"norm_title": "Vertragstypische Pflichten beim Kaufvertrag",
		})
	h.seedDocument(t, true, "stgb_para_211",
		"Der Mörder wird mit lebenslanger Freiheitsstrafe bestraft.",
		map[string]any{
			"law_abbrev": "StGB", "norm_id": "§ 211", "level": "norm",
			"norm_title": "Mord",
		})
}

func TestSearchCorpusLawFilter(t *testing.T) {
	h := newHarness(t)
	h.seedCorpusNorm(t)

	hits, err := h.engine.SearchCorpus(context.Background(), CorpusQuery{
		Query:     "Kaufvertrag Pflichten",
		LawAbbrev: "bgb",
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "bgb_para_433", hits[0].DocumentID)
	assert.Equal(t, "bgb_para_433:0", hits[0].ChunkID)
	assert.Equal(t, "BGB", hits[0].Metadata["law_abbrev"])
}

func TestSearchCorpusLevelValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.SearchCorpus(context.Background(), CorpusQuery{Query: "Mord", Level: "chapter"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestQueryValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.SearchCorpus(ctx, CorpusQuery{Query: "k"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = h.engine.SearchCorpus(ctx, CorpusQuery{Query: strings.Repeat("k", 1001)})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = h.engine.SearchCorpus(ctx, CorpusQuery{Query: "Kaufvertrag", NResults: 51})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = h.engine.SearchCorpus(ctx, CorpusQuery{Query: "Kaufvertrag", NResults: -1})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearchUserTenantScoping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := map[string]any{"source_name": "a.txt", "case_id": "C1"}
	h.seedDocument(t, false, "doc_t1", "Die Kündigungsfrist beträgt vier Wochen.",
		merge(base, "tenant_id", "T1"))
	h.seedDocument(t, false, "doc_t2", "Die Kündigungsfrist beträgt vier Wochen.",
		merge(base, "tenant_id", "T2"))

	hits, err := h.engine.SearchUser(ctx, UserQuery{Query: "Kündigungsfrist", TenantID: "T1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "T1", hits[0].Metadata["tenant_id"])

	hits, err = h.engine.SearchUser(ctx, UserQuery{Query: "Kündigungsfrist", TenantID: "T3"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = h.engine.SearchUser(ctx, UserQuery{Query: "Kündigungsfrist"})
	assert.ErrorIs(t, err, vector.ErrTenantRequired)
}

func TestSearchUserTagFilter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.seedDocument(t, false, "doc_m", "Der Mietvertrag endet zum Monatsende.",
		map[string]any{"tenant_id": "T1", "tag": "miete"})
	h.seedDocument(t, false, "doc_a", "Der Arbeitsvertrag endet zum Monatsende.",
		map[string]any{"tenant_id": "T1", "tag": "arbeitsrecht"})

	hits, err := h.engine.SearchUser(ctx, UserQuery{Query: "Monatsende", TenantID: "T1", Tag: " Miete "})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc_m", hits[0].DocumentID)
}

func TestSearchUserExcerptBound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	long := strings.Repeat("Die Kündigungsfrist beträgt vier Wochen. ", 40)
	h.seedDocument(t, false, "doc_long", long, map[string]any{"tenant_id": "T1"})

	hits, err := h.engine.SearchUser(ctx, UserQuery{Query: "Kündigungsfrist", TenantID: "T1"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Len(t, []rune(hits[0].Excerpt), DefaultExcerptChars)

	hits, err = h.engine.SearchUser(ctx, UserQuery{Query: "Kündigungsfrist", TenantID: "T1", ExcerptChars: 40})
	require.NoError(t, err)
	assert.Len(t, []rune(hits[0].Excerpt), 40)
}

func TestGetLawByIDReassemblesChunks(t *testing.T) {
	h := newHarness(t)

	// Long enough for three chunks so the overlap-stripping join is
	// actually exercised.
	text := strings.Repeat("abcdefghij", 300)
	h.seedDocument(t, true, "bgb_para_999", text, map[string]any{
		"law_abbrev": "BGB", "norm_id": "§ 999", "level": "norm",
	})

	result, err := h.engine.GetLawByID(context.Background(), "bgb", "§ 999")
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "bgb_para_999", result.Results[0].DocumentID)
	assert.Equal(t, text, result.Results[0].Content)
}

func TestGetLawByIDListsLaw(t *testing.T) {
	h := newHarness(t)
	h.seedCorpusNorm(t)

	result, err := h.engine.GetLawByID(context.Background(), "BGB", "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, "BGB", result.LawAbbrev)
}

func TestGetLawByIDTruncationMarker(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	vec := make([]float32, testDimension)
	vec[0] = 1
	records := make([]vector.Record, byIDChunkLimit+1)
	for i := range records {
		records[i] = vector.Record{
			ID:      chunking.ChunkID("bgb_para_1", i),
			Content: "Chunktext.",
			Vector:  vec,
			Metadata: map[string]any{
				"document_id": "bgb_para_1",
				"law_abbrev":  "BGB", "norm_id": "§ 1", "level": "norm",
			},
		}
	}
	require.NoError(t, h.store.UpsertCorpus(ctx, records))

	result, err := h.engine.GetLawByID(ctx, "BGB", "§ 1")
	require.NoError(t, err)
	assert.True(t, result.Truncated, "a lookup hitting the chunk cap must be marked")

	h.seedCorpusNorm(t)
	small, err := h.engine.GetLawByID(ctx, "StGB", "§ 211")
	require.NoError(t, err)
	assert.False(t, small.Truncated)
}

func TestGetLawByIDNotFound(t *testing.T) {
	h := newHarness(t)
	h.seedCorpusNorm(t)

	_, err := h.engine.GetLawByID(context.Background(), "HGB", "§ 1")
	assert.ErrorIs(t, err, ErrNormNotFound)

	_, err = h.engine.GetLawByID(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestCollectStats(t *testing.T) {
	h := newHarness(t)
	h.seedCorpusNorm(t)
	h.seedDocument(t, false, "doc_u", "Inhalt.", map[string]any{"tenant_id": "T1"})

	stats, err := h.engine.CollectStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CorpusChunks)
	assert.Equal(t, 1, stats.UserChunks)
	assert.Equal(t, testDimension, stats.Dimension)
	assert.NotEmpty(t, stats.EmbeddingModel)
	assert.Equal(t, "chromem", stats.VectorProvider)
}

func merge(base map[string]any, key, value string) map[string]any {
	out := make(map[string]any, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out[key] = value
	return out
}

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

package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/legalmcp/legalmcp/pkg/vector"
)

// NormContent is the full reassembled content of one corpus document.
type NormContent struct {
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

// LawResult is the outcome of an exact-identifier lookup. Truncated
// marks a lookup that hit the chunk cap and may be incomplete.
type LawResult struct {
	LawAbbrev string        `json:"law_abbrev"`
	NormID    string        `json:"norm_id,omitempty"`
	Count     int           `json:"count"`
	Truncated bool          `json:"truncated,omitempty"`
	Results   []NormContent `json:"results"`
}

// byIDChunkLimit bounds filter-only lookups. Wider than the semantic
// cap because a single law can span many chunks.
const byIDChunkLimit = 512

// GetLawByID retrieves corpus documents by exact identifier, no semantic
// ranking involved. With a norm_id the lookup returns that norm; without
// one it lists the law's documents. Multi-chunk documents are reassembled
// in chunk order with the overlap removed.
func (e *Engine) GetLawByID(ctx context.Context, lawAbbrev, normID string) (*LawResult, error) {
	if strings.TrimSpace(lawAbbrev) == "" {
		return nil, fmt.Errorf("%w: law_abbrev is required", ErrInvalidQuery)
	}
	lawAbbrev = strings.ToUpper(strings.TrimSpace(lawAbbrev))

	preds := []vector.Predicate{vector.Eq("law_abbrev", lawAbbrev)}
	if normID != "" {
		preds = append(preds, vector.Eq("norm_id", normID))
	}

	// Exact lookups ride the search path with a constant probe vector;
	// the filter does the selection, the scores are ignored.
	results, err := e.store.SearchCorpus(ctx, e.probeVector(), byIDChunkLimit, vector.And(preds...))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNormNotFound, lawAbbrev, normID)
	}

	documents := e.reassemble(results)
	return &LawResult{
		LawAbbrev: lawAbbrev,
		NormID:    normID,
		Count:     len(documents),
		Truncated: len(results) >= byIDChunkLimit,
		Results:   documents,
	}, nil
}

// reassemble groups chunks per document and joins them in index order,
// dropping each successor's leading overlap.
func (e *Engine) reassemble(results []vector.Result) []NormContent {
	type chunk struct {
		index   int
		content string
	}
	grouped := make(map[string][]chunk)
	metadata := make(map[string]map[string]any)

	for _, r := range results {
		documentID, _ := r.Metadata["document_id"].(string)
		if documentID == "" {
			documentID = r.ID
		}
		grouped[documentID] = append(grouped[documentID], chunk{
			index:   chunkIndexOf(r.ID),
			content: r.Content,
		})
		if _, ok := metadata[documentID]; !ok {
			metadata[documentID] = r.Metadata
		}
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	documents := make([]NormContent, 0, len(ids))
	for _, id := range ids {
		chunks := grouped[id]
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })

		var sb strings.Builder
		for i, c := range chunks {
			content := c.content
			if i > 0 && e.chunkCfg.OverlapChars > 0 {
				runes := []rune(content)
				if len(runes) > e.chunkCfg.OverlapChars {
					content = string(runes[e.chunkCfg.OverlapChars:])
				} else {
					content = ""
				}
			}
			sb.WriteString(content)
		}
		documents = append(documents, NormContent{
			DocumentID: id,
			Content:    sb.String(),
			Metadata:   metadata[id],
		})
	}
	return documents
}

// chunkIndexOf parses the index suffix of "{document_id}:{index}".
func chunkIndexOf(chunkID string) int {
	idx := strings.LastIndex(chunkID, ":")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(chunkID[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

// probeVector is a constant unit vector for filter-only lookups.
func (e *Engine) probeVector() []float32 {
	dim := e.embedder.Dimension()
	if dim < 1 {
		dim = 1
	}
	v := make([]float32, dim)
	v[0] = 1
	return v
}

// Stats summarises the collections and the embedding configuration.
type Stats struct {
	CorpusChunks   int    `json:"corpus_chunks"`
	UserChunks     int    `json:"user_chunks"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	VectorProvider string `json:"vector_provider"`
}

// CollectStats counts both collections and reports the embedding setup.
// The user-document count is a bare aggregate; no content or tenant
// breakdown crosses this boundary.
func (e *Engine) CollectStats(ctx context.Context) (*Stats, error) {
	corpus, err := e.store.CountCorpus(ctx, nil)
	if err != nil {
		return nil, err
	}
	user, err := e.store.Provider().Count(ctx, vector.CollectionUserDocuments, nil)
	if err != nil {
		return nil, err
	}
	return &Stats{
		CorpusChunks:   corpus,
		UserChunks:     user,
		EmbeddingModel: e.embedder.Model(),
		Dimension:      e.embedder.Dimension(),
		VectorProvider: e.store.Provider().Name(),
	}, nil
}

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

package embedder

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/singleflight"
)

// Local is the in-process fallback embedder, used when no HTTP endpoint is
// configured. It produces deterministic bag-of-words vectors via feature
// hashing, L2-normalised so cosine similarity behaves. Good enough for
// development and tests; the HTTP pool is the production path.
//
// Initialisation is lazy and guarded by a single-flight group so concurrent
// first callers share one instance.
type Local struct {
	dimension int

	group singleflight.Group
	mu    sync.Mutex
	table *localTable
}

type localTable struct {
	// seeds perturb the hash per projection pass.
	seeds []uint64
}

// NewLocal creates the fallback embedder. Dimension must match the
// collection dimension used by the vector store.
func NewLocal(dimension int) *Local {
	if dimension < 1 {
		dimension = 768
	}
	return &Local{dimension: dimension}
}

func (l *Local) init() *localTable {
	v, _, _ := l.group.Do("init", func() (any, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.table != nil {
			return l.table, nil
		}
		slog.Info("initialising in-process embedding fallback", "dimension", l.dimension)
		l.table = &localTable{seeds: []uint64{0x9e3779b97f4a7c15, 0xbf58476d1ce4e5b9, 0x94d049bb133111eb}}
		return l.table, nil
	})
	return v.(*localTable)
}

// EmbedBatch embeds texts in order. Never fails.
func (l *Local) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	table := l.init()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = table.embed(text, l.dimension)
	}
	return out, nil
}

func (t *localTable) embed(text string, dimension int) []float32 {
	vec := make([]float32, dimension)

	for _, token := range tokenize(text) {
		for _, seed := range t.seeds {
			h := fnv.New64a()
			var seedBytes [8]byte
			binary.LittleEndian.PutUint64(seedBytes[:], seed)
			_, _ = h.Write(seedBytes[:])
			_, _ = h.Write([]byte(token))
			sum := h.Sum64()

			idx := int(sum % uint64(dimension))
			sign := float32(1)
			if sum&(1<<63) != 0 {
				sign = -1
			}
			vec[idx] += sign
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Dimension returns the configured vector dimension.
func (l *Local) Dimension() int { return l.dimension }

// Model identifies the fallback model.
func (l *Local) Model() string { return "local-feature-hash-v1" }

// Close releases the lazily loaded table. In-flight EmbedBatch calls
// keep their table reference; only the next init rebuilds it.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.table = nil
	return nil
}

var _ Provider = (*Local)(nil)

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

// Package embedder turns text into fixed-dimension vectors.
//
// Two realisations exist: an HTTP pool fanning out over external embedding
// replicas (the production path) and an in-process fallback used when no
// endpoint is configured.
package embedder

import (
	"context"
	"errors"
)

// ErrEmbeddingUnavailable means no healthy embedding backend could serve
// the request.
var ErrEmbeddingUnavailable = errors.New("no healthy embedding backend available")

// Provider produces embeddings for batches of text.
//
// Implementations must be safe for concurrent callers and must preserve
// input order in the returned vectors: result[i] embeds texts[i].
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
	Close() error
}

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

// Package vector persists embeddings with metadata filters.
//
// Two providers implement the same interface: chromem (embedded, file
// persisted, zero external services) and qdrant (remote, gRPC). The Store
// wrapper on top of either provider owns the two logical collections and
// enforces tenant scoping on the user-documents collection.
package vector

import (
	"context"
	"errors"
)

// Logical collection names.
const (
	CollectionCorpus        = "corpus"
	CollectionUserDocuments = "user_documents"
)

var (
	// ErrUnavailable means the backing store could not serve the request.
	ErrUnavailable = errors.New("vector store unavailable")

	// ErrTenantRequired rejects user-documents operations that are not
	// pinned to a tenant.
	ErrTenantRequired = errors.New("user_documents operations require a tenant_id predicate")
)

// Record is one chunk to persist: content, its embedding, and flat scalar
// metadata.
type Record struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]any
}

// Result is one search hit.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// Provider is the storage backend interface.
//
// Implementations must be safe for concurrent use. Upsert is idempotent by
// record ID. Search returns hits by descending score with ties broken by
// lexicographic ID.
type Provider interface {
	Upsert(ctx context.Context, collection string, records []Record) error
	Search(ctx context.Context, collection string, vector []float32, topK int, filter Expr) ([]Result, error)
	Delete(ctx context.Context, collection string, filter Expr) error
	Count(ctx context.Context, collection string, filter Expr) (int, error)
	Name() string
	Close() error
}

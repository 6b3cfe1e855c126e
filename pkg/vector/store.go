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

package vector

import (
	"context"
	"fmt"
	"log/slog"
)

// Store owns the two logical collections and enforces the tenancy contract
// on top of whichever provider backs them.
//
// The query engine pins tenant predicates before calling in; the checks
// here are the second line of defence, so a future caller that forgets the
// predicate fails loudly instead of leaking across tenants.
type Store struct {
	provider Provider
}

// NewStore wraps a provider.
func NewStore(provider Provider) *Store {
	return &Store{provider: provider}
}

// Provider exposes the underlying backend (used by stats reporting).
func (s *Store) Provider() Provider {
	return s.provider
}

// UpsertCorpus persists shared corpus chunks. Corpus chunks must not carry
// tenant metadata.
func (s *Store) UpsertCorpus(ctx context.Context, records []Record) error {
	for _, rec := range records {
		if v, ok := rec.Metadata["tenant_id"]; ok && v != "" {
			return fmt.Errorf("corpus record %s carries tenant_id", rec.ID)
		}
	}
	return s.provider.Upsert(ctx, CollectionCorpus, records)
}

// UpsertUserDocuments persists tenant-scoped chunks. Every record must
// carry a non-empty tenant_id and no jurisdiction (the shared-corpus and
// private-corpus partitions never mix on one chunk).
func (s *Store) UpsertUserDocuments(ctx context.Context, records []Record) error {
	for _, rec := range records {
		tenant, _ := rec.Metadata["tenant_id"].(string)
		if tenant == "" {
			return fmt.Errorf("%w: record %s has no tenant_id", ErrTenantRequired, rec.ID)
		}
		if _, ok := rec.Metadata["jurisdiction"]; ok {
			return fmt.Errorf("record %s carries both tenant_id and jurisdiction", rec.ID)
		}
	}
	return s.provider.Upsert(ctx, CollectionUserDocuments, records)
}

// SearchCorpus queries the shared corpus.
func (s *Store) SearchCorpus(ctx context.Context, vector []float32, topK int, filter Expr) ([]Result, error) {
	return s.provider.Search(ctx, CollectionCorpus, vector, topK, filter)
}

// SearchUserDocuments queries the tenant collection. The filter must pin
// tenant_id.
func (s *Store) SearchUserDocuments(ctx context.Context, vector []float32, topK int, filter Expr) ([]Result, error) {
	if err := requireTenant(filter); err != nil {
		return nil, err
	}
	return s.provider.Search(ctx, CollectionUserDocuments, vector, topK, filter)
}

// DeleteUserDocuments removes tenant chunks matching the filter. The
// filter must pin tenant_id; there is no tenant-less bulk delete.
func (s *Store) DeleteUserDocuments(ctx context.Context, filter Expr) error {
	if err := requireTenant(filter); err != nil {
		return err
	}
	slog.Debug("deleting user document chunks", "filter", filter.String())
	return s.provider.Delete(ctx, CollectionUserDocuments, filter)
}

// CountCorpus reports corpus chunk counts.
func (s *Store) CountCorpus(ctx context.Context, filter Expr) (int, error) {
	return s.provider.Count(ctx, CollectionCorpus, filter)
}

// CountUserDocuments reports tenant chunk counts. The filter must pin
// tenant_id.
func (s *Store) CountUserDocuments(ctx context.Context, filter Expr) (int, error) {
	if err := requireTenant(filter); err != nil {
		return 0, err
	}
	return s.provider.Count(ctx, CollectionUserDocuments, filter)
}

// Close releases the underlying provider.
func (s *Store) Close() error {
	return s.provider.Close()
}

func requireTenant(filter Expr) error {
	v, ok := FieldValue(filter, "tenant_id")
	if !ok {
		return ErrTenantRequired
	}
	if str, isStr := v.(string); isStr && str == "" {
		return ErrTenantRequired
	}
	return nil
}

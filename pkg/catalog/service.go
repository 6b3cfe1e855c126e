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

package catalog

import (
	"context"
	"path/filepath"
	"sync"
)

// Service resolves sources through the registry and caches open stores.
// Stores are opened lazily on first use and kept for the process lifetime;
// reloading a catalog requires a restart.
type Service struct {
	registry *Registry

	mu     sync.Mutex
	stores map[string]*Store
}

// NewService wraps a configured registry.
func NewService(registry *Registry) *Service {
	return &Service{
		registry: registry,
		stores:   make(map[string]*Store),
	}
}

// NewDefaultRegistry registers the bundled sources under dir.
func NewDefaultRegistry(dir, version string) *Registry {
	registry := NewRegistry()
	_ = registry.Register(Source{
		Name:       SourceBerlin,
		SQLitePath: filepath.Join(dir, "de_state_berlin_bsbe.sqlite"),
		Version:    version,
	})
	return registry
}

// Registry exposes the source registry (for listing available sources).
func (s *Service) Registry() *Registry {
	return s.registry
}

// ListAvailable runs a paginated catalog query. A zero limit means
// DefaultLimit; the prefix is normalised per source vocabulary.
func (s *Service) ListAvailable(ctx context.Context, source, prefix string, offset, limit int) (*QueryResult, error) {
	src, err := s.registry.Get(source)
	if err != nil {
		return nil, err
	}

	normalizedPrefix, err := NormalizePrefix(src.Name, prefix)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	store, err := s.store(src)
	if err != nil {
		return nil, err
	}
	return store.Query(ctx, src, normalizedPrefix, offset, limit)
}

func (s *Service) store(src Source) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[src.Name]; ok {
		return store, nil
	}
	store, err := OpenStore(src.SQLitePath)
	if err != nil {
		return nil, err
	}
	s.stores[src.Name] = store
	return store, nil
}

// Close releases all open stores.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for name, store := range s.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.stores, name)
	}
	return firstErr
}

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

package refcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryBackend keeps entries in an in-process LRU. Writes beyond the
// capacity bound evict the least recently used entry synchronously; since
// the LRU stores whole entries, eviction is atomic by construction.
type MemoryBackend struct {
	entries *lru.Cache[string, *Entry]
}

// NewMemoryBackend creates a bounded in-process backend.
func NewMemoryBackend(capacity int) (*MemoryBackend, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache capacity must be >= 1, got %d", capacity)
	}
	entries, err := lru.New[string, *Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{entries: entries}, nil
}

// Set stores the entry, evicting LRU entries when at capacity.
func (m *MemoryBackend) Set(ctx context.Context, entry *Entry) error {
	m.entries.Add(entry.RefID, entry)
	return nil
}

// Get fetches an entry without expiry interpretation; TTL is the cache
// layer's concern.
func (m *MemoryBackend) Get(ctx context.Context, refID string) (*Entry, bool, error) {
	entry, ok := m.entries.Get(refID)
	return entry, ok, nil
}

// Delete removes an entry.
func (m *MemoryBackend) Delete(ctx context.Context, refID string) error {
	m.entries.Remove(refID)
	return nil
}

// Len reports the number of stored entries.
func (m *MemoryBackend) Len(ctx context.Context) (int, error) {
	return m.entries.Len(), nil
}

// Close drops all entries.
func (m *MemoryBackend) Close() error {
	m.entries.Purge()
	return nil
}

var _ Backend = (*MemoryBackend)(nil)

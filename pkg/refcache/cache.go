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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Hash prefix bounds for reference IDs. Collisions within a namespace
// extend the prefix until it is unique.
const (
	minHashPrefix = 10
	maxHashPrefix = 64
)

// Backend stores whole entries. Two realisations exist: in-process
// (memory.go) and Redis (redis.go).
type Backend interface {
	Set(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, refID string) (*Entry, bool, error)
	Delete(ctx context.Context, refID string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Config bounds the cache.
type Config struct {
	// DefaultTTL applies when a put omits one.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// MaxValueBytes caps the serialised size of one value.
	MaxValueBytes int `yaml:"max_value_bytes"`

	// Preview bounds preview generation.
	Preview PreviewConfig `yaml:"preview"`
}

// DefaultConfig returns the standard cache bounds.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:    24 * time.Hour,
		MaxValueBytes: 8 << 20,
		Preview:       DefaultPreviewConfig(),
	}
}

// Cache is the reference cache service: it derives handles, builds
// previews, walks namespace policies, and delegates storage to a backend.
type Cache struct {
	backend Backend
	cfg     Config

	mu       sync.RWMutex
	policies map[string]AccessPolicy

	now func() time.Time
}

// New creates a cache on top of a backend.
func New(backend Backend, cfg Config) *Cache {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 24 * time.Hour
	}
	if cfg.MaxValueBytes == 0 {
		cfg.MaxValueBytes = 8 << 20
	}
	if cfg.Preview.MaxTokens == 0 {
		cfg.Preview = DefaultPreviewConfig()
	}
	return &Cache{
		backend:  backend,
		cfg:      cfg,
		policies: make(map[string]AccessPolicy),
		now:      time.Now,
	}
}

// SetNamespacePolicy pins the access policy of a namespace. Descendant
// namespaces inherit it unless they set their own.
func (c *Cache) SetNamespacePolicy(namespace string, policy AccessPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policies[namespace] = policy
}

// effectivePolicy resolves the policy for an entry: the entry's own
// override wins, then the closest ancestor namespace, then the default.
func (c *Cache) effectivePolicy(entry *Entry) AccessPolicy {
	if entry.Policy != nil {
		return *entry.Policy
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	ns := entry.Namespace
	for {
		if policy, ok := c.policies[ns]; ok {
			return policy
		}
		idx := strings.LastIndex(ns, "/")
		if idx < 0 {
			break
		}
		ns = ns[:idx]
	}
	return DefaultPolicy()
}

// PutRequest describes one cache write.
type PutRequest struct {
	// Namespace scopes the entry ("public", "user:alice/session:abc").
	Namespace string

	// Key addresses the entry; empty keys fall back to content hashing.
	Key string

	// Value is the payload.
	Value any

	// TTL overrides the default entry lifetime.
	TTL time.Duration

	// Policy overrides the namespace policy for this entry.
	Policy *AccessPolicy

	// Strategy selects the preview shape; empty means sample.
	Strategy PreviewStrategy

	// Actor performing the write.
	Actor Actor
}

// Put registers a value and returns its reference envelope. The same
// (namespace, key or content) always yields the same handle within TTL.
func (c *Cache) Put(ctx context.Context, req PutRequest) (*Reference, error) {
	if req.Namespace == "" {
		return nil, fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}
	if req.Strategy == "" {
		req.Strategy = StrategySample
	}

	serialized, err := json.Marshal(req.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: value is not serialisable: %v", ErrInvalidInput, err)
	}
	if len(serialized) > c.cfg.MaxValueBytes {
		return nil, fmt.Errorf("%w: value is %d bytes (cap %d)", ErrCacheFull, len(serialized), c.cfg.MaxValueBytes)
	}

	contentHash := hashOf(req.Key, serialized)
	entry := &Entry{
		Namespace:   req.Namespace,
		Key:         req.Key,
		Value:       req.Value,
		ContentHash: contentHash,
		CreatedAt:   c.now(),
		TTL:         req.TTL,
		Policy:      req.Policy,
		Strategy:    req.Strategy,
	}
	if entry.TTL == 0 {
		entry.TTL = c.cfg.DefaultTTL
	}

	policy := c.effectivePolicy(entry)
	if !policy.For(req.Actor).CanWrite() {
		return nil, fmt.Errorf("%w: %s cannot write to namespace %s",
			ErrPermissionDenied, actorName(req.Actor), req.Namespace)
	}

	refID, err := c.assignRefID(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.RefID = refID

	if err := c.backend.Set(ctx, entry); err != nil {
		return nil, err
	}
	return c.reference(entry), nil
}

// assignRefID derives "{namespace}:{hash_prefix}", extending the prefix
// while it collides with a different value.
func (c *Cache) assignRefID(ctx context.Context, entry *Entry) (string, error) {
	for n := minHashPrefix; n <= maxHashPrefix; n++ {
		refID := entry.Namespace + ":" + entry.ContentHash[:n]
		existing, ok, err := c.backend.Get(ctx, refID)
		if err != nil {
			return "", err
		}
		if !ok || existing.ContentHash == entry.ContentHash || existing.Expired(c.now()) {
			return refID, nil
		}
	}
	// 64 hex chars of sha256 colliding with different content does not
	// happen; treat it as an internal invariant violation.
	return "", fmt.Errorf("reference id space exhausted for namespace %s", entry.Namespace)
}

// GetRequest describes one retrieval.
type GetRequest struct {
	RefID string
	Actor Actor

	// Page and PageSize slice list-shaped values (1-based page).
	Page     int
	PageSize int

	// MaxChars truncates string-shaped values; 0 means unbounded.
	MaxChars int
}

// Resolved is a successful retrieval.
type Resolved struct {
	RefID      string `json:"ref_id"`
	Value      any    `json:"value"`
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
	TotalItems int    `json:"total_items,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// Get returns the cached value, or one page of it. Requires READ.
func (c *Cache) Get(ctx context.Context, req GetRequest) (*Resolved, error) {
	entry, err := c.lookup(ctx, req.RefID)
	if err != nil {
		return nil, err
	}

	policy := c.effectivePolicy(entry)
	if !policy.For(req.Actor).CanRead() {
		return nil, fmt.Errorf("%w: %s cannot read %s",
			ErrPermissionDenied, actorName(req.Actor), req.RefID)
	}

	resolved := &Resolved{RefID: entry.RefID, Value: entry.Value}

	if items := asList(entry.Value); items != nil {
		resolved.TotalItems = len(items)
		if req.Page > 0 {
			pageItems, totalPages := paginate(items, req.Page, req.PageSize, c.cfg.Preview.PageSize)
			resolved.Value = pageItems
			resolved.Page = req.Page
			resolved.PageSize = req.PageSize
			if resolved.PageSize < 1 {
				resolved.PageSize = c.cfg.Preview.PageSize
			}
			resolved.TotalPages = totalPages
		}
	} else if s, ok := entry.Value.(string); ok && req.MaxChars > 0 {
		runes := []rune(s)
		if len(runes) > req.MaxChars {
			resolved.Value = string(runes[:req.MaxChars])
			resolved.Truncated = true
		}
	}

	return resolved, nil
}

// Resolve returns the raw value for a server-side computation. Requires
// EXECUTE or better; the caller must not hand the value back out.
func (c *Cache) Resolve(ctx context.Context, refID string, actor Actor) (any, error) {
	entry, err := c.lookup(ctx, refID)
	if err != nil {
		return nil, err
	}
	policy := c.effectivePolicy(entry)
	if !policy.For(actor).CanExecute() {
		return nil, fmt.Errorf("%w: %s cannot use %s",
			ErrPermissionDenied, actorName(actor), refID)
	}
	return entry.Value, nil
}

// Describe re-issues the reference envelope for an existing entry.
func (c *Cache) Describe(ctx context.Context, refID string) (*Reference, error) {
	entry, err := c.lookup(ctx, refID)
	if err != nil {
		return nil, err
	}
	return c.reference(entry), nil
}

// Delete removes an entry. Requires WRITE.
func (c *Cache) Delete(ctx context.Context, refID string, actor Actor) error {
	entry, err := c.lookup(ctx, refID)
	if err != nil {
		return err
	}
	policy := c.effectivePolicy(entry)
	if !policy.For(actor).CanWrite() {
		return fmt.Errorf("%w: %s cannot delete %s",
			ErrPermissionDenied, actorName(actor), refID)
	}
	return c.backend.Delete(ctx, refID)
}

// Len reports the number of live entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	return c.backend.Len(ctx)
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}

// lookup fetches an entry and lazily reaps it when expired.
func (c *Cache) lookup(ctx context.Context, refID string) (*Entry, error) {
	if refID == "" {
		return nil, fmt.Errorf("%w: ref_id is required", ErrInvalidInput)
	}
	entry, ok, err := c.backend.Get(ctx, refID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, refID)
	}
	if entry.Expired(c.now()) {
		_ = c.backend.Delete(ctx, refID)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, refID)
	}
	return entry, nil
}

func (c *Cache) reference(entry *Entry) *Reference {
	preview, totalItems := buildPreview(entry.Value, entry.Strategy, c.cfg.Preview)

	ref := &Reference{
		RefID:           entry.RefID,
		Namespace:       entry.Namespace,
		Preview:         preview,
		PreviewStrategy: string(entry.Strategy),
		TotalItems:      totalItems,
	}
	if entry.Strategy == StrategyPaginate && totalItems > 0 {
		ref.Page = 1
		_, ref.TotalPages = paginate(asList(entry.Value), 1, c.cfg.Preview.PageSize, c.cfg.Preview.PageSize)
	}
	if entry.TTL > 0 {
		ref.ExpiresAt = entry.CreatedAt.Add(entry.TTL).UTC().Format(time.RFC3339)
	}
	return ref
}

func hashOf(key string, serializedValue []byte) string {
	h := sha256.New()
	if key != "" {
		_, _ = h.Write([]byte(key))
	} else {
		_, _ = h.Write(serializedValue)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func actorName(a Actor) string {
	if a == ActorUser {
		return "user"
	}
	return "agent"
}

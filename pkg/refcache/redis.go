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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "refcache:"

// RedisBackend stores entries in Redis, one JSON blob per reference so
// expiry and eviction operate on whole entries. TTL is delegated to Redis
// key expiry.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis via URL (redis://host:port/db).
func NewRedisBackend(url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisBackend{client: redis.NewClient(opts)}, nil
}

// NewRedisBackendFromClient wraps an existing client (used by tests).
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Set stores the entry with Redis-side expiry.
func (r *RedisBackend) Set(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: entry is not serialisable: %v", ErrInvalidInput, err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+entry.RefID, data, entry.TTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get fetches and decodes an entry.
func (r *RedisBackend) Get(ctx context.Context, refID string) (*Entry, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+refID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", refID, err)
	}
	return &entry, true, nil
}

// Delete removes an entry.
func (r *RedisBackend) Delete(ctx context.Context, refID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+refID).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Len counts live entries by scanning the key prefix.
func (r *RedisBackend) Len(ctx context.Context) (int, error) {
	var count int
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return count, nil
}

// Close releases the client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

var _ Backend = (*RedisBackend)(nil)

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

// Package refcache converts large tool results into small reference
// handles.
//
// A cached value is addressed by "{namespace}:{hash_prefix}" and returned
// to callers as an envelope: the handle, a bounded preview, and summary
// metadata. The raw value flows back only through an explicit retrieval
// that passes the permission check; EXECUTE-level access lets the server
// resolve a value inside a computation without ever returning it.
//
// Namespaces are string-hierarchical ("user:alice/session:abc"); children
// inherit access policies from ancestors unless overridden. Entries expire
// by TTL or LRU eviction, always as a whole: a ref_id is either fully
// present or fully absent.
package refcache

import (
	"errors"
	"time"
)

var (
	// ErrNotFound means the reference does not exist or has expired.
	ErrNotFound = errors.New("reference not found")

	// ErrPermissionDenied means the actor's permission level does not
	// allow the requested operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCacheFull means the value exceeds what the cache accepts.
	ErrCacheFull = errors.New("cache cannot accept the value")

	// ErrInvalidInput rejects malformed requests.
	ErrInvalidInput = errors.New("invalid cache request")
)

// Permission is one access level of the five-step model.
type Permission int

const (
	// PermNone grants nothing.
	PermNone Permission = iota

	// PermExecute lets a value feed a server-side computation; the raw
	// value never flows back to the caller.
	PermExecute

	// PermRead returns the value in full.
	PermRead

	// PermWrite creates or overwrites entries.
	PermWrite

	// PermFull is read and write.
	PermFull
)

// String returns the canonical permission name.
func (p Permission) String() string {
	switch p {
	case PermNone:
		return "NONE"
	case PermExecute:
		return "EXECUTE"
	case PermRead:
		return "READ"
	case PermWrite:
		return "WRITE"
	case PermFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// CanRead reports whether the raw value may be returned.
func (p Permission) CanRead() bool {
	return p == PermRead || p == PermFull
}

// CanWrite reports whether entries may be created or overwritten.
func (p Permission) CanWrite() bool {
	return p == PermWrite || p == PermFull
}

// CanExecute reports whether the value may feed a server-side computation.
// Every level above NONE qualifies.
func (p Permission) CanExecute() bool {
	return p != PermNone
}

// Actor distinguishes the two principals of the permission model.
type Actor int

const (
	// ActorAgent is the AI agent driving the tool surface.
	ActorAgent Actor = iota

	// ActorUser is the human behind the agent.
	ActorUser
)

// AccessPolicy pairs per-actor permissions.
type AccessPolicy struct {
	UserPerms  Permission `json:"user_perms"`
	AgentPerms Permission `json:"agent_perms"`
}

// For returns the permission of the given actor.
func (a AccessPolicy) For(actor Actor) Permission {
	if actor == ActorUser {
		return a.UserPerms
	}
	return a.AgentPerms
}

// DefaultPolicy grants both actors full access; entries and namespaces
// narrow it down (secrets drop the agent to EXECUTE).
func DefaultPolicy() AccessPolicy {
	return AccessPolicy{UserPerms: PermFull, AgentPerms: PermFull}
}

// Entry is one cached value with its bookkeeping. Entries move through
// backends as a unit so eviction can never leave partial state behind.
type Entry struct {
	RefID       string          `json:"ref_id"`
	Namespace   string          `json:"namespace"`
	Key         string          `json:"key,omitempty"`
	Value       any             `json:"value"`
	ContentHash string          `json:"content_hash"`
	CreatedAt   time.Time       `json:"created_at"`
	TTL         time.Duration   `json:"ttl"`
	Policy      *AccessPolicy   `json:"policy,omitempty"`
	Strategy    PreviewStrategy `json:"preview_strategy"`
}

// Expired reports whether the entry's TTL has run out at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL))
}

// Reference is the envelope returned in place of a large value. This is
// the declared wire shape of every cached tool result; the inner value's
// shape stays internal to the cache.
type Reference struct {
	RefID           string `json:"ref_id"`
	Namespace       string `json:"namespace"`
	Preview         any    `json:"preview"`
	PreviewStrategy string `json:"preview_strategy"`
	TotalItems      int    `json:"total_items,omitempty"`
	Page            int    `json:"page,omitempty"`
	TotalPages      int    `json:"total_pages,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
}

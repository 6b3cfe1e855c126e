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

package renderer

import (
	"context"
	"fmt"
	"sync"
)

// Fake serves canned documents by URL; used in tests and offline runs.
type Fake struct {
	mu        sync.Mutex
	documents map[string]*Document
	calls     []string
}

// NewFake creates an empty fake renderer.
func NewFake() *Fake {
	return &Fake{documents: make(map[string]*Document)}
}

// Add registers a canned document.
func (f *Fake) Add(doc *Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[doc.URL] = doc
}

// Render returns the canned document or ErrRendererUnavailable.
func (f *Fake) Render(ctx context.Context, url string) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	doc, ok := f.documents[url]
	if !ok {
		return nil, fmt.Errorf("%w: no document for %s", ErrRendererUnavailable, url)
	}
	return doc, nil
}

// Calls returns the rendered URLs in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Close is a no-op.
func (f *Fake) Close() error { return nil }

var _ Renderer = (*Fake)(nil)

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

// Package chunking slices documents into deterministic, overlapping chunks.
//
// Chunk boundaries are a pure function of (text, size, overlap): the same
// input always yields byte-identical chunks, which keeps re-ingestion
// idempotent and chunk hashes stable across processes.
package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDocument rejects whitespace-only input.
	ErrEmptyDocument = errors.New("document is empty or whitespace-only")
)

// Chunk is one slice of a document.
type Chunk struct {
	// Index is the 0-based position within the document.
	Index int

	// Content is the chunk text.
	Content string
}

// ContentHash returns the hex sha256 of the chunk content.
func (c Chunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(sum[:])
}

// Config holds chunking parameters.
type Config struct {
	// SizeChars is the maximum chunk length in characters (code points).
	SizeChars int

	// OverlapChars is how many trailing characters of a chunk are repeated
	// at the start of the next one. Must be smaller than SizeChars.
	OverlapChars int

	// MaxChunks caps chunks per document; 0 means unlimited.
	MaxChunks int
}

// DefaultConfig returns the standard chunking parameters.
func DefaultConfig() Config {
	return Config{SizeChars: 1200, OverlapChars: 150}
}

// Validate rejects parameter combinations that cannot terminate.
func (c Config) Validate() error {
	if c.SizeChars < 1 {
		return fmt.Errorf("chunk size must be >= 1, got %d", c.SizeChars)
	}
	if c.OverlapChars < 0 || c.OverlapChars >= c.SizeChars {
		return fmt.Errorf("overlap must be in [0, size), got %d for size %d", c.OverlapChars, c.SizeChars)
	}
	if c.MaxChunks < 0 {
		return fmt.Errorf("max chunks must be >= 0, got %d", c.MaxChunks)
	}
	return nil
}

// Split chunks text per the config. Characters are Unicode code points so a
// multi-byte rune is never cut in half. Documents shorter than the chunk
// size produce exactly one chunk.
func Split(text string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	runes := []rune(text)
	step := cfg.SizeChars - cfg.OverlapChars

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + cfg.SizeChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Content: string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}
	}
	return chunks, nil
}

// ChunkID derives the stable chunk identifier for a document chunk.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// TruncateAtBoundary returns at most n characters of s, cut at a code point
// boundary. n counts code points, not bytes.
func TruncateAtBoundary(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

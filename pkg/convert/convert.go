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

// Package convert turns user files under the allowlisted ingest root into
// Markdown sidecars ({stem}.md next to the input). Results carry conversion
// metadata only, never the Markdown body.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/legalmcp/legalmcp/pkg/chunking"
	"github.com/legalmcp/legalmcp/pkg/safepath"
)

// ErrConverterFailed wraps extraction failures of the underlying converter.
var ErrConverterFailed = errors.New("conversion failed")

// DefaultMaxChars caps the extracted text of one file.
const DefaultMaxChars = 5_000_000

// maxErrorChars bounds per-file error messages in results.
const maxErrorChars = 200

// Extractor turns one resolved file into plain text or Markdown.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Options bounds a conversion run.
type Options struct {
	// MaxChars truncates the extracted text (codepoint count).
	MaxChars int

	// Overwrite replaces an existing sidecar; when false an existing
	// target is a per-file error.
	Overwrite bool
}

// DefaultOptions returns the standard conversion bounds.
func DefaultOptions() Options {
	return Options{MaxChars: DefaultMaxChars, Overwrite: true}
}

// FileResult is the per-file conversion metadata.
type FileResult struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path,omitempty"`
	BytesIn    int64  `json:"bytes_in"`
	BytesOut   int    `json:"bytes_out"`
	Truncated  bool   `json:"truncated,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	Error      string `json:"error,omitempty"`
}

// Result aggregates one conversion run.
type Result struct {
	Converted int          `json:"converted"`
	Failed    int          `json:"failed"`
	Files     []FileResult `json:"files"`
}

// Converter routes files by suffix to the registered extractors and writes
// Markdown sidecars through the safe-path resolver.
type Converter struct {
	resolver   *safepath.Resolver
	extractors map[string]Extractor
}

// New creates a converter with the built-in extractors (PDF, plain text,
// Markdown pass-through, HTML).
func New(resolver *safepath.Resolver) *Converter {
	c := &Converter{
		resolver:   resolver,
		extractors: make(map[string]Extractor),
	}
	c.Register(".pdf", &PDFExtractor{})
	text := &TextExtractor{}
	for _, suffix := range []string{".txt", ".md", ".markdown"} {
		c.Register(suffix, text)
	}
	html := &HTMLExtractor{}
	c.Register(".html", html)
	c.Register(".htm", html)
	return c
}

// Register binds an extractor to a lowercase suffix (".pdf"). Later
// registrations replace earlier ones.
func (c *Converter) Register(suffix string, extractor Extractor) {
	c.extractors[strings.ToLower(suffix)] = extractor
}

// AllowedSuffixes returns the registered suffixes, sorted for stable
// error messages and schema docs.
func (c *Converter) AllowedSuffixes() []string {
	suffixes := make([]string, 0, len(c.extractors))
	for suffix := range c.extractors {
		suffixes = append(suffixes, suffix)
	}
	sort.Strings(suffixes)
	return suffixes
}

// ConvertFile converts one root-relative path to a Markdown sidecar and
// returns its metadata. Path violations and extraction failures come back
// as errors; the caller decides whether they abort a batch.
func (c *Converter) ConvertFile(ctx context.Context, relativePath string, opts Options) (*FileResult, error) {
	start := time.Now()
	if opts.MaxChars < 1 {
		opts.MaxChars = DefaultMaxChars
	}

	resolved, err := c.resolver.Resolve(relativePath, c.AllowedSuffixes())
	if err != nil {
		return nil, err
	}

	extractor, ok := c.extractors[strings.ToLower(filepath.Ext(resolved))]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for %s", ErrConverterFailed, filepath.Ext(resolved))
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot stat %s", ErrConverterFailed, relativePath)
	}

	text, err := extractor.Extract(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConverterFailed, relativePath, err)
	}

	truncated := false
	if len(text) > opts.MaxChars {
		if cut := chunking.TruncateAtBoundary(text, opts.MaxChars); len(cut) < len(text) {
			text = cut
			truncated = true
		}
	}

	target, err := c.resolver.WriteSibling(resolved, ".md", []byte(text), opts.Overwrite)
	if err != nil {
		return nil, err
	}

	outputRel, err := filepath.Rel(c.resolver.Root(), target)
	if err != nil {
		outputRel = filepath.Base(target)
	}

	return &FileResult{
		InputPath:  relativePath,
		OutputPath: outputRel,
		BytesIn:    info.Size(),
		BytesOut:   len(text),
		Truncated:  truncated,
		ElapsedMS:  time.Since(start).Milliseconds(),
	}, nil
}

// ConvertAll converts a batch with per-file failure isolation.
func (c *Converter) ConvertAll(ctx context.Context, paths []string, opts Options) *Result {
	result := &Result{Files: make([]FileResult, 0, len(paths))}
	for _, path := range paths {
		fileResult, err := c.ConvertFile(ctx, path, opts)
		if err != nil {
			result.Failed++
			result.Files = append(result.Files, FileResult{
				InputPath: path,
				Error:     TruncateError(err),
			})
			continue
		}
		result.Converted++
		result.Files = append(result.Files, *fileResult)
	}
	return result
}

// TruncateError bounds an error message for embedding in batch results.
func TruncateError(err error) string {
	msg := err.Error()
	runes := []rune(msg)
	if len(runes) > maxErrorChars {
		return string(runes[:maxErrorChars])
	}
	return msg
}

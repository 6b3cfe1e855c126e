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

// Package safepath confines file-based ingestion to an allowlisted root.
//
// Every caller-supplied path is resolved relative to the configured root,
// symlinks included, and must land on a regular file inside the root with
// an allowed suffix and a bounded size. Error messages never carry file
// contents.
package safepath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors, ordered by the rule that produces them.
var (
	ErrRootMisconfigured = errors.New("ingest root is misconfigured")
	ErrPathAbsolute      = errors.New("absolute paths are not allowed")
	ErrPathTraversal     = errors.New("path contains a parent-directory component")
	ErrPathEscape        = errors.New("path escapes the allowlisted root")
	ErrNotRegularFile    = errors.New("path is not a regular file")
	ErrSuffixNotAllowed  = errors.New("file suffix is not allowed")
	ErrTooLarge          = errors.New("file exceeds the size cap")
)

// Resolver validates paths against a single allowlisted root.
type Resolver struct {
	root string
}

// NewResolver canonicalises root and verifies it is an existing directory.
// The directory is created if missing (the default root is created lazily).
func NewResolver(root string) (*Resolver, error) {
	if root == "" || !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%w: root must be an absolute path", ErrRootMisconfigured)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create %s: %v", ErrRootMisconfigured, root, err)
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve %s: %v", ErrRootMisconfigured, root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootMisconfigured, root)
	}
	return &Resolver{root: resolved}, nil
}

// Root returns the canonical allowlisted root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve validates relativePath against the root and the suffix allowlist
// and returns the canonical absolute path. Suffixes are matched
// case-insensitively and must include the dot (".md", ".pdf").
func (r *Resolver) Resolve(relativePath string, allowedSuffixes []string) (string, error) {
	if relativePath == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathTraversal)
	}
	if filepath.IsAbs(relativePath) {
		return "", fmt.Errorf("%w: %s", ErrPathAbsolute, relativePath)
	}

	cleaned := filepath.Clean(relativePath)
	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("%w: %s", ErrPathTraversal, relativePath)
		}
	}

	candidate, err := filepath.EvalSymlinks(filepath.Join(r.root, cleaned))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNotRegularFile, relativePath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscape, relativePath)
	}

	if !r.contains(candidate) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, relativePath)
	}

	info, err := os.Lstat(candidate)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotRegularFile, relativePath)
	}

	if len(allowedSuffixes) > 0 {
		suffix := strings.ToLower(filepath.Ext(candidate))
		allowed := false
		for _, s := range allowedSuffixes {
			if suffix == strings.ToLower(s) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", fmt.Errorf("%w: %s (want one of %s)", ErrSuffixNotAllowed, suffix, strings.Join(allowedSuffixes, ", "))
		}
	}

	return candidate, nil
}

// ReadFile resolves relativePath and reads it, enforcing maxBytes.
func (r *Resolver) ReadFile(relativePath string, allowedSuffixes []string, maxBytes int64) (string, []byte, error) {
	path, err := r.Resolve(relativePath, allowedSuffixes)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrNotRegularFile, relativePath)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", nil, fmt.Errorf("%w: %d bytes (cap %d)", ErrTooLarge, info.Size(), maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", relativePath, err)
	}
	return path, data, nil
}

// WriteSibling writes data next to an already resolved path, swapping the
// suffix. The target must still be inside the root. With overwrite false an
// existing target is an error.
func (r *Resolver) WriteSibling(resolvedPath, newSuffix string, data []byte, overwrite bool) (string, error) {
	if !r.contains(resolvedPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, filepath.Base(resolvedPath))
	}
	target := strings.TrimSuffix(resolvedPath, filepath.Ext(resolvedPath)) + newSuffix
	if !overwrite {
		if _, err := os.Lstat(target); err == nil {
			return "", fmt.Errorf("target %s already exists", filepath.Base(target))
		}
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(target), err)
	}
	return target, nil
}

// contains reports whether path sits under the root at a component boundary.
func (r *Resolver) contains(path string) bool {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

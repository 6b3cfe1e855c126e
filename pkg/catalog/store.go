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
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store queries one SQLite catalog database, read-only.
type Store struct {
	path string
	db   *sql.DB
}

// OpenStore opens the database in read-only mode and validates its schema.
func OpenStore(path string) (*Store, error) {
	if err := requireCatalogFile(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_query_only=true")
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", ErrCatalogCorrupt, path, err)
	}

	s := &Store{path: path, db: db}
	if err := s.validateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query lists documents for a source with optional exact prefix filtering.
// Ordering is lexicographic by document_id; prefix_counts always cover the
// whole source, not the filtered subset.
func (s *Store) Query(ctx context.Context, src Source, prefix string, offset, limit int) (*QueryResult, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0", ErrInvalidQuery)
	}
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be in [1, %d]", ErrInvalidQuery, MaxLimit)
	}

	countTotal, err := s.countTotal(ctx, src.Name)
	if err != nil {
		return nil, err
	}
	prefixCounts, err := s.countPrefixes(ctx, src.Name)
	if err != nil {
		return nil, err
	}

	countFiltered := countTotal
	if prefix != "" {
		countFiltered, err = s.countFiltered(ctx, src.Name, prefix)
		if err != nil {
			return nil, err
		}
	}

	items, err := s.fetchItems(ctx, src.Name, prefix, offset, limit)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Source:         src.Name,
		CatalogVersion: src.Version,
		Prefix:         prefix,
		Offset:         offset,
		Limit:          limit,
		CountTotal:     countTotal,
		CountFiltered:  countFiltered,
		PrefixCounts:   prefixCounts,
		Items:          items,
	}, nil
}

func (s *Store) validateSchema() error {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='documents'").Scan(&name)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: missing required table: documents", ErrCatalogCorrupt)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCatalogCorrupt, s.path, err)
	}

	rows, err := s.db.Query("PRAGMA table_info(documents)")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCatalogCorrupt, s.path, err)
	}
	defer func() { _ = rows.Close() }()

	columns := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCatalogCorrupt, s.path, err)
		}
		columns[colName] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCatalogCorrupt, s.path, err)
	}

	var missing []string
	for _, required := range []string{"source", "document_id", "canonical_url", "document_type_prefix"} {
		if !columns[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: 'documents' table missing column(s): %s",
			ErrCatalogCorrupt, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Store) countTotal(ctx context.Context, source string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE source = ?", source).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count failed: %v", ErrCatalogCorrupt, err)
	}
	return n, nil
}

func (s *Store) countFiltered(ctx context.Context, source, prefix string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE source = ? AND document_type_prefix = ?",
		source, prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: filtered count failed: %v", ErrCatalogCorrupt, err)
	}
	return n, nil
}

func (s *Store) countPrefixes(ctx context.Context, source string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT document_type_prefix, COUNT(*) FROM documents WHERE source = ? GROUP BY document_type_prefix",
		source)
	if err != nil {
		return nil, fmt.Errorf("%w: prefix counts failed: %v", ErrCatalogCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var prefix string
		var n int
		if err := rows.Scan(&prefix, &n); err != nil {
			return nil, fmt.Errorf("%w: prefix counts failed: %v", ErrCatalogCorrupt, err)
		}
		counts[prefix] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: prefix counts failed: %v", ErrCatalogCorrupt, err)
	}

	// Stable keys for the known prefixes, so callers see zeroes instead of
	// missing entries.
	for _, expected := range []string{"jlr", "NJRE", "other"} {
		if _, ok := counts[expected]; !ok {
			counts[expected] = 0
		}
	}
	return counts, nil
}

func (s *Store) fetchItems(ctx context.Context, source, prefix string, offset, limit int) ([]Item, error) {
	query := "SELECT document_id, canonical_url, document_type_prefix FROM documents WHERE source = ?"
	args := []any{source}
	if prefix != "" {
		query += " AND document_type_prefix = ?"
		args = append(args, prefix)
	}
	query += " ORDER BY document_id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: item query failed: %v", ErrCatalogCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]Item, 0, limit)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.DocumentID, &item.CanonicalURL, &item.DocumentTypePrefix); err != nil {
			return nil, fmt.Errorf("%w: item scan failed: %v", ErrCatalogCorrupt, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: item query failed: %v", ErrCatalogCorrupt, err)
	}
	return items, nil
}

// requireCatalogFile fails fast when the database file is missing or is a
// Git LFS pointer that was never pulled.
func requireCatalogFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: database file missing: %s", ErrCatalogNotFound, path)
	}
	if info.Size() <= 2048 {
		data, err := os.ReadFile(path)
		if err == nil && strings.Contains(string(data), "git-lfs.github.com/spec") &&
			strings.Contains(string(data), "oid sha256:") {
			return fmt.Errorf("%w: %s is a Git LFS pointer file, fetch LFS objects first",
				ErrCatalogCorrupt, path)
		}
	}
	return nil
}

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

package ingest

import (
	"sort"
	"strings"
)

// NormalizeTagsCSV canonicalises a comma-separated tag list: tags are
// trimmed, lowercased, deduplicated and sorted. Empty input yields "".
func NormalizeTagsCSV(csv string) string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range strings.Split(csv, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

// tagMetadata returns the tag fields for chunk metadata: the normalised
// CSV always, plus a single "tag" field when exactly one tag is set so
// equality filters work without substring matching.
func tagMetadata(csv string) map[string]any {
	normalized := NormalizeTagsCSV(csv)
	if normalized == "" {
		return nil
	}
	meta := map[string]any{"tags_csv": normalized}
	if !strings.Contains(normalized, ",") {
		meta["tag"] = normalized
	}
	return meta
}

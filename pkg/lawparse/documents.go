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

package lawparse

import (
	"fmt"
	"strings"
)

// Levels of corpus documents.
const (
	LevelNorm      = "norm"
	LevelParagraph = "paragraph"
)

// Document is one indexable unit derived from a norm: either the full norm
// text or a single paragraph of it.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// NormDocumentID derives the stable identifier for a norm:
// law abbreviation lowered, "§" replaced with "para", spaces with "_".
// "BGB" + "§ 433" yields "bgb_para_433".
func NormDocumentID(lawAbbrev, normID string) string {
	normalized := strings.ReplaceAll(normID, "§", "para")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	return strings.ToLower(lawAbbrev) + "_" + strings.ToLower(normalized)
}

// BuildDocuments converts a parsed norm into indexable documents: the full
// norm first, then one document per paragraph when the norm has more than
// one. Paragraph indices are 1-based.
func BuildDocuments(norm *Norm, lawAbbrev, jurisdiction, sourceURL string) []Document {
	normDocID := NormDocumentID(lawAbbrev, norm.NormID)

	base := map[string]any{
		"jurisdiction": jurisdiction,
		"law_abbrev":   lawAbbrev,
		"law_title":    norm.LawTitle,
		"norm_id":      norm.NormID,
		"norm_title":   norm.NormTitle,
		"source_url":   sourceURL,
		"source_type":  "html",
	}

	docs := []Document{{
		ID:      normDocID,
		Content: norm.FullText,
		Metadata: merge(base, map[string]any{
			"level":           LevelNorm,
			"paragraph_count": len(norm.Paragraphs),
		}),
	}}

	if len(norm.Paragraphs) > 1 {
		for i, paragraph := range norm.Paragraphs {
			docs = append(docs, Document{
				ID:      fmt.Sprintf("%s_abs_%d", normDocID, i+1),
				Content: paragraph,
				Metadata: merge(base, map[string]any{
					"level":           LevelParagraph,
					"paragraph_index": i + 1,
					"parent_norm_id":  normDocID,
				}),
			})
		}
	}

	return docs
}

func merge(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

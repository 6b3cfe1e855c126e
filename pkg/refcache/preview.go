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
	"encoding/json"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// PreviewStrategy selects how a cached value is condensed for inline
// display.
type PreviewStrategy string

const (
	// StrategySample keeps the first few items of a list plus every
	// stride-th thereafter, within the token budget.
	StrategySample PreviewStrategy = "sample"

	// StrategyTruncate keeps the head of a string, cut at a codepoint
	// boundary.
	StrategyTruncate PreviewStrategy = "truncate"

	// StrategyPaginate previews page 1 of a list; later pages come from
	// explicit retrieval with page parameters.
	StrategyPaginate PreviewStrategy = "paginate"
)

// PreviewConfig bounds preview generation.
type PreviewConfig struct {
	// MaxTokens is the token budget for a preview.
	MaxTokens int `yaml:"max_tokens"`

	// SampleHead is how many leading items a sample always includes.
	SampleHead int `yaml:"sample_head"`

	// SampleStride picks every n-th item after the head.
	SampleStride int `yaml:"sample_stride"`

	// PageSize is the default pagination page size.
	PageSize int `yaml:"page_size"`
}

// DefaultPreviewConfig mirrors the server defaults.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		MaxTokens:    2048,
		SampleHead:   10,
		SampleStride: 10,
		PageSize:     20,
	}
}

// tokenCounter counts tokens with tiktoken, falling back to a bytes/4
// estimate when the encoding is unavailable (offline environments).
type tokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

var counter tokenCounter

func countTokens(s string) int {
	counter.once.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			counter.enc = enc
		}
	})
	if counter.enc != nil {
		return len(counter.enc.Encode(s, nil, nil))
	}
	return len(s)/4 + 1
}

func tokensOf(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return countTokens(string(data))
}

// buildPreview condenses value per the strategy. For list-shaped values it
// also reports the total item count.
func buildPreview(value any, strategy PreviewStrategy, cfg PreviewConfig) (preview any, totalItems int) {
	switch strategy {
	case StrategyTruncate:
		s, ok := value.(string)
		if !ok {
			data, _ := json.Marshal(value)
			s = string(data)
		}
		return truncateToBudget(s, cfg.MaxTokens), 0

	case StrategyPaginate:
		items := asList(value)
		if items == nil {
			return value, 0
		}
		end := cfg.PageSize
		if end > len(items) {
			end = len(items)
		}
		return items[:end], len(items)

	case StrategySample:
		fallthrough
	default:
		items := asList(value)
		if items == nil {
			// Scalar or object: sample degenerates to truncate.
			p, _ := buildPreview(value, StrategyTruncate, cfg)
			return p, 0
		}
		return sampleItems(items, cfg), len(items)
	}
}

// sampleItems keeps the head plus every stride-th item, stopping when the
// token budget is spent.
func sampleItems(items []any, cfg PreviewConfig) []any {
	head := cfg.SampleHead
	if head < 1 {
		head = 10
	}
	stride := cfg.SampleStride
	if stride < 1 {
		stride = 10
	}

	sampled := make([]any, 0, head)
	budget := cfg.MaxTokens
	for i := 0; i < len(items); i++ {
		if i >= head && (i-head+1)%stride != 0 {
			continue
		}
		cost := tokensOf(items[i])
		if budget-cost < 0 && len(sampled) > 0 {
			break
		}
		budget -= cost
		sampled = append(sampled, items[i])
	}
	return sampled
}

// truncateToBudget keeps the head of s within the token budget, cut at a
// codepoint boundary.
func truncateToBudget(s string, maxTokens int) string {
	if countTokens(s) <= maxTokens {
		return s
	}
	runes := []rune(s)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if countTokens(string(runes[:mid])) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}

// asList normalises list-shaped values to []any; non-lists return nil.
func asList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}

// paginate slices a list value. Pages are 1-based; pageSize 0 falls back
// to the config default.
func paginate(items []any, page, pageSize, defaultPageSize int) (pageItems []any, totalPages int) {
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize < 1 {
		pageSize = 20
	}
	totalPages = (len(items) + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []any{}, totalPages
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], totalPages
}

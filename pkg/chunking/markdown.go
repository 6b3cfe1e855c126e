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

package chunking

import (
	"strings"
)

// Section is a heading-delimited region of a Markdown document.
type Section struct {
	// Index is the 0-based position of the section in the document.
	Index int

	// Title is the heading text, or "Document" for headingless preambles.
	Title string

	// Level is the ATX heading level (1-6); 0 for the synthetic preamble.
	Level int

	// Path joins ancestor titles with " > " for breadcrumb display.
	Path string

	// Content is the section body including its heading line.
	Content string
}

// SplitMarkdownSections splits a Markdown document at ATX headings. Content
// before the first heading becomes a synthetic "Document" section. Documents
// without any heading yield a single section holding the whole text.
// Fenced code blocks are respected: a "#" inside a fence is not a heading.
func SplitMarkdownSections(text string) []Section {
	lines := strings.Split(text, "\n")

	type rawSection struct {
		title string
		level int
		lines []string
	}

	var raw []rawSection
	current := rawSection{title: "Document", level: 0}
	inFence := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}

		if !inFence {
			if level, title, ok := parseATXHeading(line); ok {
				if len(current.lines) > 0 || current.level > 0 {
					raw = append(raw, current)
				}
				current = rawSection{title: title, level: level}
				current.lines = append(current.lines, line)
				continue
			}
		}
		current.lines = append(current.lines, line)
	}
	raw = append(raw, current)

	// Drop an empty synthetic preamble when the document starts with a heading.
	if len(raw) > 1 && raw[0].level == 0 && strings.TrimSpace(strings.Join(raw[0].lines, "\n")) == "" {
		raw = raw[1:]
	}

	// Breadcrumb path: the nearest ancestor chain by heading level.
	var ancestry []rawSection
	sections := make([]Section, 0, len(raw))
	for _, r := range raw {
		for len(ancestry) > 0 && ancestry[len(ancestry)-1].level >= r.level && r.level > 0 {
			ancestry = ancestry[:len(ancestry)-1]
		}

		parts := make([]string, 0, len(ancestry)+1)
		for _, a := range ancestry {
			if a.level > 0 {
				parts = append(parts, a.title)
			}
		}
		parts = append(parts, r.title)

		sections = append(sections, Section{
			Index:   len(sections),
			Title:   r.title,
			Level:   r.level,
			Path:    strings.Join(parts, " > "),
			Content: strings.Join(r.lines, "\n"),
		})

		if r.level > 0 {
			ancestry = append(ancestry, r)
		}
	}
	return sections
}

// parseATXHeading recognises "# Title" through "###### Title".
func parseATXHeading(line string) (level int, title string, ok bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return 0, "", false
	}
	i := 0
	for i < len(trimmed) && trimmed[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return 0, "", false
	}
	rest := trimmed[i:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	title = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
	if title == "" {
		title = "Untitled"
	}
	return i, title, true
}

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

// Package lawparse extracts structured norms from German federal law HTML
// (gesetze-im-internet.de page layout).
//
// Structure parsed:
//   - Law title: <h1>
//   - Norm identifier: <span class="jnenbez"> ("§ 433", "Art 1")
//   - Norm title: <span class="jnentitel"> (optional)
//   - Paragraphs: <div class="jurAbsatz">, one per Absatz
//
// Source pages declare ISO-8859-1; DecodeLatin1 converts raw bytes before
// parsing. Decoding never fails a document.
package lawparse

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoNorm means the page carried no recognisable norm content.
var ErrNoNorm = errors.New("page contains no norm content")

// Norm is a parsed legal norm.
type Norm struct {
	LawTitle   string
	NormID     string
	NormTitle  string
	Paragraphs []string

	// FullText joins all paragraphs with a blank line.
	FullText string
}

// DecodeLatin1 converts ISO-8859-1 bytes to UTF-8. Every byte has a mapping,
// so this cannot fail on arbitrary input.
func DecodeLatin1(data []byte) string {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// Unreachable for ISO-8859-1, but never fail the document.
		return string(data)
	}
	return string(decoded)
}

// Parse extracts a norm from an HTML page already decoded to UTF-8.
func Parse(content string) (*Norm, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	norm := &Norm{
		LawTitle:  textOf(findFirst(root, func(n *html.Node) bool { return n.Data == "h1" })),
		NormID:    textOf(findFirst(root, matchClass("span", "jnenbez"))),
		NormTitle: textOf(findFirst(root, matchClass("span", "jnentitel"))),
	}

	for _, div := range findAll(root, matchClass("div", "jurAbsatz")) {
		if text := textOf(div); text != "" {
			norm.Paragraphs = append(norm.Paragraphs, text)
		}
	}
	norm.FullText = strings.Join(norm.Paragraphs, "\n\n")

	if norm.NormID == "" && len(norm.Paragraphs) == 0 {
		return nil, ErrNoNorm
	}
	return norm, nil
}

// ParseLatin1 decodes raw ISO-8859-1 page bytes and parses them.
func ParseLatin1(data []byte) (*Norm, error) {
	return Parse(DecodeLatin1(data))
}

func matchClass(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Data != tag {
			return false
		}
		for _, attr := range n.Attr {
			if attr.Key == "class" {
				for _, c := range strings.Fields(attr.Val) {
					if c == class {
						return true
					}
				}
			}
		}
		return false
	}
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root.Type == html.ElementNode && match(root) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	if root.Type == html.ElementNode && match(root) {
		out = append(out, root)
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, findAll(child, match)...)
	}
	return out
}

// textOf collects the node's text content with whitespace runs collapsed.
func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

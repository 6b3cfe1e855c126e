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

package convert

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// PDFExtractor extracts page text from a PDF. Pages that fail to extract
// are skipped with a marker line rather than failing the file.
type PDFExtractor struct{}

// Extract renders each page under a "## Page N" heading so the Markdown
// sidecar stays section-aware for chunking.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("cannot stat pdf: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("cannot parse pdf: %w", err)
	}

	var parts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			parts = append(parts, fmt.Sprintf("## Page %d\n\n*(extraction failed)*", pageNum))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("## Page %d\n\n%s", pageNum, strings.TrimSpace(text)))
	}

	return strings.Join(parts, "\n\n"), nil
}

// TextExtractor reads a file as UTF-8, replacing invalid bytes.
type TextExtractor struct{}

func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read file: %w", err)
	}
	return string(toValidUTF8(data)), nil
}

// HTMLExtractor strips markup, keeping text content in document order.
// Headings are re-emitted as ATX headings so the sidecar chunks by section.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read file: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(toValidUTF8(data))))
	if err != nil {
		return "", fmt.Errorf("cannot parse html: %w", err)
	}

	var blocks []string
	collectBlocks(doc, &blocks)
	return strings.Join(blocks, "\n\n"), nil
}

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

func collectBlocks(node *html.Node, blocks *[]string) {
	if node.Type == html.ElementNode {
		switch {
		case node.Data == "script" || node.Data == "style":
			return
		case headingLevels[node.Data] > 0:
			if text := nodeText(node); text != "" {
				*blocks = append(*blocks, strings.Repeat("#", headingLevels[node.Data])+" "+text)
			}
			return
		case node.Data == "p" || node.Data == "li" || node.Data == "div" && !hasBlockChild(node):
			if text := nodeText(node); text != "" {
				*blocks = append(*blocks, text)
			}
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectBlocks(child, blocks)
	}
}

// hasBlockChild reports whether a div contains further block elements, in
// which case recursion handles its children individually.
func hasBlockChild(node *html.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		switch child.Data {
		case "p", "div", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6":
			return true
		}
	}
	return false
}

// nodeText collapses the text content of a node to single-spaced words.
func nodeText(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// toValidUTF8 replaces invalid byte sequences with the replacement rune.
func toValidUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return []byte(strings.ToValidUTF8(string(data), "�"))
}

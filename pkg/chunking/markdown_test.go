package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMarkdownSectionsNoHeading(t *testing.T) {
	sections := SplitMarkdownSections("just a paragraph\nwith two lines")
	require.Len(t, sections, 1)
	assert.Equal(t, "Document", sections[0].Title)
	assert.Equal(t, 0, sections[0].Level)
	assert.Equal(t, "Document", sections[0].Path)
}

func TestSplitMarkdownSectionsNested(t *testing.T) {
	md := "# Vertrag\n\nintro\n\n## Fristen\n\nvier Wochen\n\n## Haftung\n\nbegrenzt\n"
	sections := SplitMarkdownSections(md)
	require.Len(t, sections, 3)

	assert.Equal(t, "Vertrag", sections[0].Title)
	assert.Equal(t, 1, sections[0].Level)
	assert.Equal(t, "Vertrag", sections[0].Path)

	assert.Equal(t, "Fristen", sections[1].Title)
	assert.Equal(t, 2, sections[1].Level)
	assert.Equal(t, "Vertrag > Fristen", sections[1].Path)

	assert.Equal(t, "Haftung", sections[2].Title)
	assert.Equal(t, "Vertrag > Haftung", sections[2].Path)
	assert.Contains(t, sections[2].Content, "begrenzt")
}

func TestSplitMarkdownSectionsPreamble(t *testing.T) {
	md := "preamble text\n\n# First\n\nbody"
	sections := SplitMarkdownSections(md)
	require.Len(t, sections, 2)
	assert.Equal(t, "Document", sections[0].Title)
	assert.Contains(t, sections[0].Content, "preamble text")
	assert.Equal(t, "First", sections[1].Title)
}

func TestSplitMarkdownSectionsCodeFence(t *testing.T) {
	md := "# Top\n\n```\n# not a heading\n```\n\n## Real\n\nbody"
	sections := SplitMarkdownSections(md)
	require.Len(t, sections, 2)
	assert.Equal(t, "Top", sections[0].Title)
	assert.Contains(t, sections[0].Content, "# not a heading")
	assert.Equal(t, "Real", sections[1].Title)
}

func TestSplitMarkdownSectionsSiblingPathReset(t *testing.T) {
	md := "# A\n\n## A1\n\n# B\n\n## B1\n"
	sections := SplitMarkdownSections(md)
	require.Len(t, sections, 4)
	assert.Equal(t, "A > A1", sections[1].Path)
	assert.Equal(t, "B", sections[2].Path)
	assert.Equal(t, "B > B1", sections[3].Path)
}

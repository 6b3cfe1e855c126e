package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalmcp/legalmcp/pkg/safepath"
)

func newConverter(t *testing.T) (*Converter, string) {
	t.Helper()
	root := t.TempDir()
	resolver, err := safepath.NewResolver(root)
	require.NoError(t, err)
	return New(resolver), resolver.Root()
}

func writeInput(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
}

func TestConvertTextFile(t *testing.T) {
	converter, root := newConverter(t)
	writeInput(t, root, "vertrag.txt", "Die Kündigungsfrist beträgt vier Wochen.")

	result, err := converter.ConvertFile(context.Background(), "vertrag.txt", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "vertrag.txt", result.InputPath)
	assert.Equal(t, "vertrag.md", result.OutputPath)
	assert.Greater(t, result.BytesIn, int64(0))
	assert.Equal(t, result.BytesOut, len("Die Kündigungsfrist beträgt vier Wochen."))
	assert.False(t, result.Truncated)

	data, err := os.ReadFile(filepath.Join(root, "vertrag.md"))
	require.NoError(t, err)
	assert.Equal(t, "Die Kündigungsfrist beträgt vier Wochen.", string(data))
}

func TestConvertHTMLFile(t *testing.T) {
	converter, root := newConverter(t)
	writeInput(t, root, "norm.html",
		`<html><head><style>p{color:red}</style></head><body>
		<h1>Bürgerliches Gesetzbuch</h1>
		<p>§ 433 Vertragstypische   Pflichten beim Kaufvertrag</p>
		<script>alert(1)</script>
		</body></html>`)

	result, err := converter.ConvertFile(context.Background(), "norm.html", DefaultOptions())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, result.OutputPath))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# Bürgerliches Gesetzbuch")
	assert.Contains(t, text, "§ 433 Vertragstypische Pflichten beim Kaufvertrag")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestConvertTruncatesAtCap(t *testing.T) {
	converter, root := newConverter(t)
	writeInput(t, root, "long.txt", strings.Repeat("ü", 100))

	opts := DefaultOptions()
	opts.MaxChars = 10
	result, err := converter.ConvertFile(context.Background(), "long.txt", opts)
	require.NoError(t, err)
	assert.True(t, result.Truncated)

	data, err := os.ReadFile(filepath.Join(root, "long.md"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ü", 10), string(data))
}

func TestConvertNoOverwrite(t *testing.T) {
	converter, root := newConverter(t)
	writeInput(t, root, "doc.txt", "neu")
	writeInput(t, root, "doc.md", "alt")

	opts := DefaultOptions()
	opts.Overwrite = false
	_, err := converter.ConvertFile(context.Background(), "doc.txt", opts)
	assert.Error(t, err)

	data, err := os.ReadFile(filepath.Join(root, "doc.md"))
	require.NoError(t, err)
	assert.Equal(t, "alt", string(data))
}

func TestConvertRejectsUnknownSuffix(t *testing.T) {
	converter, root := newConverter(t)
	writeInput(t, root, "image.png", "\x89PNG")

	_, err := converter.ConvertFile(context.Background(), "image.png", DefaultOptions())
	assert.ErrorIs(t, err, safepath.ErrSuffixNotAllowed)
}

func TestConvertAllIsolatesFailures(t *testing.T) {
	converter, root := newConverter(t)
	writeInput(t, root, "ok.txt", "Inhalt")

	result := converter.ConvertAll(context.Background(),
		[]string{"ok.txt", "../etc/passwd", "missing.txt"}, DefaultOptions())

	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Files, 3)
	assert.Empty(t, result.Files[0].Error)
	assert.NotEmpty(t, result.Files[1].Error)
	assert.NotEmpty(t, result.Files[2].Error)
}

type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, path string) (string, error) {
	return "", errors.New("broken extractor")
}

func TestConvertWrapsExtractorFailure(t *testing.T) {
	converter, root := newConverter(t)
	converter.Register(".txt", failingExtractor{})
	writeInput(t, root, "doc.txt", "Inhalt")

	_, err := converter.ConvertFile(context.Background(), "doc.txt", DefaultOptions())
	assert.ErrorIs(t, err, ErrConverterFailed)
}

func TestTruncateError(t *testing.T) {
	long := errors.New(strings.Repeat("x", 500))
	assert.Len(t, TruncateError(long), 200)
	short := errors.New("kurz")
	assert.Equal(t, "kurz", TruncateError(short))
}

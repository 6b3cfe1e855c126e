package safepath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	r, err := NewResolver(root)
	require.NoError(t, err)
	return r, root
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewResolverRejectsRelativeRoot(t *testing.T) {
	_, err := NewResolver("relative/root")
	assert.ErrorIs(t, err, ErrRootMisconfigured)
}

func TestNewResolverCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "agent", "tmp")
	r, err := NewResolver(root)
	require.NoError(t, err)
	info, err := os.Stat(r.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveRejectsAbsolutePath(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.Resolve("/etc/passwd", nil)
	assert.ErrorIs(t, err, ErrPathAbsolute)
}

func TestResolveRejectsTraversal(t *testing.T) {
	r, _ := newTestResolver(t)
	for _, p := range []string{"../etc/passwd", "a/../../etc/passwd", ".."} {
		_, err := r.Resolve(p, nil)
		assert.ErrorIs(t, err, ErrPathTraversal, "path %q", p)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	r, root := newTestResolver(t)

	outside := t.TempDir()
	writeFile(t, outside, "secret.md", "outside")
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.md"), filepath.Join(root, "link.md")))

	_, err := r.Resolve("link.md", []string{".md"})
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestResolveRejectsDirectory(t *testing.T) {
	r, root := newTestResolver(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	_, err := r.Resolve("sub", nil)
	assert.ErrorIs(t, err, ErrNotRegularFile)
}

func TestResolveSuffixAllowlist(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, "notes.txt", "hello")

	_, err := r.Resolve("notes.txt", []string{".md", ".markdown"})
	assert.ErrorIs(t, err, ErrSuffixNotAllowed)

	path, err := r.Resolve("notes.txt", []string{".txt"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "notes.txt"))
}

func TestResolveSuffixCaseInsensitive(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, "brief.PDF", "%PDF")
	_, err := r.Resolve("brief.PDF", []string{".pdf"})
	assert.NoError(t, err)
}

func TestReadFileEnforcesSizeCap(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, "big.md", strings.Repeat("a", 100))

	_, _, err := r.ReadFile("big.md", []string{".md"}, 50)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, data, err := r.ReadFile("big.md", []string{".md"}, 200)
	require.NoError(t, err)
	assert.Len(t, data, 100)
}

func TestReadFileNestedPath(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, filepath.Join("case", "exhibits", "a.md"), "# A")

	path, data, err := r.ReadFile("case/exhibits/a.md", []string{".md"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "# A", string(data))
	assert.True(t, strings.HasPrefix(path, r.Root()))
}

func TestWriteSibling(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, "doc.pdf", "%PDF")

	resolved, err := r.Resolve("doc.pdf", []string{".pdf"})
	require.NoError(t, err)

	target, err := r.WriteSibling(resolved, ".md", []byte("# doc"), true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Root(), "doc.md"), target)

	_, err = r.WriteSibling(resolved, ".md", []byte("# doc"), false)
	assert.Error(t, err)
}

package fetch

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImport(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestListImports(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "b.ttl", "")
	writeImport(t, dir, "a.json", "[]")
	writeImport(t, dir, "nested/c.nt", "")
	writeImport(t, dir, "readme.md", "ignored")
	writeImport(t, dir, "Upper.TTL", "")

	files, err := ListImports(dir, "")
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		rel, _ := filepath.Rel(dir, f.Path)
		names[i] = filepath.ToSlash(rel)
	}
	assert.Equal(t, []string{"Upper.TTL", "a.json", "b.ttl", "nested/c.nt"}, names)

	assert.False(t, files[1].IsRDF(), "json is not serialized rdf")
	assert.True(t, files[2].IsRDF())
	assert.Equal(t, ".ttl", files[0].Ext, "extension is lowercased")
}

func TestListImportsPattern(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "keep.ttl", "")
	writeImport(t, dir, "skip.nt", "")

	files, err := ListImports(dir, "**/*.ttl")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, ".ttl", files[0].Ext)
}

func TestListImportsMissingDir(t *testing.T) {
	_, err := ListImports(filepath.Join(t.TempDir(), "nope"), "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestImportFileOpen(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "data.nq", "<http://ex/s> <http://ex/p> \"x\" <http://ex/g> .\n")

	files, err := ListImports(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 1)

	r, err := files[0].Open()
	require.NoError(t, err)
	defer r.Close()
	data, _ := io.ReadAll(r)
	assert.Contains(t, string(data), "http://ex/s")
}

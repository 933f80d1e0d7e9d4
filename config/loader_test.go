package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderSplitFiles(t *testing.T) {
	serverYAML := writeFile(t, "config.yaml", `
server:
  listen: ":9000"
  log_level: debug
context:
  vocab: "http://ex/vocab#"
`)
	librariesYAML := writeFile(t, "zotero.yaml", `
libraries:
  - name: test
    load_mode: json
    library_type: groups
    library_id: "12345"
`)

	cfg, err := NewLoader(nil).Load(serverYAML, librariesYAML)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "http://ex/vocab#", cfg.Context.Vocab)
	require.Len(t, cfg.Libraries, 1)
	assert.Equal(t, "test", cfg.Libraries[0].Name)
	// Unset fields keep their defaults.
	assert.Equal(t, "./import", cfg.Server.ImportDirectory)
}

func TestLoaderExpandsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_ZOTERO_KEY", "secret123")
	path := writeFile(t, "config.yaml", `
libraries:
  - name: test
    load_mode: json
    library_type: user
    library_id: "7"
    api_key: "$TEST_ZOTERO_KEY"
`)
	cfg, err := NewLoader(nil).Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "secret123", cfg.Libraries[0].APIKey)
}

func TestLoaderLiteralKeyStaysLiteral(t *testing.T) {
	path := writeFile(t, "config.yaml", `
libraries:
  - name: test
    load_mode: json
    library_type: user
    library_id: "7"
    api_key: "plainkey"
`)
	cfg, err := NewLoader(nil).Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "plainkey", cfg.Libraries[0].APIKey)
}

func TestLoaderRejectsInvalidConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", `
libraries:
  - name: test
    load_mode: json
    library_type: nonsense
    library_id: "7"
`)
	_, err := NewLoader(nil).Load(path, "")
	assert.ErrorContains(t, err, "library_type")
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	assert.Error(t, err)
}

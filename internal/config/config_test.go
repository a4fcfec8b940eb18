package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Default Configuration Tests
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults are applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)

	assert.Equal(t, "./data", cfg.Paths.DataDir)
	assert.Equal(t, "./index_output", cfg.Paths.IndexDir)
	assert.True(t, cfg.Chunking.Hierarchical)

	assert.Equal(t, "okapi", cfg.Lexical.Backend)
	assert.Equal(t, 1.5, cfg.Lexical.K1)
	assert.Equal(t, 0.75, cfg.Lexical.B)
	assert.Equal(t, 0.25, cfg.Lexical.Epsilon)
	assert.Equal(t, []string{"N", "V", "M"}, cfg.Lexical.KeepTags)

	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, 32, cfg.Embeddings.BatchSize)
	assert.Positive(t, cfg.Embeddings.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.Embeddings.Timeout)

	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 0.5, cfg.Search.LexicalWeight)
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestGetUserConfigPath_UsesXDG(t *testing.T) {
	xdg := isolate(t)

	assert.Equal(t, filepath.Join(xdg, "docsearch", "config.yaml"), GetUserConfigPath())
}

// =============================================================================
// Layering Tests
// =============================================================================

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFileOverridesOnlyGivenKeys(t *testing.T) {
	// Given: a project file that sets a few keys
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
paths:
  data_dir: ./docs
chunking:
  hierarchical: false
lexical:
  backend: sqlite
search:
  lexical_weight: 0.8
  timeout: 3s
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: those keys change and the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, "./docs", cfg.Paths.DataDir)
	assert.Equal(t, "./index_output", cfg.Paths.IndexDir)
	assert.False(t, cfg.Chunking.Hierarchical)
	assert.Equal(t, "sqlite", cfg.Lexical.Backend)
	assert.Equal(t, 1.5, cfg.Lexical.K1)
	assert.Equal(t, 0.8, cfg.Search.LexicalWeight)
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 3*time.Second, cfg.Search.Timeout)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: user and project files that disagree
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "docsearch", "config.yaml"), `
search:
  top_k: 7
  semantic_weight: 0.9
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
search:
  top_k: 3
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: the project wins where both are set
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, 0.9, cfg.Search.SemanticWeight)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "search:\n  top_k: 3\n")
	t.Setenv("DOCSEARCH_TOP_K", "9")
	t.Setenv("DOCSEARCH_LEXICAL_WEIGHT", "0.25")
	t.Setenv("DOCSEARCH_HIERARCHICAL", "false")
	t.Setenv("DOCSEARCH_EMBEDDINGS_PROVIDER", "ollama")
	t.Setenv("DOCSEARCH_INDEX_DIR", "/tmp/idx")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Search.TopK)
	assert.Equal(t, 0.25, cfg.Search.LexicalWeight)
	assert.False(t, cfg.Chunking.Hierarchical)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "/tmp/idx", cfg.Paths.IndexDir)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	isolate(t)
	t.Setenv("DOCSEARCH_SEMANTIC_WEIGHT", "heavy")

	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCSEARCH_SEMANTIC_WEIGHT")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "search:\n  topk: 3\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_EmptyFileIsFine(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.TopK)
}

func TestLoadFile_MissingFileFails(t *testing.T) {
	isolate(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFile_ValidationRuns(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "lexical:\n  backend: lucene\n")

	_, err := LoadFile(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lexical.backend")
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"weights need not sum to one", func(c *Config) { c.Search.LexicalWeight, c.Search.SemanticWeight = 2, 3 }, ""},
		{"zero weight allowed", func(c *Config) { c.Search.SemanticWeight = 0 }, ""},
		{"negative weight", func(c *Config) { c.Search.LexicalWeight = -0.1 }, "search.lexical_weight"},
		{"zero top_k", func(c *Config) { c.Search.TopK = 0 }, "search.top_k"},
		{"empty data dir", func(c *Config) { c.Paths.DataDir = " " }, "paths.data_dir"},
		{"empty index dir", func(c *Config) { c.Paths.IndexDir = "" }, "paths.index_dir"},
		{"bad backend", func(c *Config) { c.Lexical.Backend = "lucene" }, "lexical.backend"},
		{"b out of range", func(c *Config) { c.Lexical.B = 1.5 }, "lexical.b"},
		{"bad provider", func(c *Config) { c.Embeddings.Provider = "mlx" }, "embeddings.provider"},
		{"negative dims", func(c *Config) { c.Embeddings.Dimensions = -1 }, "embeddings.dimensions"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	// Given: a modified config written to disk
	isolate(t)
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := NewConfig()
	cfg.Search.Timeout = 1500 * time.Millisecond
	cfg.Lexical.KeepTags = []string{"N"}
	require.NoError(t, cfg.WriteYAML(path))

	// When: loading it back
	loaded, err := LoadFile(path)

	// Then: the values survive
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, loaded.Search.Timeout)
	assert.Equal(t, []string{"N"}, loaded.Lexical.KeepTags)
}

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// =============================================================================
// Helpers
// =============================================================================

const policyDoc = `# Refund Policy
Refunds are issued within 30 days.
## Damaged Goods
Damaged goods are replaced at no cost.
`

const faqDoc = "How do I reset my password?\nContact support for billing questions.\n"

// setupProject isolates HOME and the user config, then changes into a fresh
// project directory whose ./data holds policy.md and faq.txt.
func setupProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	t.Chdir(dir)

	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "policy.md"), []byte(policyDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(data, "faq.txt"), []byte(faqDoc), 0o644))
	return dir
}

// run executes the CLI with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

// =============================================================================
// Root and Version Tests
// =============================================================================

func TestRootCmd_ShowsHelp(t *testing.T) {
	out := mustRun(t, "--help")

	for _, sub := range []string{"index", "search", "chunks", "status", "serve", "version"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, out, "--debug")
	assert.Contains(t, out, "--config")
}

func TestVersionCmd(t *testing.T) {
	out := mustRun(t, "version")

	assert.Contains(t, out, "docsearch ")
	assert.Contains(t, out, "commit:")
}

func TestVersionCmd_JSON(t *testing.T) {
	out := mustRun(t, "version", "--json")

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	// Given: a project config with an unknown backend
	dir := setupProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsearch.yaml"), []byte("lexical:\n  backend: lucene\n"), 0o644))

	// When: running any command that needs configuration
	_, err := run(t, "status")

	// Then: the configuration error is reported
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

// =============================================================================
// Index Command Tests
// =============================================================================

func TestIndexCmd_BuildsArtifacts(t *testing.T) {
	// Given: a project with two documents
	dir := setupProject(t)

	// When: indexing with defaults
	out := mustRun(t, "index")

	// Then: the summary reports chunk and strategy counts
	assert.Contains(t, out, "Indexed 4 chunks from 2 documents")
	assert.Contains(t, out, "Chunking: 2 hierarchical, 2 simple")

	// And: the artifacts land in ./index_output
	m, err := index.LoadManifest(filepath.Join(dir, "index_output"))
	require.NoError(t, err)
	assert.Equal(t, 4, m.Chunks)
	assert.Equal(t, store.LexicalBackendOkapi, m.Backend)
	assert.FileExists(t, filepath.Join(dir, "index_output", store.MetadataFile))
}

func TestIndexCmd_FlagsOverrideConfig(t *testing.T) {
	// Given: documents in a non-default directory
	dir := setupProject(t)
	require.NoError(t, os.Rename(filepath.Join(dir, "data"), filepath.Join(dir, "docs")))

	// When: indexing with every override flag
	out := mustRun(t, "index", "--data", "docs", "--out", "idx", "--simple", "--backend", "sqlite")

	// Then: markdown is split line by line into the sqlite backend
	assert.Contains(t, out, "Chunking: 0 hierarchical, 6 simple")
	m, err := index.LoadManifest(filepath.Join(dir, "idx"))
	require.NoError(t, err)
	assert.False(t, m.Hierarchical)
	assert.Equal(t, store.LexicalBackendSQLite, m.Backend)
}

func TestIndexCmd_EmptyCorpus(t *testing.T) {
	dir := setupProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "policy.md")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "faq.txt"), []byte("\n\n"), 0o644))

	_, err := run(t, "index")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEmptyCorpus, errors.GetCode(err))
}

func TestIndexCmd_RejectsUnknownBackend(t *testing.T) {
	setupProject(t)

	_, err := run(t, "index", "--backend", "lucene")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown lexical backend")
}

// =============================================================================
// Search Command Tests
// =============================================================================

func TestSearchCmd_Text(t *testing.T) {
	setupProject(t)
	mustRun(t, "index")

	out := mustRun(t, "search", "damaged", "goods")

	assert.Contains(t, out, `Results for "damaged goods"`)
	assert.Contains(t, out, "1. policy.md (chunk 2/2)")
	assert.Contains(t, out, "Damaged goods are replaced at no cost.")
}

func TestSearchCmd_JSON(t *testing.T) {
	// Given: a built index
	setupProject(t)
	mustRun(t, "index")

	// When: searching with explicit limit and weights
	out := mustRun(t, "search", "damaged goods", "-n", "2",
		"--lexical-weight", "1", "--semantic-weight", "0", "--format", "json")

	// Then: the JSON carries the weights and at most two ranked results
	var resp searchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "damaged goods", resp.Query)
	assert.Equal(t, 1.0, resp.Weights.Lexical)
	assert.Equal(t, 0.0, resp.Weights.Semantic)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "policy.md::chunk::1", resp.Results[0].ChunkID)
	assert.GreaterOrEqual(t, resp.Results[0].Score, resp.Results[1].Score)
}

func TestSearchCmd_BleveBackend(t *testing.T) {
	// Given: an index built with the bleve backend
	dir := setupProject(t)
	mustRun(t, "index", "--backend", "bleve")
	assert.DirExists(t, filepath.Join(dir, "index_output", store.BleveDir))

	// When: searching lexically
	out := mustRun(t, "search", "damaged goods", "--lexical-weight", "1", "--semantic-weight", "0", "--format", "json")

	// Then: the bleve scores rank the matching chunk first
	var resp searchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "policy.md::chunk::1", resp.Results[0].ChunkID)
}

func TestSearchCmd_NoIndex(t *testing.T) {
	setupProject(t)

	_, err := run(t, "search", "refunds")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexNotFound, errors.GetCode(err))
}

func TestSearchCmd_InvalidArguments(t *testing.T) {
	setupProject(t)
	mustRun(t, "index")

	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"search", "refunds", "--format", "xml"}},
		{"zero limit", []string{"search", "refunds", "-n", "0"}},
		{"negative weight", []string{"search", "refunds", "--lexical-weight=-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)

			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
		})
	}
}

// =============================================================================
// Chunks Command Tests
// =============================================================================

func TestChunksCmd_Document(t *testing.T) {
	setupProject(t)
	mustRun(t, "index")

	out := mustRun(t, "chunks", "policy.md")

	assert.Contains(t, out, "policy.md::chunk::0 [1/2, hierarchical]")
	assert.Contains(t, out, "policy.md::chunk::1 [2/2, hierarchical]")
	assert.Less(t, bytes.Index([]byte(out), []byte("chunk::0")), bytes.Index([]byte(out), []byte("chunk::1")))
}

func TestChunksCmd_Around(t *testing.T) {
	setupProject(t)
	mustRun(t, "index")

	out := mustRun(t, "chunks", "--around", "faq.txt::chunk::1", "--format", "json")

	var chunks []store.Chunk
	require.NoError(t, json.Unmarshal([]byte(out), &chunks))
	require.Len(t, chunks, 2)
	assert.Equal(t, "faq.txt::chunk::0", chunks[0].ChunkID)
	assert.Equal(t, "faq.txt::chunk::1", chunks[1].ChunkID)
}

func TestChunksCmd_Errors(t *testing.T) {
	setupProject(t)
	mustRun(t, "index")

	_, err := run(t, "chunks")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	_, err = run(t, "chunks", "missing.md")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownDoc, errors.GetCode(err))
}

// =============================================================================
// Status Command Tests
// =============================================================================

func TestStatusCmd_UpToDate(t *testing.T) {
	setupProject(t)
	mustRun(t, "index")

	out := mustRun(t, "status")

	assert.Contains(t, out, "Index status")
	assert.Contains(t, out, "hierarchical 2, simple 2")
	assert.Contains(t, out, "Index is up to date")
}

func TestStatusCmd_StaleJSON(t *testing.T) {
	// Given: a built index whose documents then change
	dir := setupProject(t)
	mustRun(t, "index")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "new.txt"), []byte("Gift cards never expire.\n"), 0o644))

	// When: asking for JSON status
	out := mustRun(t, "status", "--format", "json")

	// Then: the report is stale
	var report index.StatusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Stale)
	assert.Equal(t, 4, report.Manifest.Chunks)
}

func TestStatusCmd_NoIndex(t *testing.T) {
	setupProject(t)

	_, err := run(t, "status")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexNotFound, errors.GetCode(err))
}

func TestStatusCmd_ExplicitConfigFile(t *testing.T) {
	// Given: an index built into a custom directory named by a config file
	dir := setupProject(t)
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("paths:\n  index_dir: ./custom_index\n"), 0o644))
	mustRun(t, "--config", cfgPath, "index")

	// When/Then: status with the same config finds it
	out := mustRun(t, "--config", cfgPath, "status")
	assert.Contains(t, out, "custom_index")
}

// =============================================================================
// Init Command Tests
// =============================================================================

func TestInitCmd_WritesLoadableTemplate(t *testing.T) {
	// Given: a project without a config file
	dir := setupProject(t)

	// When: running init
	out := mustRun(t, "init")

	// Then: the file is created and loads to the defaults
	assert.Contains(t, out, "Created")
	path := filepath.Join(dir, ".docsearch.yaml")
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig().Search, cfg.Search)
	assert.Equal(t, config.NewConfig().Lexical, cfg.Lexical)
	assert.Equal(t, config.NewConfig().Paths, cfg.Paths)
}

func TestInitCmd_RefusesOverwrite(t *testing.T) {
	dir := setupProject(t)
	path := filepath.Join(dir, ".docsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  top_k: 3\n"), 0o644))

	_, err := run(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	mustRun(t, "init", "--force")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lexical_weight: 0.5")
}

// Package config loads docsearch configuration.
//
// Values are applied in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/docsearch/config.yaml)
//  3. Project config (.docsearch.yaml in the working directory, or --config)
//  4. Environment variables (DOCSEARCH_*)
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the project configuration file name.
const ProjectConfigName = ".docsearch.yaml"

// Config is the complete docsearch configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Lexical    LexicalConfig    `yaml:"lexical" json:"lexical"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// PathsConfig locates the corpus and the index artifacts.
type PathsConfig struct {
	DataDir  string `yaml:"data_dir" json:"data_dir"`
	IndexDir string `yaml:"index_dir" json:"index_dir"`
}

// ChunkingConfig configures document splitting.
type ChunkingConfig struct {
	// Hierarchical enables heading-aware chunking for markdown files.
	// When false every file is split line by line.
	Hierarchical bool `yaml:"hierarchical" json:"hierarchical"`
}

// LexicalConfig configures the BM25 index.
type LexicalConfig struct {
	// Backend is "okapi" (in-memory, default), "sqlite" (FTS5) or "bleve".
	Backend  string   `yaml:"backend" json:"backend"`
	K1       float64  `yaml:"k1" json:"k1"`
	B        float64  `yaml:"b" json:"b"`
	Epsilon  float64  `yaml:"epsilon" json:"epsilon"`
	KeepTags []string `yaml:"keep_tags" json:"keep_tags"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static" (default, offline) or "ollama".
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	// Host is the Ollama API endpoint.
	Host       string `yaml:"host" json:"host"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	// Concurrency bounds parallel embedding batches during a build.
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	// CacheSize bounds the query embedding cache (negative disables it).
	CacheSize         int     `yaml:"cache_size" json:"cache_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// SearchConfig configures query-time behaviour.
type SearchConfig struct {
	TopK int `yaml:"top_k" json:"top_k"`

	// LexicalWeight and SemanticWeight scale the normalized scores. They
	// need not sum to 1.
	LexicalWeight  float64 `yaml:"lexical_weight" json:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// Timeout bounds query tokenization and embedding.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir:  "./data",
			IndexDir: "./index_output",
		},
		Chunking: ChunkingConfig{
			Hierarchical: true,
		},
		Lexical: LexicalConfig{
			Backend:  "okapi",
			K1:       1.5,
			B:        0.75,
			Epsilon:  0.25,
			KeepTags: []string{"N", "V", "M"},
		},
		Embeddings: EmbeddingsConfig{
			Provider:          "static",
			Model:             "nomic-embed-text",
			Host:              "http://localhost:11434",
			Dimensions:        0, // provider default
			BatchSize:         32,
			Concurrency:       min(runtime.NumCPU(), 4),
			Timeout:           60 * time.Second,
			CacheSize:         1000,
			RequestsPerSecond: 0,
		},
		Search: SearchConfig{
			TopK:           5,
			LexicalWeight:  0.5,
			SemanticWeight: 0.5,
			Timeout:        10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/docsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml")
}

// Load loads configuration for a project directory. The project file is
// dir/.docsearch.yaml, if present.
func Load(dir string) (*Config, error) {
	return load(filepath.Join(dir, ProjectConfigName), false)
}

// LoadFile loads configuration with an explicit project file, which must
// exist.
func LoadFile(path string) (*Config, error) {
	return load(path, true)
}

func load(projectPath string, required bool) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if required || fileExists(projectPath) {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML decodes a file over c. Keys absent from the file keep their
// current values; unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies DOCSEARCH_* environment variables.
func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"DOCSEARCH_DATA_DIR":            &c.Paths.DataDir,
		"DOCSEARCH_INDEX_DIR":           &c.Paths.IndexDir,
		"DOCSEARCH_LEXICAL_BACKEND":     &c.Lexical.Backend,
		"DOCSEARCH_EMBEDDINGS_PROVIDER": &c.Embeddings.Provider,
		"DOCSEARCH_EMBEDDINGS_MODEL":    &c.Embeddings.Model,
		"DOCSEARCH_OLLAMA_HOST":         &c.Embeddings.Host,
		"DOCSEARCH_LOG_LEVEL":           &c.Logging.Level,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"DOCSEARCH_LEXICAL_WEIGHT":  &c.Search.LexicalWeight,
		"DOCSEARCH_SEMANTIC_WEIGHT": &c.Search.SemanticWeight,
	}
	for name, dst := range floats {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"DOCSEARCH_TOP_K":                 &c.Search.TopK,
		"DOCSEARCH_EMBEDDINGS_DIMENSIONS": &c.Embeddings.Dimensions,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("DOCSEARCH_HIERARCHICAL"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid DOCSEARCH_HIERARCHICAL %q: %w", v, err)
		}
		c.Chunking.Hierarchical = b
	}
	return nil
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		return fmt.Errorf("paths.index_dir must not be empty")
	}

	switch strings.ToLower(c.Lexical.Backend) {
	case "okapi", "sqlite", "bleve":
	default:
		return fmt.Errorf("lexical.backend must be 'okapi', 'sqlite' or 'bleve', got %q", c.Lexical.Backend)
	}
	if c.Lexical.K1 < 0 {
		return fmt.Errorf("lexical.k1 must be non-negative, got %v", c.Lexical.K1)
	}
	if c.Lexical.B < 0 || c.Lexical.B > 1 {
		return fmt.Errorf("lexical.b must be between 0 and 1, got %v", c.Lexical.B)
	}
	if c.Lexical.Epsilon < 0 {
		return fmt.Errorf("lexical.epsilon must be non-negative, got %v", c.Lexical.Epsilon)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "", "static", "ollama":
	default:
		return fmt.Errorf("embeddings.provider must be 'static' or 'ollama', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize < 0 {
		return fmt.Errorf("embeddings.batch_size must be non-negative, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.Concurrency < 0 {
		return fmt.Errorf("embeddings.concurrency must be non-negative, got %d", c.Embeddings.Concurrency)
	}

	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	weights := []struct {
		name  string
		value float64
	}{{"lexical_weight", c.Search.LexicalWeight}, {"semantic_weight", c.Search.SemanticWeight}}
	for _, w := range weights {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) || w.value < 0 {
			return fmt.Errorf("search.%s must be a finite non-negative number, got %v", w.name, w.value)
		}
	}
	if c.Search.Timeout < 0 {
		return fmt.Errorf("search.timeout must be non-negative, got %s", c.Search.Timeout)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %q", c.Logging.Level)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

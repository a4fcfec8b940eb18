package cmd

import (
	"context"
	"strings"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// newEmbedder creates the embedder selected by the embeddings section.
func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	provider, err := embed.ParseProvider(cfg.Embeddings.Provider)
	if err != nil {
		return nil, err
	}
	return embed.NewEmbedder(ctx, embed.Config{
		Provider:          provider,
		Model:             cfg.Embeddings.Model,
		Host:              cfg.Embeddings.Host,
		Dimensions:        cfg.Embeddings.Dimensions,
		BatchSize:         cfg.Embeddings.BatchSize,
		Timeout:           cfg.Embeddings.Timeout,
		RequestsPerSecond: cfg.Embeddings.RequestsPerSecond,
		CacheSize:         cfg.Embeddings.CacheSize,
	})
}

func newTokenizer() store.Tokenizer {
	return store.NewRuleTokenizer(nil)
}

func buildConfig(cfg *config.Config) (index.BuildConfig, error) {
	backend, err := store.ParseLexicalBackend(cfg.Lexical.Backend)
	if err != nil {
		return index.BuildConfig{}, err
	}
	return index.BuildConfig{
		DataDir:      cfg.Paths.DataDir,
		IndexDir:     cfg.Paths.IndexDir,
		Hierarchical: cfg.Chunking.Hierarchical,
		Backend:      backend,
		BM25: store.BM25Config{
			K1:      cfg.Lexical.K1,
			B:       cfg.Lexical.B,
			Epsilon: cfg.Lexical.Epsilon,
		},
		KeepTags:    cfg.Lexical.KeepTags,
		BatchSize:   cfg.Embeddings.BatchSize,
		Concurrency: cfg.Embeddings.Concurrency,
	}, nil
}

// engineConfig leaves KeepTags empty so the loader uses the tags the index
// was built with.
func engineConfig(cfg *config.Config) search.EngineConfig {
	return search.EngineConfig{QueryTimeout: cfg.Search.Timeout}
}

func weights(cfg *config.Config) search.Weights {
	return search.Weights{
		Lexical:  cfg.Search.LexicalWeight,
		Semantic: cfg.Search.SemanticWeight,
	}
}

// openIndex loads the index in cfg.Paths.IndexDir. Closing the index closes
// its embedder. An unset static dimension follows the manifest.
func openIndex(ctx context.Context, cfg *config.Config) (*index.Index, error) {
	manifest, err := index.LoadManifest(cfg.Paths.IndexDir)
	if err != nil {
		return nil, err
	}

	embedCfg := *cfg
	if embedCfg.Embeddings.Dimensions == 0 {
		embedCfg.Embeddings.Dimensions = manifest.Dimensions
	}
	embedder, err := newEmbedder(ctx, &embedCfg)
	if err != nil {
		return nil, err
	}

	idx, err := index.Open(ctx, cfg.Paths.IndexDir, embedder, newTokenizer(), engineConfig(cfg))
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	return idx, nil
}

func validFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	}
	return false
}

package index

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Index is a loaded, searchable index.
type Index struct {
	*search.Engine
	Manifest *Manifest
}

// Open loads the artifacts in dir and assembles a search engine over them.
// The engine owns the lexical index and the embedder; Close releases both.
//
// cfg.KeepTags defaults to the tags the index was built with so queries are
// filtered like the indexed chunks.
func Open(ctx context.Context, dir string, embedder embed.Embedder, tokenizer store.Tokenizer, cfg search.EngineConfig) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	docs, err := store.LoadMetadata(dir)
	if err != nil {
		return nil, err
	}
	if docs.Len() != manifest.Chunks {
		return nil, errors.Misaligned(store.MetadataFile, manifest.Chunks, docs.Len())
	}

	lexical, err := store.OpenLexicalIndex(dir, manifest.Backend)
	if err != nil {
		return nil, artifactError(dir, store.LexicalPath(dir, manifest.Backend), err)
	}

	vectors, err := store.LoadFlatIndex(filepath.Join(dir, store.FlatFile))
	if err != nil {
		_ = lexical.Close()
		return nil, artifactError(dir, store.FlatFile, err)
	}

	if model := embedder.ModelName(); model != manifest.Model {
		slog.Warn("embedding_model_mismatch",
			slog.String("index_model", manifest.Model),
			slog.String("query_model", model),
			slog.String("index_dir", dir))
	}

	if len(cfg.KeepTags) == 0 {
		cfg.KeepTags = manifest.KeepTags
	}

	engine, err := search.NewEngine(docs, lexical, vectors, embedder, tokenizer, cfg)
	if err != nil {
		_ = lexical.Close()
		return nil, err
	}

	slog.Info("index_loaded",
		slog.String("index_dir", dir),
		slog.String("build_id", manifest.BuildID),
		slog.Int("chunks", docs.Len()),
		slog.Int("documents", docs.DocumentCount()),
		slog.String("lexical_backend", string(manifest.Backend)))

	return &Index{Engine: engine, Manifest: manifest}, nil
}

// artifactError maps a missing artifact to ERR_201 and anything else to ERR_205.
func artifactError(dir, name string, err error) error {
	if stderrors.Is(err, fs.ErrNotExist) {
		return errors.NoIndex(dir, err)
	}
	return errors.CorruptIndex(fmt.Sprintf("failed to load %s", filepath.Base(name)), err)
}

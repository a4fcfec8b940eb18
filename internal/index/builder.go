// Package index builds the persisted index artifacts from a data directory
// and loads them back into a search engine. The two pipelines share only the
// chunk record shape and the position ordering of metadata.json.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsearch/internal/chunk"
	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// BuildConfig configures an index build.
type BuildConfig struct {
	// DataDir holds the .md and .txt source documents.
	DataDir string

	// IndexDir receives the artifacts.
	IndexDir string

	// Hierarchical enables heading-aware chunking of markdown.
	Hierarchical bool

	// Backend selects the lexical index implementation.
	Backend store.LexicalBackend

	// BM25 configures the okapi backend.
	BM25 store.BM25Config

	// KeepTags are the token tag prefixes indexed lexically.
	KeepTags []string

	// BatchSize is the number of chunk texts per embedding call.
	BatchSize int

	// Concurrency bounds parallel tokenization and embedding calls.
	// 0 selects runtime.NumCPU().
	Concurrency int
}

// Stage names reported to ProgressFunc.
const (
	StageChunking  = "chunking"
	StageTokenize  = "tokenizing"
	StageEmbedding = "embedding"
	StageWriting   = "writing"
)

// ProgressFunc receives build progress. It may be called concurrently.
type ProgressFunc func(stage string, done, total int)

// BuildResult summarizes a completed build.
type BuildResult struct {
	Manifest *Manifest
	Duration time.Duration

	// EmptyDocuments lists documents that produced no chunks.
	EmptyDocuments []string
}

// Builder runs the offline pipeline: corpus, chunk records, lexical index,
// vector index and manifest.
type Builder struct {
	embedder  embed.Embedder
	tokenizer store.Tokenizer
	progress  ProgressFunc
}

// NewBuilder creates a builder around the embedding and tokenization
// collaborators. progress may be nil.
func NewBuilder(embedder embed.Embedder, tokenizer store.Tokenizer, progress ProgressFunc) *Builder {
	if progress == nil {
		progress = func(string, int, int) {}
	}
	return &Builder{
		embedder:  embedder,
		tokenizer: tokenizer,
		progress:  progress,
	}
}

// Build indexes cfg.DataDir into cfg.IndexDir while holding the index lock.
// Artifacts are written only after every chunk was tokenized and embedded, so
// a failed or cancelled build leaves the previous index in place.
func (b *Builder) Build(ctx context.Context, cfg BuildConfig) (*BuildResult, error) {
	start := time.Now()

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = embed.DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Backend == "" {
		cfg.Backend = store.LexicalBackendOkapi
	}

	lock := NewFileLock(cfg.IndexDir)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	// Stage 1: chunk the corpus
	b.progress(StageChunking, 0, 1)
	corpus, err := chunk.LoadCorpus(ctx, cfg.DataDir, chunk.Options{Hierarchical: cfg.Hierarchical})
	if err != nil {
		return nil, err
	}
	if len(corpus.Chunks) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyCorpus,
			fmt.Sprintf("no chunks found in %s", cfg.DataDir), nil).
			WithSuggestion("Add .md or .txt documents to the data directory")
	}
	docs, err := store.NewDocumentStore(corpus.Chunks)
	if err != nil {
		return nil, err
	}
	b.progress(StageChunking, 1, 1)

	// Stage 2: tokenize and embed in parallel, merged by position
	tokens, vectors, err := b.analyze(ctx, docs.Texts(), cfg)
	if err != nil {
		return nil, err
	}

	// Stage 3: write artifacts
	b.progress(StageWriting, 0, 1)
	manifest, err := b.write(ctx, cfg, corpus, docs, tokens, vectors)
	if err != nil {
		return nil, err
	}
	b.progress(StageWriting, 1, 1)

	var empty []string
	for _, d := range corpus.Documents {
		if d.Chunks == 0 {
			empty = append(empty, d.ID)
		}
	}

	duration := time.Since(start)
	slog.Info("index_build_complete",
		slog.String("build_id", manifest.BuildID),
		slog.String("data_dir", cfg.DataDir),
		slog.String("index_dir", cfg.IndexDir),
		slog.Int("documents", manifest.Documents),
		slog.Int("chunks", manifest.Chunks),
		slog.Int("hierarchical_chunks", manifest.ByStrategy[store.StrategyHierarchical]),
		slog.Int("simple_chunks", manifest.ByStrategy[store.StrategySimple]),
		slog.String("lexical_backend", string(manifest.Backend)),
		slog.String("embedding_model", manifest.Model),
		slog.Int64("duration_ms", duration.Milliseconds()))

	return &BuildResult{
		Manifest:       manifest,
		Duration:       duration,
		EmptyDocuments: empty,
	}, nil
}

// analyze tokenizes every text and embeds them in batches. Work is spread
// over an errgroup; results land at their chunk position, so the merge is
// deterministic regardless of completion order.
func (b *Builder) analyze(ctx context.Context, texts []string, cfg BuildConfig) ([][]string, [][]float32, error) {
	filter := store.NewTagFilter(cfg.KeepTags)
	tokens := make([][]string, len(texts))
	vectors := make([][]float32, len(texts))

	var tokenized, embedded atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, text := range texts {
		g.Go(func() error {
			toks, err := b.tokenizer.Tokenize(gctx, text)
			if err != nil {
				return errors.BackendUnavailable(fmt.Sprintf("tokenizer failed on chunk %d", i), err)
			}
			tokens[i] = filter.Filter(toks)
			b.progress(StageTokenize, int(tokenized.Add(1)), len(texts))
			return nil
		})
	}

	dims := b.embedder.Dimensions()
	for start := 0; start < len(texts); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(texts))
		g.Go(func() error {
			vecs, err := b.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return errors.New(errors.ErrCodeEmbeddingFailed,
					fmt.Sprintf("failed to embed chunks %d-%d", start, end), err)
			}
			if len(vecs) != end-start {
				return errors.New(errors.ErrCodeEmbeddingFailed,
					fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vecs), end-start), nil)
			}
			for j, v := range vecs {
				if len(v) != dims {
					return errors.New(errors.ErrCodeDimensionMismatch, "embedder returned a vector of the wrong size",
						store.ErrDimensionMismatch{Expected: dims, Got: len(v)})
				}
				vectors[start+j] = v
			}
			b.progress(StageEmbedding, int(embedded.Add(int64(end-start))), len(texts))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, err
	}

	return tokens, vectors, nil
}

// write persists metadata.json, the lexical index, vectors.flat and finally
// manifest.json. The manifest is written last so a loader never sees a
// manifest describing half-written artifacts.
func (b *Builder) write(
	ctx context.Context,
	cfg BuildConfig,
	corpus *chunk.Corpus,
	docs *store.DocumentStore,
	tokens [][]string,
	vectors [][]float32,
) (*Manifest, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0755); err != nil {
		return nil, writeError(cfg.IndexDir, err)
	}
	_ = os.Remove(filepath.Join(cfg.IndexDir, ManifestFile))

	if err := store.SaveMetadata(cfg.IndexDir, docs.Chunks()); err != nil {
		return nil, writeError(store.MetadataFile, err)
	}

	lexical, err := store.BuildLexicalIndex(ctx, cfg.IndexDir, cfg.Backend, tokens, cfg.BM25)
	if err != nil {
		return nil, writeError(store.LexicalPath(cfg.IndexDir, cfg.Backend), err)
	}
	_ = lexical.Close()
	removeOtherLexical(cfg.IndexDir, cfg.Backend)

	flat, err := store.NewFlatIndex(b.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := flat.Add(vectors); err != nil {
		return nil, err
	}
	if err := flat.Save(filepath.Join(cfg.IndexDir, store.FlatFile)); err != nil {
		return nil, writeError(store.FlatFile, err)
	}

	keepTags := cfg.KeepTags
	if len(keepTags) == 0 {
		keepTags = store.DefaultKeepTags
	}

	manifest := &Manifest{
		Version:      manifestVersion,
		BuildID:      uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
		DataDir:      cfg.DataDir,
		Hierarchical: cfg.Hierarchical,
		Backend:      cfg.Backend,
		BM25:         cfg.BM25,
		KeepTags:     keepTags,
		Model:        b.embedder.ModelName(),
		Dimensions:   b.embedder.Dimensions(),
		Chunks:       docs.Len(),
		Documents:    docs.DocumentCount(),
		ByStrategy:   docs.CountByStrategy(),
		Fingerprint:  Fingerprint(corpus.Documents),
	}
	if err := SaveManifest(cfg.IndexDir, manifest); err != nil {
		return nil, writeError(ManifestFile, err)
	}
	return manifest, nil
}

// removeOtherLexical deletes the artifacts of the backends not in use so a
// backend switch never leaves a stale lexical index behind.
func removeOtherLexical(dir string, backend store.LexicalBackend) {
	for _, other := range store.LexicalBackends {
		if other != backend {
			_ = os.RemoveAll(store.LexicalPath(dir, other))
		}
	}
}

func writeError(what string, err error) error {
	return errors.New(errors.ErrCodeIndexWrite, fmt.Sprintf("failed to write %s", what), err)
}

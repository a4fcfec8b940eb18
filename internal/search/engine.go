package search

import (
	"cmp"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Engine answers hybrid queries over one loaded corpus. All state is
// immutable after NewEngine, so Search is safe for concurrent use.
type Engine struct {
	docs      *store.DocumentStore
	lexical   store.LexicalIndex
	vectors   store.VectorIndex
	embedder  embed.Embedder
	tokenizer store.Tokenizer
	filter    store.TagFilter
	config    EngineConfig
}

// NewEngine validates that the document store and both indices cover the same
// chunk positions and that the embedder matches the vector index dimension.
func NewEngine(
	docs *store.DocumentStore,
	lexical store.LexicalIndex,
	vectors store.VectorIndex,
	embedder embed.Embedder,
	tokenizer store.Tokenizer,
	config EngineConfig,
) (*Engine, error) {
	if docs == nil || docs.Len() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyCorpus, "corpus holds no chunks", nil)
	}
	if lexical == nil || vectors == nil || embedder == nil || tokenizer == nil {
		return nil, errors.New(errors.ErrCodeInternal, "search engine requires lexical index, vector index, embedder and tokenizer", nil)
	}
	if n := lexical.Len(); n != docs.Len() {
		return nil, errors.Misaligned("lexical index", docs.Len(), n)
	}
	if n := vectors.Len(); n != docs.Len() {
		return nil, errors.Misaligned("vector index", docs.Len(), n)
	}
	if embedder.Dimensions() != vectors.Dimensions() {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			"embedder does not match the vector index",
			store.ErrDimensionMismatch{Expected: vectors.Dimensions(), Got: embedder.Dimensions()}).
			WithDetail("model", embedder.ModelName())
	}

	return &Engine{
		docs:      docs,
		lexical:   lexical,
		vectors:   vectors,
		embedder:  embedder,
		tokenizer: tokenizer,
		filter:    store.NewTagFilter(config.KeepTags),
		config:    config,
	}, nil
}

// Search ranks every chunk against query and returns at most opts.TopK
// results ordered by fused score, ties by corpus position.
//
// An empty or blank query returns an empty slice. A tokenizer or embedder
// failure, including the query timeout, fails only this query with
// ERR_501_BACKEND_UNAVAILABLE.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	start := time.Now()

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryCtx := ctx
	if e.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, e.config.QueryTimeout)
		defer cancel()
	}

	lexical, semantic, err := e.scoreAll(queryCtx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("search_failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return nil, err
	}

	lexNorm := MinMax(lexical)
	semNorm := MinMax(semantic)
	fused := Fuse(lexNorm, semNorm, opts.Weights)

	order := Rank(fused)
	k := min(opts.TopK, len(order))

	results := make([]Result, k)
	for i, pos := range order[:k] {
		c := e.docs.At(pos)
		results[i] = Result{
			ChunkID:       c.ChunkID,
			DocID:         c.DocID,
			Text:          c.Text,
			Score:         fused[pos],
			Relevance:     Classify(fused[pos]),
			Metadata:      c.Metadata,
			LexicalScore:  lexNorm[pos],
			SemanticScore: semNorm[pos],
			Position:      pos,
		}
	}

	slog.Debug("search_complete",
		slog.String("query", query),
		slog.Int("top_k", opts.TopK),
		slog.Float64("lexical_weight", opts.Weights.Lexical),
		slog.Float64("semantic_weight", opts.Weights.Semantic),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

// Fuse computes wl*lex[i] + ws*sem[i] for every position.
func Fuse(lex, sem []float64, w Weights) []float64 {
	fused := make([]float64, len(lex))
	for i := range lex {
		fused[i] = w.Lexical*lex[i] + w.Semantic*sem[i]
	}
	return fused
}

// Rank returns all positions ordered by score descending, ties by position
// ascending.
func Rank(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return order
}

// scoreAll runs the lexical and semantic legs concurrently and returns both
// full-corpus score vectors.
func (e *Engine) scoreAll(ctx context.Context, query string) (lexical, semantic []float64, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scores, err := e.lexicalScores(gctx, query)
		if err != nil {
			return fmt.Errorf("lexical: %w", err)
		}
		lexical = scores
		return nil
	})

	g.Go(func() error {
		scores, err := e.semanticScores(gctx, query)
		if err != nil {
			return fmt.Errorf("semantic: %w", err)
		}
		semantic = scores
		return nil
	})

	if err := g.Wait(); err != nil {
		switch errors.GetCode(err) {
		case errors.ErrCodeIndexMisaligned, errors.ErrCodeDimensionMismatch:
			return nil, nil, err
		}
		return nil, nil, errors.BackendUnavailable("retrieval backend unavailable", err)
	}
	return lexical, semantic, nil
}

// lexicalScores tokenizes and filters the query and scores it against every chunk.
func (e *Engine) lexicalScores(ctx context.Context, query string) ([]float64, error) {
	tokens, err := callWithContext(ctx, func() ([]store.Token, error) {
		return e.tokenizer.Tokenize(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	n := e.docs.Len()
	terms := e.filter.Filter(tokens)
	if len(terms) == 0 {
		return make([]float64, n), nil
	}

	scores, err := e.lexical.Score(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	if len(scores) != n {
		return nil, errors.Misaligned("lexical scores", n, len(scores))
	}
	return scores, nil
}

// semanticScores embeds the query and scatters an exhaustive vector search
// into a full-corpus score vector.
func (e *Engine) semanticScores(ctx context.Context, query string) ([]float64, error) {
	vec, err := callWithContext(ctx, func() ([]float32, error) {
		return e.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	n := e.docs.Len()
	scores, positions, err := e.vectors.Search(vec, n)
	if err != nil {
		var dm store.ErrDimensionMismatch
		if stderrors.As(err, &dm) {
			return nil, errors.New(errors.ErrCodeDimensionMismatch, "query embedding does not match the vector index", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}

	full := make([]float64, n)
	for i, pos := range positions {
		full[pos] = float64(scores[i])
	}
	return full, nil
}

// callWithContext runs fn in its own goroutine and returns as soon as either
// fn finishes or ctx is done. A collaborator that ignores ctx is abandoned.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ChunksOf returns the chunks of docID ordered by index. Unknown documents
// yield ERR_402_UNKNOWN_DOCUMENT.
func (e *Engine) ChunksOf(docID string) ([]store.Chunk, error) {
	chunks := e.docs.ChunksOf(docID)
	if chunks == nil {
		return nil, errors.New(errors.ErrCodeUnknownDoc, fmt.Sprintf("unknown document %q", docID), nil).
			WithDetail("doc_id", docID)
	}
	return chunks, nil
}

// Around returns the chunk with chunkID and up to radius neighbours on each
// side, following the prev/next links.
func (e *Engine) Around(chunkID string, radius int) ([]store.Chunk, error) {
	center, ok := e.docs.ByID(chunkID)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownDoc, fmt.Sprintf("unknown chunk %q", chunkID), nil).
			WithDetail("chunk_id", chunkID)
	}
	radius = max(radius, 0)

	var before []store.Chunk
	cur := center
	for i := 0; i < radius && cur.Metadata.PrevChunkID != nil; i++ {
		cur, _ = e.docs.ByID(*cur.Metadata.PrevChunkID)
		before = append(before, cur)
	}
	slices.Reverse(before)

	out := append(before, center)
	cur = center
	for i := 0; i < radius && cur.Metadata.NextChunkID != nil; i++ {
		cur, _ = e.docs.ByID(*cur.Metadata.NextChunkID)
		out = append(out, cur)
	}
	return out, nil
}

// ChunkCount returns the number of chunks in the corpus.
func (e *Engine) ChunkCount() int {
	return e.docs.Len()
}

// DocumentCount returns the number of documents in the corpus.
func (e *Engine) DocumentCount() int {
	return e.docs.DocumentCount()
}

// DocIDs returns the document ids in lexical order.
func (e *Engine) DocIDs() []string {
	return e.docs.DocIDs()
}

// Stats returns corpus statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		Chunks:     e.docs.Len(),
		Documents:  e.docs.DocumentCount(),
		Dimensions: e.vectors.Dimensions(),
		Model:      e.embedder.ModelName(),
		ByStrategy: e.docs.CountByStrategy(),
	}
}

// Close releases the lexical index and the embedder.
func (e *Engine) Close() error {
	return stderrors.Join(e.lexical.Close(), e.embedder.Close())
}

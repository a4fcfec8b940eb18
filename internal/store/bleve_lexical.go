package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
)

const (
	// BleveDir is the artifact name of a persisted BleveLexicalIndex.
	BleveDir = "lexical.bleve"

	// TokenStreamTokenizerName splits pre-filtered token text on single spaces.
	TokenStreamTokenizerName = "docsearch_token_stream"

	// TokenStreamAnalyzerName is the analyzer applied to the content field.
	TokenStreamAnalyzerName = "docsearch_token_stream"

	bleveContentField = "content"
	bleveBatchSize    = 1000
)

var bleveRowsKey = []byte("docsearch_rows")

func init() {
	_ = registry.RegisterTokenizer(TokenStreamTokenizerName, tokenStreamTokenizerConstructor)
}

// BleveLexicalIndex implements LexicalIndex on a Bleve index with BM25 scoring.
// Document "i" holds the space-joined tokens of corpus position i. The
// analyzer only splits on spaces, so Bleve never re-tokenizes the stream
// the TagFilter produced.
type BleveLexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	rows   int
	closed bool
}

// Verify interface implementation at compile time
var _ LexicalIndex = (*BleveLexicalIndex)(nil)

type bleveDocument struct {
	Content string `json:"content"`
}

// createBleveMapping maps the content field to the token stream analyzer and
// selects BM25 scoring.
func createBleveMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TokenStreamAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TokenStreamTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add token stream analyzer: %w", err)
	}

	content := bleve.NewTextFieldMapping()
	content.Analyzer = TokenStreamAnalyzerName
	content.Store = false
	content.IncludeTermVectors = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(bleveContentField, content)

	indexMapping.DefaultMapping = doc
	indexMapping.DefaultAnalyzer = TokenStreamAnalyzerName
	indexMapping.ScoringModel = index.BM25Scoring

	return indexMapping, nil
}

// BuildBleveLexicalIndex writes a fresh Bleve index at path from one token list
// per chunk and returns it opened for querying. Any existing index is replaced.
func BuildBleveLexicalIndex(ctx context.Context, path string, corpus [][]string) (*BleveLexicalIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	indexMapping, err := createBleveMapping()
	if err != nil {
		return nil, err
	}

	tmpPath := path + ".tmp"
	_ = os.RemoveAll(tmpPath)

	idx, err := bleve.New(tmpPath, indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	if err := indexBleveCorpus(ctx, idx, corpus); err != nil {
		_ = idx.Close()
		_ = os.RemoveAll(tmpPath)
		return nil, err
	}
	if err := idx.Close(); err != nil {
		_ = os.RemoveAll(tmpPath)
		return nil, fmt.Errorf("failed to close bleve index: %w", err)
	}

	if err := os.RemoveAll(path); err != nil {
		_ = os.RemoveAll(tmpPath)
		return nil, fmt.Errorf("failed to remove old %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.RemoveAll(tmpPath)
		return nil, fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}

	return OpenBleveLexicalIndex(path)
}

func indexBleveCorpus(ctx context.Context, idx bleve.Index, corpus [][]string) error {
	batch := idx.NewBatch()
	for pos, tokens := range corpus {
		if err := batch.Index(strconv.Itoa(pos), bleveDocument{Content: joinTokens(tokens)}); err != nil {
			return fmt.Errorf("failed to index chunk %d: %w", pos, err)
		}
		if batch.Size() >= bleveBatchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := idx.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute batch: %w", err)
		}
	}

	return idx.SetInternal(bleveRowsKey, []byte(strconv.Itoa(len(corpus))))
}

// OpenBleveLexicalIndex opens an index written by BuildBleveLexicalIndex.
func OpenBleveLexicalIndex(path string) (*BleveLexicalIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if err := validateBleveIntegrity(path); err != nil {
		slog.Warn("bleve_lexical_index_corrupted",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	raw, err := idx.GetInternal(bleveRowsKey)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to read row count: %w", err)
	}
	rows, err := strconv.Atoi(string(raw))
	if err != nil || rows < 0 {
		_ = idx.Close()
		return nil, fmt.Errorf("invalid row count %q in bleve index", raw)
	}

	return &BleveLexicalIndex{index: idx, path: path, rows: rows}, nil
}

// validateBleveIntegrity checks that path holds a readable index_meta.json.
func validateBleveIntegrity(path string) error {
	data, err := os.ReadFile(filepath.Join(path, "index_meta.json"))
	if err != nil {
		return fmt.Errorf("index_meta.json unreadable: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// Score runs a disjunction of term queries over the distinct tokens, asking
// Bleve for every chunk. Chunks without a match score 0.
func (b *BleveLexicalIndex) Score(ctx context.Context, tokens []string) ([]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	scores := make([]float64, b.rows)

	terms := distinctTokens(tokens)
	if len(terms) == 0 || b.rows == 0 {
		return scores, nil
	}

	disjuncts := make([]query.Query, 0, len(terms))
	for _, term := range terms {
		tq := bleve.NewTermQuery(term)
		tq.SetField(bleveContentField)
		disjuncts = append(disjuncts, tq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(disjuncts...), b.rows, 0, false)
	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical query failed: %w", err)
	}

	for _, hit := range result.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= b.rows {
			continue
		}
		scores[pos] = hit.Score
	}
	return scores, nil
}

// Len returns the number of indexed chunks.
func (b *BleveLexicalIndex) Len() int {
	return b.rows
}

// Close closes the index.
func (b *BleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func joinTokens(tokens []string) string {
	size := 0
	for _, t := range tokens {
		size += len(t) + 1
	}
	buf := make([]byte, 0, size)
	for i, t := range tokens {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, t...)
	}
	return string(buf)
}

func distinctTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// tokenStreamTokenizerConstructor creates the space splitting tokenizer for Bleve.
func tokenStreamTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &tokenStreamTokenizer{}, nil
}

// tokenStreamTokenizer implements analysis.Tokenizer over text that is
// already tokenized, lowercased and filtered.
type tokenStreamTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *tokenStreamTokenizer) Tokenize(input []byte) analysis.TokenStream {
	result := make(analysis.TokenStream, 0)
	pos := 1
	start := -1

	emit := func(end int) {
		result = append(result, &analysis.Token{
			Term:     append([]byte(nil), input[start:end]...),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		start = -1
	}

	for i, c := range input {
		if c == ' ' {
			if start >= 0 {
				emit(i)
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		emit(len(input))
	}
	return result
}

// Package store holds the persisted retrieval structures: the document store of
// chunk records, the lexical index and the exact vector index. All three share
// one chunk-position ordering owned by the DocumentStore.
package store

import (
	"context"
	"fmt"
)

// Strategy identifies the segmentation algorithm that produced a chunk.
type Strategy string

const (
	// StrategyHierarchical keeps markdown heading lineage in every chunk.
	StrategyHierarchical Strategy = "hierarchical"
	// StrategySimple emits one chunk per non-blank line.
	StrategySimple Strategy = "simple"
)

// Chunk is the atomic retrieval unit. Its JSON shape is the metadata.json record.
type Chunk struct {
	ChunkID  string        `json:"chunk_id"`
	DocID    string        `json:"doc_id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata carries position and navigation data for a chunk.
type ChunkMetadata struct {
	Source           string   `json:"source"`
	Index            int      `json:"index"`
	TotalChunks      int      `json:"total_chunks"`
	PrevChunkID      *string  `json:"prev_chunk_id"`
	NextChunkID      *string  `json:"next_chunk_id"`
	ChunkingStrategy Strategy `json:"chunking_strategy"`
}

// Clone returns a copy of c whose link pointers do not alias c's.
func (c Chunk) Clone() Chunk {
	c.Metadata.PrevChunkID = cloneString(c.Metadata.PrevChunkID)
	c.Metadata.NextChunkID = cloneString(c.Metadata.NextChunkID)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ChunkID derives the stable identifier of the chunk at index within docID.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s::chunk::%d", docID, index)
}

// LexicalIndex scores a token list against every chunk of the corpus.
// Score returns exactly Len() values in document store order.
type LexicalIndex interface {
	Score(ctx context.Context, tokens []string) ([]float64, error)
	Len() int
	Close() error
}

// VectorIndex is an exact inner-product index over unit vectors.
// Search returns at most k (score, position) pairs, best first.
type VectorIndex interface {
	Search(query []float32, k int) (scores []float32, positions []int, err error)
	Len() int
	Dimensions() int
}

// BM25Config configures Okapi BM25 scoring.
type BM25Config struct {
	// K1 controls term frequency saturation.
	K1 float64 `json:"k1" yaml:"k1"`

	// B controls document length normalization (0 = none, 1 = full).
	B float64 `json:"b" yaml:"b"`

	// Epsilon is the floor, as a fraction of the mean idf, applied to
	// terms that occur in more than half of the chunks.
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
}

// DefaultBM25Config returns the classic Okapi parameters.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:      1.5,
		B:       0.75,
		Epsilon: 0.25,
	}
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'docsearch index' again)", e.Expected, e.Got)
}

// Package search provides hybrid search combining lexical (BM25) and semantic
// (embedding) scores. Both full-corpus score vectors are min-max normalized
// and fused as a weighted sum.
package search

import (
	"fmt"
	"math"
	"time"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Weights configures the relative importance of lexical vs semantic scores.
// Weights need not sum to 1.
type Weights struct {
	Lexical  float64 `json:"lexical" yaml:"lexical"`
	Semantic float64 `json:"semantic" yaml:"semantic"`
}

// Validate checks that both weights are finite and non-negative.
func (w Weights) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{{"lexical", w.Lexical}, {"semantic", w.Semantic}}

	for _, c := range checks {
		if v := c.value; math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errors.ValidationError(fmt.Sprintf("%s weight must be a finite non-negative number, got %v", c.name, v), nil).
				WithDetail("weight", c.name)
		}
	}
	return nil
}

// SearchOptions configures a search query. There are no defaults: callers
// supply TopK and both weights.
type SearchOptions struct {
	// TopK is the maximum number of results to return. Must be positive.
	TopK int

	// Weights are the fusion weights.
	Weights Weights
}

// Validate checks TopK and Weights.
func (o SearchOptions) Validate() error {
	if o.TopK <= 0 {
		return errors.ValidationError(fmt.Sprintf("top_k must be positive, got %d", o.TopK), nil)
	}
	return o.Weights.Validate()
}

// Relevance is the coarse bucket of a fused score.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Relevance bucket lower bounds (exclusive).
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// Result is one ranked search hit. It is produced fresh per query.
type Result struct {
	ChunkID   string              `json:"chunk_id"`
	DocID     string              `json:"doc_id"`
	Text      string              `json:"text"`
	Score     float64             `json:"score"`
	Relevance Relevance           `json:"relevance"`
	Metadata  store.ChunkMetadata `json:"metadata"`

	// LexicalScore and SemanticScore are the normalized inputs to Score.
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`

	// Position is the corpus position of the chunk.
	Position int `json:"-"`
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	// QueryTimeout bounds the tokenizer and embedder calls of one query.
	// Zero disables the bound.
	QueryTimeout time.Duration

	// KeepTags are the token tag prefixes used for lexical scoring. Empty
	// selects store.DefaultKeepTags.
	KeepTags []string
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		QueryTimeout: 10 * time.Second,
		KeepTags:     store.DefaultKeepTags,
	}
}

// Stats describes the loaded corpus.
type Stats struct {
	Chunks     int                    `json:"chunks"`
	Documents  int                    `json:"documents"`
	Dimensions int                    `json:"dimensions"`
	Model      string                 `json:"model"`
	ByStrategy map[store.Strategy]int `json:"by_strategy"`
}

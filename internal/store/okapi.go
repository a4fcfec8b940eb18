package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
)

// OkapiFile is the artifact name of a persisted OkapiIndex.
const OkapiFile = "lexical.bm25.zst"

const okapiFormatVersion = 1

type posting struct {
	pos int
	tf  int
}

// OkapiIndex is an in-memory Okapi BM25 index over pre-tokenized chunks.
// Row i corresponds to corpus position i. It is immutable after construction.
type OkapiIndex struct {
	config    BM25Config
	corpus    [][]string
	postings  map[string][]posting
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// Verify interface implementation at compile time
var _ LexicalIndex = (*OkapiIndex)(nil)

// NewOkapiIndex builds the index from one token list per chunk.
//
// idf(t) = ln(N - n(t) + 0.5) - ln(n(t) + 0.5). Terms present in more than half
// of the chunks get a negative idf, which is replaced by Epsilon * mean idf.
func NewOkapiIndex(corpus [][]string, cfg BM25Config) *OkapiIndex {
	idx := &OkapiIndex{
		config:   cfg,
		corpus:   corpus,
		postings: make(map[string][]posting),
		docLens:  make([]int, len(corpus)),
		idf:      make(map[string]float64),
	}

	var total int
	for pos, tokens := range corpus {
		idx.docLens[pos] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for term, count := range tf {
			idx.postings[term] = append(idx.postings[term], posting{pos: pos, tf: count})
		}
	}
	if len(corpus) > 0 {
		idx.avgDocLen = float64(total) / float64(len(corpus))
	}

	n := float64(len(corpus))
	var idfSum float64
	var negative []string
	for term, list := range idx.postings {
		df := float64(len(list))
		v := math.Log(n-df+0.5) - math.Log(df+0.5)
		idx.idf[term] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	if len(idx.idf) > 0 {
		eps := cfg.Epsilon * idfSum / float64(len(idx.idf))
		for _, term := range negative {
			idx.idf[term] = eps
		}
	}

	return idx
}

// Score returns the BM25 score of tokens against every chunk.
// Repeated query tokens contribute repeatedly; unknown tokens contribute nothing.
func (idx *OkapiIndex) Score(ctx context.Context, tokens []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make([]float64, len(idx.docLens))
	if idx.avgDocLen == 0 {
		return scores, nil
	}

	k1, b := idx.config.K1, idx.config.B
	for _, term := range tokens {
		list, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := idx.idf[term]
		for _, p := range list {
			tf := float64(p.tf)
			norm := 1 - b + b*float64(idx.docLens[p.pos])/idx.avgDocLen
			scores[p.pos] += idf * (tf * (k1 + 1)) / (tf + k1*norm)
		}
	}

	return scores, nil
}

// Len returns the number of indexed chunks.
func (idx *OkapiIndex) Len() int {
	return len(idx.docLens)
}

// Close implements LexicalIndex. The in-memory index holds no resources.
func (idx *OkapiIndex) Close() error {
	return nil
}

// okapiSnapshot is the persisted form: parameters plus the tokenized corpus.
// Statistics are recomputed on load.
type okapiSnapshot struct {
	Version int
	Config  BM25Config
	Corpus  [][]string
}

// Save writes the index to path as a zstd-compressed gob snapshot.
func (idx *OkapiIndex) Save(path string) error {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	snap := okapiSnapshot{Version: okapiFormatVersion, Config: idx.config, Corpus: idx.corpus}
	if err := gob.NewEncoder(enc).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to encode lexical index: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush lexical index: %w", err)
	}

	return writeFileAtomic(path, buf.Bytes())
}

// LoadOkapiIndex reads an index written by Save.
func LoadOkapiIndex(path string) (*OkapiIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	var snap okapiSnapshot
	if err := gob.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode lexical index: %w", err)
	}
	if snap.Version != okapiFormatVersion {
		return nil, fmt.Errorf("unsupported lexical index version %d", snap.Version)
	}

	return NewOkapiIndex(snap.Corpus, snap.Config), nil
}

package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillerCorpus() [][]string {
	return [][]string{
		{"x", "y", "y", "z"},
		{"x", "y", "z", "w"},
		{"a", "b", "c", "d"},
		{"e", "f", "g", "h"},
		{"i", "j", "k", "l"},
	}
}

func TestOkapiIndex_ScoresOnePerChunk(t *testing.T) {
	// Given: an index over five chunks
	idx := NewOkapiIndex(fillerCorpus(), DefaultBM25Config())

	// When: scoring a token present in two chunks
	scores, err := idx.Score(context.Background(), []string{"y"})

	// Then: one score per chunk, zero where the token is absent
	require.NoError(t, err)
	require.Len(t, scores, 5)
	assert.Equal(t, 5, idx.Len())
	assert.Greater(t, scores[0], 0.0)
	assert.Greater(t, scores[1], 0.0)
	assert.Zero(t, scores[2])
	assert.Zero(t, scores[3])
	assert.Zero(t, scores[4])
}

func TestOkapiIndex_MonotonicInTermFrequency(t *testing.T) {
	// Given: chunks of equal length with tf(y)=2 and tf(y)=1
	idx := NewOkapiIndex(fillerCorpus(), DefaultBM25Config())

	scores, err := idx.Score(context.Background(), []string{"y"})

	// Then: the higher term frequency wins
	require.NoError(t, err)
	assert.Greater(t, scores[0], scores[1])
}

func TestOkapiIndex_PenalizesLongChunks(t *testing.T) {
	// Given: two chunks containing the term once, one much longer
	corpus := [][]string{
		{"raft", "vote"},
		{"raft", "log", "entry", "commit", "index", "term", "leader"},
		{"a", "b"},
		{"c", "d"},
		{"e", "f"},
	}
	idx := NewOkapiIndex(corpus, DefaultBM25Config())

	scores, err := idx.Score(context.Background(), []string{"raft"})

	// Then: the shorter chunk scores higher
	require.NoError(t, err)
	assert.Greater(t, scores[0], scores[1])
}

func TestOkapiIndex_MatchesOkapiFormula(t *testing.T) {
	// Given: a small corpus with a hand-computable score
	corpus := [][]string{{"go"}, {"rust", "zig"}, {"c"}}
	cfg := DefaultBM25Config()
	idx := NewOkapiIndex(corpus, cfg)

	// When: scoring "go" (df=1, N=3, tf=1, dl=1, avgdl=4/3)
	scores, err := idx.Score(context.Background(), []string{"go"})
	require.NoError(t, err)

	// Then: the score follows idf * tf(k1+1) / (tf + k1(1-b+b*dl/avgdl))
	idf := math.Log(3-1+0.5) - math.Log(1+0.5)
	norm := 1 - cfg.B + cfg.B*1/(4.0/3.0)
	want := idf * (1 * (cfg.K1 + 1)) / (1 + cfg.K1*norm)
	assert.InDelta(t, want, scores[0], 1e-12)
}

func TestOkapiIndex_CommonTermsGetEpsilonIdf(t *testing.T) {
	// Given: a term present in every chunk (raw idf negative)
	corpus := [][]string{{"the", "cat"}, {"the", "dog"}, {"the", "cow"}}
	idx := NewOkapiIndex(corpus, DefaultBM25Config())

	scores, err := idx.Score(context.Background(), []string{"the"})

	// Then: scores are finite and identical across equal-length chunks
	require.NoError(t, err)
	for _, s := range scores {
		assert.False(t, math.IsNaN(s) || math.IsInf(s, 0))
	}
	assert.Equal(t, scores[0], scores[1])
	assert.Equal(t, scores[1], scores[2])
}

func TestOkapiIndex_EmptyAndUnknownQueries(t *testing.T) {
	idx := NewOkapiIndex(fillerCorpus(), DefaultBM25Config())

	for _, tokens := range [][]string{nil, {}, {"nothing"}} {
		scores, err := idx.Score(context.Background(), tokens)
		require.NoError(t, err)
		assert.Equal(t, make([]float64, 5), scores)
	}
}

func TestOkapiIndex_CancelledContext(t *testing.T) {
	idx := NewOkapiIndex(fillerCorpus(), DefaultBM25Config())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Score(ctx, []string{"y"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestOkapiIndex_SaveLoadRoundTrip(t *testing.T) {
	// Given: a saved index
	path := filepath.Join(t.TempDir(), OkapiFile)
	idx := NewOkapiIndex(fillerCorpus(), DefaultBM25Config())
	require.NoError(t, idx.Save(path))

	// When: loading it
	loaded, err := LoadOkapiIndex(path)
	require.NoError(t, err)

	// Then: scores are identical
	want, err := idx.Score(context.Background(), []string{"x", "y", "h"})
	require.NoError(t, err)
	got, err := loaded.Score(context.Background(), []string{"x", "y", "h"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, idx.Len(), loaded.Len())
}

func TestLoadOkapiIndex_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), OkapiFile)
	require.NoError(t, os.WriteFile(path, []byte("not zstd"), 0644))

	_, err := LoadOkapiIndex(path)

	assert.Error(t, err)
}

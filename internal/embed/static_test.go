package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ============================================================================
// Basic Embedding
// ============================================================================

func TestStaticEmbedder_Embed_ReturnsUnitVectorOfConfiguredSize(t *testing.T) {
	// Given: static embedders with default and custom dimensions
	def := NewStaticEmbedder(0)
	custom := NewStaticEmbedder(64)

	// When: embedding text
	a, err := def.Embed(context.Background(), "refund policy for damaged items")
	require.NoError(t, err)
	b, err := custom.Embed(context.Background(), "refund policy for damaged items")
	require.NoError(t, err)

	// Then: sizes follow the configuration and vectors are normalized
	assert.Len(t, a, StaticDimensions)
	assert.Len(t, b, 64)
	assert.InDelta(t, 1.0, vectorMagnitude(a), 0.001)
	assert.InDelta(t, 1.0, vectorMagnitude(b), 0.001)
	assert.Equal(t, "static-hash-64", custom.ModelName())
}

func TestStaticEmbedder_Embed_IsDeterministicAcrossInstances(t *testing.T) {
	text := "# 환불 정책\n상품 수령 후 7일 이내 환불 가능"

	emb1, err := NewStaticEmbedder(0).Embed(context.Background(), text)
	require.NoError(t, err)
	emb2, err := NewStaticEmbedder(0).Embed(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, emb1, emb2)
}

func TestStaticEmbedder_Embed_BlankInputIsZeroVector(t *testing.T) {
	embedder := NewStaticEmbedder(0)

	for _, text := range []string{"", "   \t\n  "} {
		embedding, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, embedding, StaticDimensions)
		for _, v := range embedding {
			assert.Equal(t, float32(0), v)
		}
	}
}

// ============================================================================
// Similarity
// ============================================================================

func TestStaticEmbedder_OverlappingTextIsMoreSimilar(t *testing.T) {
	// Given: two refund sentences and an unrelated one
	embedder := NewStaticEmbedder(0)
	ctx := context.Background()

	refund1, _ := embedder.Embed(ctx, "refund within seven days of delivery")
	refund2, _ := embedder.Embed(ctx, "refunds are processed within seven days")
	shipping, _ := embedder.Embed(ctx, "express shipping costs extra on weekends")

	// Then: the overlapping pair scores higher
	assert.Greater(t, cosineSimilarity(refund1, refund2), cosineSimilarity(refund1, shipping))
}

func TestStaticEmbedder_HangulTokensContribute(t *testing.T) {
	// Given: texts that differ only in Hangul words
	embedder := NewStaticEmbedder(0)
	ctx := context.Background()

	a, _ := embedder.Embed(ctx, "환불 규정")
	b, _ := embedder.Embed(ctx, "배송 안내")

	// Then: the vectors differ
	assert.NotEqual(t, a, b)
}

func TestStaticEmbedder_CamelCaseMatchesSpacedWords(t *testing.T) {
	embedder := NewStaticEmbedder(0)

	camel, _ := embedder.Embed(context.Background(), "getUserById")
	spaced, _ := embedder.Embed(context.Background(), "get user by id")

	assert.Greater(t, cosineSimilarity(camel, spaced), 0.3)
}

// ============================================================================
// Batch and Lifecycle
// ============================================================================

func TestStaticEmbedder_EmbedBatch_MatchesEmbed(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	texts := []string{"alpha", "", "beta gamma"}

	batch, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestStaticEmbedder_ClosedAndCancelled(t *testing.T) {
	embedder := NewStaticEmbedder(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := embedder.Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, embedder.Close())
	_, err = embedder.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestExtractNgrams_UsesRunes(t *testing.T) {
	assert.Equal(t, []string{"환불정", "불정책"}, extractNgrams([]rune("환불정책"), 3))
	assert.Empty(t, extractNgrams([]rune("ab"), 3))
}

// Package embed provides the embedding collaborators used to build and query
// the vector index.
package embed

import (
	"context"
	"math"
	"time"
)

// Embedder turns text into dense vectors. Implementations must be safe for
// concurrent use.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier recorded in the manifest.
	ModelName() string

	// Close releases resources.
	Close() error
}

// Provider selects an Embedder implementation.
type Provider string

const (
	// ProviderStatic uses hash-based embeddings. No network, no model download.
	ProviderStatic Provider = "static"

	// ProviderOllama uses the Ollama HTTP API.
	ProviderOllama Provider = "ollama"
)

// Default configuration values.
const (
	// StaticDimensions is the default dimension for static embeddings.
	StaticDimensions = 256

	// StaticModelName identifies static embeddings in the manifest.
	StaticModelName = "static-hash"

	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the default embedding model for Ollama.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultBatchSize is the number of texts per embedding request.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of retries for transient failures.
	DefaultMaxRetries = 3

	// DefaultRequestsPerSecond limits requests sent to the embedding server.
	DefaultRequestsPerSecond = 20.0
)

// normalizeVector returns v scaled to unit length. Zero vectors are returned
// as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

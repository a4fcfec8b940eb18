package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// fakeOllama serves /api/embed with vectors of the given size. Each
// embedding is [len(text), 1, 0, ...].
type fakeOllama struct {
	dims     int
	requests atomic.Int64
	// failFirst makes the first n requests return failStatus.
	failFirst  int64
	failStatus int
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.requests.Add(1)
	if r.URL.Path != "/api/embed" {
		http.NotFound(w, r)
		return
	}
	if n <= f.failFirst {
		http.Error(w, "unavailable", f.failStatus)
		return
	}

	var req ollamaEmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var inputs []string
	switch v := req.Input.(type) {
	case string:
		inputs = []string{v}
	case []any:
		for _, s := range v {
			inputs = append(inputs, s.(string))
		}
	}

	resp := ollamaEmbedResponse{Model: req.Model}
	for _, text := range inputs {
		vec := make([]float64, f.dims)
		vec[0] = float64(len(text))
		vec[1] = 1
		resp.Embeddings = append(resp.Embeddings, vec)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func testOllamaConfig(host string) OllamaConfig {
	return OllamaConfig{
		Host:              host,
		Model:             "test-embed",
		BatchSize:         2,
		Timeout:           5 * time.Second,
		MaxRetries:        2,
		RequestsPerSecond: -1,
	}
}

// ============================================================================
// Startup Probe
// ============================================================================

func TestNewOllamaEmbedder_DetectsDimensions(t *testing.T) {
	// Given: a server returning 6-dim vectors
	server := httptest.NewServer(&fakeOllama{dims: 6})
	defer server.Close()

	// When: creating the embedder without configured dimensions
	e, err := NewOllamaEmbedder(context.Background(), testOllamaConfig(server.URL))
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// Then: dimensions come from the probe
	assert.Equal(t, 6, e.Dimensions())
	assert.Equal(t, "test-embed", e.ModelName())
}

func TestNewOllamaEmbedder_ConfiguredDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(&fakeOllama{dims: 6})
	defer server.Close()

	cfg := testOllamaConfig(server.URL)
	cfg.Dimensions = 8
	_, err := NewOllamaEmbedder(context.Background(), cfg)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestNewOllamaEmbedder_Unreachable(t *testing.T) {
	server := httptest.NewServer(&fakeOllama{dims: 4, failFirst: 100, failStatus: http.StatusNotFound})
	defer server.Close()

	_, err := NewOllamaEmbedder(context.Background(), testOllamaConfig(server.URL))

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBackendUnavailable, errors.GetCode(err))
}

// ============================================================================
// Embedding
// ============================================================================

func TestOllamaEmbedder_EmbedBatch_SplitsAndPreservesOrder(t *testing.T) {
	// Given: batch size 2 and five texts, one blank
	fake := &fakeOllama{dims: 4}
	server := httptest.NewServer(fake)
	defer server.Close()

	cfg := testOllamaConfig(server.URL)
	cfg.Dimensions = 4
	cfg.SkipHealthCheck = true
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)

	// When: embedding the batch
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "  ", "dddd", "eeeee"})
	require.NoError(t, err)

	// Then: vectors line up with inputs and the blank text is a zero vector
	require.Len(t, vecs, 5)
	assert.Equal(t, []float32{0, 0, 0, 0}, vecs[2])
	assert.Greater(t, vecs[1][0], vecs[0][0])
	assert.Greater(t, vecs[4][0], vecs[3][0])
	assert.InDelta(t, 1.0, vectorMagnitude(vecs[0]), 0.001)

	// And: three requests for batches [a bb] [dddd] [eeeee]
	assert.Equal(t, int64(3), fake.requests.Load())
}

func TestOllamaEmbedder_RetriesTransientFailures(t *testing.T) {
	// Given: a server that fails the first two requests with 503
	fake := &fakeOllama{dims: 4, failFirst: 2, failStatus: http.StatusServiceUnavailable}
	server := httptest.NewServer(fake)
	defer server.Close()

	cfg := testOllamaConfig(server.URL)
	cfg.Dimensions = 4
	cfg.SkipHealthCheck = true
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)

	// When: embedding
	vec, err := e.Embed(context.Background(), "hello")

	// Then: the third attempt succeeds
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, int64(3), fake.requests.Load())
}

func TestOllamaEmbedder_ClientErrorIsNotRetried(t *testing.T) {
	fake := &fakeOllama{dims: 4, failFirst: 100, failStatus: http.StatusBadRequest}
	server := httptest.NewServer(fake)
	defer server.Close()

	cfg := testOllamaConfig(server.URL)
	cfg.Dimensions = 4
	cfg.SkipHealthCheck = true
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")

	require.Error(t, err)
	assert.Equal(t, int64(1), fake.requests.Load())
}

func TestOllamaEmbedder_ResponseDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(&fakeOllama{dims: 3})
	defer server.Close()

	cfg := testOllamaConfig(server.URL)
	cfg.Dimensions = 4
	cfg.SkipHealthCheck = true
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")

	assert.Error(t, err)
}

func TestOllamaEmbedder_Closed(t *testing.T) {
	cfg := testOllamaConfig("http://127.0.0.1:1")
	cfg.Dimensions = 4
	cfg.SkipHealthCheck = true
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestPermanentFailure(t *testing.T) {
	assert.True(t, permanentFailure(&statusError{code: http.StatusNotFound}))
	assert.False(t, permanentFailure(&statusError{code: http.StatusTooManyRequests}))
	assert.False(t, permanentFailure(&statusError{code: http.StatusBadGateway}))
	assert.False(t, permanentFailure(context.DeadlineExceeded))
}

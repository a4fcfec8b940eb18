package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config selects and configures an embedder.
type Config struct {
	Provider          Provider
	Model             string
	Host              string
	Dimensions        int
	BatchSize         int
	Timeout           time.Duration
	RequestsPerSecond float64

	// CacheSize bounds the query embedding cache. A negative value disables
	// caching.
	CacheSize int
}

// ParseProvider parses a provider name. The empty string selects static.
func ParseProvider(name string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(name))) {
	case "", ProviderStatic:
		return ProviderStatic, nil
	case ProviderOllama:
		return ProviderOllama, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q (want static or ollama)", name)
	}
}

// NewEmbedder creates the configured embedder, wrapped with an LRU cache
// unless caching is disabled. There is no silent fallback between providers:
// vectors from different models are not comparable.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	var embedder Embedder

	switch cfg.Provider {
	case "", ProviderStatic:
		embedder = NewStaticEmbedder(cfg.Dimensions)

	case ProviderOllama:
		oc := DefaultOllamaConfig()
		if cfg.Host != "" {
			oc.Host = cfg.Host
		}
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		if cfg.BatchSize > 0 {
			oc.BatchSize = cfg.BatchSize
		}
		if cfg.Timeout > 0 {
			oc.Timeout = cfg.Timeout
		}
		if cfg.RequestsPerSecond != 0 {
			oc.RequestsPerSecond = cfg.RequestsPerSecond
		}
		oc.Dimensions = cfg.Dimensions

		ollama, err := NewOllamaEmbedder(ctx, oc)
		if err != nil {
			return nil, err
		}
		embedder = ollama

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	slog.Debug("embedder_created",
		slog.String("provider", string(cfg.Provider)),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	if cfg.CacheSize < 0 {
		return embedder, nil
	}
	return NewCachedEmbedder(embedder, cfg.CacheSize), nil
}

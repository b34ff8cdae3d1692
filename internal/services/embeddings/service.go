package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Service implements EmbeddingService on top of a provider
type Service struct {
	provider  interfaces.EmbeddingProvider
	batchSize int
	cache     *ristretto.Cache[string, []float32]
	logger    arbor.ILogger
}

// Compile-time assertion
var _ interfaces.EmbeddingService = (*Service)(nil)

// NewService creates a new embedding service. A zero cacheItems disables the query cache.
func NewService(provider interfaces.EmbeddingProvider, batchSize int, cacheItems int64, logger arbor.ILogger) (*Service, error) {
	if batchSize <= 0 {
		batchSize = 50
	}

	s := &Service{
		provider:  provider,
		batchSize: batchSize,
		logger:    logger,
	}

	if cacheItems > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
			NumCounters: cacheItems * 10,
			MaxCost:     cacheItems,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create query embedding cache: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

// NewProvider builds the configured embedding provider
func NewProvider(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.EmbeddingProvider, error) {
	switch config.Embedding.Provider {
	case "hash":
		logger.Info().Int("embed_dimension", config.Embedding.Dimension).Msg("Using offline hash embedding provider")
		return NewHashProvider(config.Embedding.Dimension), nil
	case "gemini":
		return NewGeminiProvider(ctx, config.Gemini, config.Embedding, logger)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
	}
}

// EmbedBatch embeds texts in provider-sized batches, preserving order
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors := make([][]float32, 0, len(texts))

	for offset := 0; offset < len(texts); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.provider.Embed(ctx, texts[offset:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrModelUnavailable, err)
		}
		if len(batch) != end-offset {
			return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts", common.ErrModelUnavailable, len(batch), end-offset)
		}
		vectors = append(vectors, batch...)
	}

	s.logger.Debug().
		Str("model", s.provider.Model()).
		Int("texts", len(texts)).
		Dur("duration", time.Since(start)).
		Msg("Generated embeddings")

	return vectors, nil
}

// EmbedQuery embeds a single query, using the cache when enabled
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", common.ErrInvalidRequest)
	}

	if s.cache != nil {
		if vec, ok := s.cache.Get(query); ok {
			return vec, nil
		}
	}

	vectors, err := s.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrModelUnavailable, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: no embedding returned for query", common.ErrModelUnavailable)
	}

	if s.cache != nil {
		s.cache.Set(query, vectors[0], 1)
	}
	return vectors[0], nil
}

// ModelName returns the provider's model version
func (s *Service) ModelName() string {
	return s.provider.Model()
}

// Dimension returns the embedding dimension
func (s *Service) Dimension() int {
	return s.provider.Dimension()
}

// Close releases the query cache
func (s *Service) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

package interfaces

import (
	"context"
)

// EmbeddingProvider maps texts to fixed-dimension vectors.
// The same input and model version must produce bit-identical output.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

// EmbeddingService wraps a provider with batching and query caching
type EmbeddingService interface {
	// Embed many texts, split into provider-sized batches
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Embed a single query, served from cache when seen before
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	ModelName() string
	Dimension() int
}

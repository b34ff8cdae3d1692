package interfaces

import (
	"context"

	"github.com/ternarybob/advisor/internal/models"
)

// VectorIndex stores chunk vectors and answers nearest-neighbour queries
type VectorIndex interface {
	// Add inserts or replaces entries. Every vector must match the index dimension.
	Add(ctx context.Context, entries []models.IndexEntry) error

	// Search returns up to opts.K results, best first, ties broken by smaller chunk id
	Search(ctx context.Context, query []float32, opts models.SearchOptions) ([]models.SearchResult, error)

	Delete(ctx context.Context, chunkID string) error
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	ChunkIDs() []string
	Contains(chunkID string) bool
	Size() int
	Dimension() int
	Model() string
}

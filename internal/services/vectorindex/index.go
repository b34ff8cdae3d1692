package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

// Index is an exact brute-force vector index with write-through persistence.
// Searches share a read lock; add and delete are exclusive.
type Index struct {
	mu        sync.RWMutex
	dimension int
	model     string
	entries   map[string]models.IndexEntry
	storage   interfaces.VectorStorage
	logger    arbor.ILogger
}

// Compile-time assertion
var _ interfaces.VectorIndex = (*Index)(nil)

// New creates an index and loads persisted entries. Persisted metadata must
// match the dimension and model in use; a mismatch would mix incomparable vectors.
func New(ctx context.Context, storage interfaces.VectorStorage, dimension int, model string, logger arbor.ILogger) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}

	idx := &Index{
		dimension: dimension,
		model:     model,
		entries:   make(map[string]models.IndexEntry),
		storage:   storage,
		logger:    logger,
	}

	if storage == nil {
		return idx, nil
	}

	meta, err := storage.GetMeta(ctx)
	switch {
	case errors.Is(err, common.ErrNotFound):
		if err := storage.SaveMeta(ctx, &models.IndexMeta{Dimension: dimension, Model: model}); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case meta.Dimension != dimension || meta.Model != model:
		return nil, fmt.Errorf("%w: persisted index is %s/%d, configured %s/%d (clear the data directory to re-index)",
			common.ErrDimensionMismatch, meta.Model, meta.Dimension, model, dimension)
	}

	persisted, err := storage.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range persisted {
		if len(e.Vector) != dimension {
			return nil, fmt.Errorf("%w: persisted vector %s has dimension %d", common.ErrDimensionMismatch, e.ChunkID, len(e.Vector))
		}
		idx.entries[e.ChunkID] = *e
	}

	logger.Info().
		Int("vectors", len(idx.entries)).
		Int("dimension", dimension).
		Str("model", model).
		Msg("Vector index loaded")

	return idx, nil
}

// Add inserts or replaces entries. The batch is rejected as a whole on any dimension mismatch.
func (idx *Index) Add(ctx context.Context, entries []models.IndexEntry) error {
	for _, e := range entries {
		if len(e.Vector) != idx.dimension {
			return fmt.Errorf("%w: chunk %s has %d, index expects %d", common.ErrDimensionMismatch, e.ChunkID, len(e.Vector), idx.dimension)
		}
		if e.ChunkID == "" {
			return fmt.Errorf("chunk ID is required")
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.storage != nil {
		persisted := make([]*models.IndexEntry, len(entries))
		for i := range entries {
			persisted[i] = &entries[i]
		}
		if err := idx.storage.SaveEntries(ctx, persisted); err != nil {
			return err
		}
	}

	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		e.Vector = vec
		idx.entries[e.ChunkID] = e
	}
	return nil
}

// Search scores every entry. Cosine results sort by decreasing similarity,
// euclidean by increasing distance; equal scores order by chunk id.
func (idx *Index) Search(ctx context.Context, query []float32, opts models.SearchOptions) ([]models.SearchResult, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", common.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if opts.K <= 0 {
		return []models.SearchResult{}, nil
	}
	if opts.Similarity == "" {
		opts.Similarity = models.SimilarityCosine
	}

	var filter map[string]bool
	if len(opts.DocumentIDs) > 0 {
		filter = make(map[string]bool, len(opts.DocumentIDs))
		for _, id := range opts.DocumentIDs {
			filter[id] = true
		}
	}

	idx.mu.RLock()
	results := make([]models.SearchResult, 0, len(idx.entries))
	for _, e := range idx.entries {
		if filter != nil && !filter[e.DocumentID] {
			continue
		}
		r := models.SearchResult{ChunkID: e.ChunkID, DocumentID: e.DocumentID}
		switch opts.Similarity {
		case models.SimilarityEuclidean:
			r.Distance = euclidean(query, e.Vector)
			r.Score = 1 / (1 + r.Distance)
		default:
			r.Score = cosine(query, e.Vector)
		}
		results = append(results, r)
	}
	idx.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if opts.Similarity == models.SimilarityEuclidean {
			if a.Distance != b.Distance {
				return a.Distance < b.Distance
			}
		} else if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ChunkID < b.ChunkID
	})

	if len(results) > opts.K {
		results = results[:opts.K]
	}
	return results, nil
}

// Delete removes a single chunk vector
func (idx *Index) Delete(ctx context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.storage != nil {
		if err := idx.storage.DeleteEntry(ctx, chunkID); err != nil {
			return err
		}
	}
	delete(idx.entries, chunkID)
	return nil
}

// DeleteDocument removes every vector of a document and returns how many were removed
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.storage != nil {
		if err := idx.storage.DeleteByDocument(ctx, documentID); err != nil {
			return 0, err
		}
	}

	removed := 0
	for id, e := range idx.entries {
		if e.DocumentID == documentID {
			delete(idx.entries, id)
			removed++
		}
	}
	return removed, nil
}

// ChunkIDs returns the ids of all indexed chunks in ascending order
func (idx *Index) ChunkIDs() []string {
	idx.mu.RLock()
	ids := make([]string, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	idx.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Contains reports whether chunkID is indexed
func (idx *Index) Contains(chunkID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.entries[chunkID]
	return ok
}

func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func (idx *Index) Dimension() int {
	return idx.dimension
}

func (idx *Index) Model() string {
	return idx.model
}

// cosine returns 0 when either vector has zero magnitude
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/advisor/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

func newMemoryIndex(t *testing.T, dim int) *Index {
	t.Helper()
	idx, err := New(context.Background(), nil, dim, "test-model", arbor.NewLogger())
	require.NoError(t, err)
	return idx
}

func entry(chunkID, docID string, v ...float32) models.IndexEntry {
	return models.IndexEntry{ChunkID: chunkID, DocumentID: docID, Vector: v}
}

func TestIndex_CosineOrderingAndTies(t *testing.T) {
	idx := newMemoryIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.IndexEntry{
		entry("c", "d1", 1, 0),
		entry("a", "d1", 1, 0), // ties with "c"
		entry("b", "d2", 0, 1),
		entry("z", "d2", 1, 1),
	}))

	results, err := idx.Search(ctx, []float32{1, 0}, models.SearchOptions{K: 4, Similarity: models.SimilarityCosine})
	require.NoError(t, err)
	require.Len(t, results, 4)

	ids := []string{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID, results[3].ChunkID}
	assert.Equal(t, []string{"a", "c", "z", "b"}, ids)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestIndex_EuclideanOrdering(t *testing.T) {
	idx := newMemoryIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.IndexEntry{
		entry("far", "d1", 10, 10),
		entry("near", "d1", 1, 1),
		entry("exact", "d1", 0, 0),
	}))

	results, err := idx.Search(ctx, []float32{0, 0}, models.SearchOptions{K: 3, Similarity: models.SimilarityEuclidean})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].ChunkID)
	assert.Equal(t, "near", results[1].ChunkID)
	assert.Equal(t, "far", results[2].ChunkID)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestIndex_KLargerThanIndex(t *testing.T) {
	idx := newMemoryIndex(t, 2)
	ctx := context.Background()

	results, err := idx.Search(ctx, []float32{1, 0}, models.SearchOptions{K: 5})
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, idx.Add(ctx, []models.IndexEntry{entry("a", "d1", 1, 0), entry("b", "d1", 0, 1)}))
	results, err = idx.Search(ctx, []float32{1, 0}, models.SearchOptions{K: 5})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx := newMemoryIndex(t, 3)
	ctx := context.Background()

	err := idx.Add(ctx, []models.IndexEntry{entry("a", "d1", 1, 0, 0), entry("b", "d1", 1, 0)})
	assert.True(t, errors.Is(err, common.ErrDimensionMismatch))
	assert.Equal(t, 0, idx.Size(), "rejected batch must not be partially applied")

	_, err = idx.Search(ctx, []float32{1, 0}, models.SearchOptions{K: 1})
	assert.True(t, errors.Is(err, common.ErrDimensionMismatch))
}

func TestIndex_AddReplaces(t *testing.T) {
	idx := newMemoryIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.IndexEntry{entry("a", "d1", 1, 0)}))
	require.NoError(t, idx.Add(ctx, []models.IndexEntry{entry("a", "d1", 0, 1)}))
	assert.Equal(t, 1, idx.Size())

	results, err := idx.Search(ctx, []float32{0, 1}, models.SearchOptions{K: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestIndex_DeleteDocumentNeverSurfaces(t *testing.T) {
	idx := newMemoryIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.IndexEntry{
		entry("a1", "doc_a", 1, 0),
		entry("a2", "doc_a", 0.9, 0.1),
		entry("b1", "doc_b", 0, 1),
	}))

	removed, err := idx.DeleteDocument(ctx, "doc_a")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	for _, sim := range []models.Similarity{models.SimilarityCosine, models.SimilarityEuclidean} {
		results, err := idx.Search(ctx, []float32{1, 0}, models.SearchOptions{K: 10, Similarity: sim})
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, "doc_a", r.DocumentID)
		}
	}

	require.NoError(t, idx.Delete(ctx, "b1"))
	assert.Equal(t, 0, idx.Size())
}

func TestIndex_DocumentFilter(t *testing.T) {
	idx := newMemoryIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.IndexEntry{
		entry("a1", "doc_a", 1, 0),
		entry("b1", "doc_b", 1, 0),
	}))

	results, err := idx.Search(ctx, []float32{1, 0}, models.SearchOptions{K: 10, DocumentIDs: []string{"doc_b"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b1", results[0].ChunkID)
}

func TestIndex_ZeroVectorScoresZero(t *testing.T) {
	idx := newMemoryIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []models.IndexEntry{entry("a", "d1", 0, 0)}))

	results, err := idx.Search(ctx, []float32{1, 0}, models.SearchOptions{K: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestIndex_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	logger := arbor.NewLogger()
	cfg := &common.BadgerConfig{Path: t.TempDir()}

	manager, err := badger.NewManager(logger, cfg)
	require.NoError(t, err)

	idx, err := New(ctx, manager.VectorStorage(), 2, "hash-v1", logger)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []models.IndexEntry{entry("a", "d1", 1, 0), entry("b", "d2", 0, 1)}))
	_, err = idx.DeleteDocument(ctx, "d2")
	require.NoError(t, err)
	require.NoError(t, manager.Close())

	manager, err = badger.NewManager(logger, cfg)
	require.NoError(t, err)
	defer manager.Close()

	reloaded, err := New(ctx, manager.VectorStorage(), 2, "hash-v1", logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, reloaded.ChunkIDs())
	assert.True(t, reloaded.Contains("a"))
	assert.False(t, reloaded.Contains("b"))

	_, err = New(ctx, manager.VectorStorage(), 3, "hash-v1", logger)
	assert.True(t, errors.Is(err, common.ErrDimensionMismatch))
}

func TestIndex_ConcurrentSearchAndAdd(t *testing.T) {
	idx := newMemoryIndex(t, 4)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = idx.Add(ctx, []models.IndexEntry{entry(fmt.Sprintf("c-%d-%d", w, i), "d", float32(i), 1, 0, float32(w))})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := idx.Search(ctx, []float32{1, 1, 0, 0}, models.SearchOptions{K: 3})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, idx.Size())
}

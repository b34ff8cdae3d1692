package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := &common.BadgerConfig{Path: t.TempDir()}
	db, err := NewBadgerDB(arbor.NewLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newManager(db, arbor.NewLogger())
}

func TestDocumentStorage_SaveGetDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	docs := m.DocumentStorage()

	doc := &models.Document{ID: "doc_1", Filename: "a.txt", FileType: models.FileTypeTXT, Status: models.DocumentStatusProcessing}
	require.NoError(t, docs.SaveDocument(ctx, doc))
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := docs.GetDocument(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Filename)
	assert.Equal(t, models.DocumentStatusProcessing, got.Status)

	counts, err := docs.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["processing"])
	assert.Equal(t, 0, counts["ready"])

	require.NoError(t, docs.DeleteDocument(ctx, "doc_1"))
	_, err = docs.GetDocument(ctx, "doc_1")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	// Deleting twice is not an error
	assert.NoError(t, docs.DeleteDocument(ctx, "doc_1"))
}

func TestDocumentStorage_ListNewestFirst(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	docs := m.DocumentStorage()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"doc_a", "doc_b", "doc_c"} {
		require.NoError(t, docs.SaveDocument(ctx, &models.Document{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	list, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "doc_c", list[0].ID)
	assert.Equal(t, "doc_a", list[2].ID)
}

func TestChunkStorage_ByDocumentOrdered(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	chunks := m.ChunkStorage()

	require.NoError(t, chunks.SaveChunks(ctx, []*models.Chunk{
		{ID: "c2", DocumentID: "doc_1", Ordinal: 2, Text: "two"},
		{ID: "c0", DocumentID: "doc_1", Ordinal: 0, Text: "zero"},
		{ID: "c1", DocumentID: "doc_1", Ordinal: 1, Text: "one"},
		{ID: "x0", DocumentID: "doc_2", Ordinal: 0, Text: "other"},
	}))

	got, err := chunks.GetChunksByDocument(ctx, "doc_1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.Ordinal)
	}

	require.NoError(t, chunks.DeleteChunksByDocument(ctx, "doc_1"))
	count, err := chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = chunks.GetChunk(ctx, "c1")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	ids, err := chunks.ListChunkIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x0"}, ids)
}

func TestVectorStorage_EntriesAndMeta(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	vectors := m.VectorStorage()

	_, err := vectors.GetMeta(ctx)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, vectors.SaveMeta(ctx, &models.IndexMeta{Dimension: 3, Model: "hash-v1"}))
	meta, err := vectors.GetMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Dimension)

	require.NoError(t, vectors.SaveEntries(ctx, []*models.IndexEntry{
		{ChunkID: "c0", DocumentID: "doc_1", Vector: []float32{1, 0, 0}},
		{ChunkID: "c1", DocumentID: "doc_1", Vector: []float32{0, 1, 0}},
		{ChunkID: "d0", DocumentID: "doc_2", Vector: []float32{0, 0, 1}},
	}))

	require.NoError(t, vectors.DeleteByDocument(ctx, "doc_1"))
	all, err := vectors.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "d0", all[0].ChunkID)
	assert.Equal(t, []float32{0, 0, 1}, all[0].Vector)

	require.NoError(t, vectors.DeleteEntry(ctx, "d0"))
	require.NoError(t, vectors.DeleteEntry(ctx, "d0"))
}

func TestSessionStorage_MessagesInSeqOrder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	sessions := m.SessionStorage()

	require.NoError(t, sessions.SaveSession(ctx, &models.Session{ID: "sess_1"}))
	for _, seq := range []int{3, 1, 2} {
		require.NoError(t, sessions.AppendMessage(ctx, &models.Message{
			ID:        common.NewMessageID(),
			SessionID: "sess_1",
			Seq:       seq,
			Role:      models.RoleUser,
			Text:      "hello",
		}))
	}

	msgs, err := sessions.GetMessages(ctx, "sess_1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, 1, msgs[0].Seq)
	assert.Equal(t, 3, msgs[2].Seq)

	require.NoError(t, sessions.DeleteSession(ctx, "sess_1"))
	_, err = sessions.GetSession(ctx, "sess_1")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	msgs, err = sessions.GetMessages(ctx, "sess_1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

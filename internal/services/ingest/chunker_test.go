package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/advisor/internal/common"
)

func newTestChunker(t *testing.T, size, overlap, tolerance int) *Chunker {
	t.Helper()
	c, err := NewChunker(common.IngestionConfig{
		ChunkUnit:     "characters",
		ChunkSize:     size,
		ChunkOverlap:  overlap,
		SnapTolerance: tolerance,
	})
	require.NoError(t, err)
	return c
}

func TestChunker_FixedWindowsWithoutBreaks(t *testing.T) {
	c := newTestChunker(t, 400, 50, 100)
	text := strings.Repeat("x", 1000)

	chunks := c.Split("doc_1", text)
	require.Len(t, chunks, 3)

	expected := [][2]int{{0, 400}, {350, 750}, {700, 1000}}
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
		assert.Equal(t, expected[i][0], chunk.Range.Start)
		assert.Equal(t, expected[i][1], chunk.Range.End)
		assert.Equal(t, chunk.Range.Len(), len([]rune(chunk.Text)))
	}
}

func TestChunker_SnapsToSentenceBreak(t *testing.T) {
	c := newTestChunker(t, 20, 5, 10)
	text := "aaaaaaaaaaaaa. " + strings.Repeat("b", 30)

	chunks := c.Split("doc_1", text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "aaaaaaaaaaaaa.", chunks[0].Text)
	assert.Equal(t, 9, chunks[1].Range.Start)
}

func TestChunker_ReassembleRoundTrip(t *testing.T) {
	c := newTestChunker(t, 120, 30, 40)
	paragraph := "Set aside an emergency fund first. Then pay down high interest debt!\nInvest the rest? "
	text := strings.TrimSpace(strings.Repeat(paragraph, 12))

	chunks := c.Split("doc_rt", text)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, text, Reassemble(chunks))

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		assert.Equal(t, prev.Range.End-30, cur.Range.Start, "consecutive chunks share the overlap")
		assert.LessOrEqual(t, cur.Range.Len(), 120)
	}
	assert.Equal(t, len([]rune(text)), chunks[len(chunks)-1].Range.End)
}

func TestChunker_ShortAndEmptyText(t *testing.T) {
	c := newTestChunker(t, 100, 10, 20)
	assert.Nil(t, c.Split("doc_1", ""))

	chunks := c.Split("doc_1", "Spend less than you earn.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Spend less than you earn.", chunks[0].Text)
}

func TestChunker_InvalidWindow(t *testing.T) {
	_, err := NewChunker(common.IngestionConfig{ChunkSize: 100, ChunkOverlap: 100})
	assert.Error(t, err)
	_, err = NewChunker(common.IngestionConfig{ChunkUnit: "tokens", ChunkSize: 100})
	assert.Error(t, err)
}

func TestChunkID_Deterministic(t *testing.T) {
	assert.Equal(t, ChunkID("doc_a", 3), ChunkID("doc_a", 3))
	assert.NotEqual(t, ChunkID("doc_a", 3), ChunkID("doc_a", 4))
	assert.NotEqual(t, ChunkID("doc_a", 0), ChunkID("doc_b", 0))
	assert.True(t, strings.HasPrefix(ChunkID("doc_a", 0), "chk_"))
}

package ingest

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
)

// Chunker splits normalized text into overlapping character windows
type Chunker struct {
	size          int
	overlap       int
	snapTolerance int
}

// NewChunker creates a chunker from the ingestion config
func NewChunker(cfg common.IngestionConfig) (*Chunker, error) {
	if cfg.ChunkUnit != "" && cfg.ChunkUnit != "characters" {
		return nil, fmt.Errorf("unsupported chunk unit %q", cfg.ChunkUnit)
	}
	if cfg.ChunkSize <= 0 || cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("invalid chunk window: size=%d overlap=%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	return &Chunker{
		size:          cfg.ChunkSize,
		overlap:       cfg.ChunkOverlap,
		snapTolerance: cfg.SnapTolerance,
	}, nil
}

// ChunkID derives the deterministic id of a document's chunk
func ChunkID(documentID string, ordinal int) string {
	h := xxhash.New()
	_, _ = h.WriteString(documentID)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ordinal))
	_, _ = h.Write(buf[:])
	return fmt.Sprintf("chk_%016x", h.Sum64())
}

// Split cuts text into windows of at most size characters. Consecutive chunks
// share exactly overlap characters. A window end moves back to the nearest
// paragraph or sentence break within the snap tolerance; the last chunk always
// ends at the end of the text.
func (c *Chunker) Split(documentID, text string) []*models.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []*models.Chunk
	start := 0
	for ordinal := 0; ; ordinal++ {
		end := start + c.size
		last := end >= n
		if last {
			end = n
		} else {
			end = c.snap(runes, start, end)
		}

		chunks = append(chunks, &models.Chunk{
			ID:         ChunkID(documentID, ordinal),
			DocumentID: documentID,
			Ordinal:    ordinal,
			Text:       string(runes[start:end]),
			Range:      models.CharRange{Start: start, End: end},
		})

		if last {
			return chunks
		}
		start = end - c.overlap
	}
}

// snap returns the nearest break position at or before end. Candidates must
// leave the next window starting after start.
func (c *Chunker) snap(runes []rune, start, end int) int {
	floor := end - c.snapTolerance
	if lowest := start + c.overlap + 1; floor < lowest {
		floor = lowest
	}
	for p := end; p >= floor; p-- {
		if isBreak(runes, p) {
			return p
		}
	}
	return end
}

// isBreak reports whether a chunk may end just before position p
func isBreak(runes []rune, p int) bool {
	if p <= 0 || p >= len(runes) {
		return false
	}
	prev := runes[p-1]
	if prev == '\n' {
		return true
	}
	return strings.ContainsRune(".!?", prev) && unicode.IsSpace(runes[p])
}

// Reassemble rebuilds the source text from chunks ordered by ordinal by dropping
// the characters each chunk shares with its predecessor.
func Reassemble(chunks []*models.Chunk) string {
	var sb strings.Builder
	covered := 0
	for _, chunk := range chunks {
		runes := []rune(chunk.Text)
		skip := covered - chunk.Range.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(runes) {
			sb.WriteString(string(runes[skip:]))
		}
		if chunk.Range.End > covered {
			covered = chunk.Range.End
		}
	}
	return sb.String()
}

package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

// Auditor checks that every indexed vector still has its chunk
type Auditor struct {
	index  interfaces.VectorIndex
	chunks interfaces.ChunkStorage
	repair bool
	logger arbor.ILogger
}

// NewAuditor creates an index consistency auditor. With repair set, ghost
// vectors are removed from the index.
func NewAuditor(index interfaces.VectorIndex, chunks interfaces.ChunkStorage, repair bool, logger arbor.ILogger) *Auditor {
	return &Auditor{index: index, chunks: chunks, repair: repair, logger: logger}
}

// Audit compares the index with chunk storage
func (a *Auditor) Audit(ctx context.Context) (*models.AuditReport, error) {
	indexed := a.index.ChunkIDs()

	stored, err := a.chunks.ListChunkIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored chunks: %w", err)
	}
	known := make(map[string]bool, len(stored))
	for _, id := range stored {
		known[id] = true
	}

	report := &models.AuditReport{Vectors: len(indexed), GhostChunks: []string{}}
	for _, id := range indexed {
		if known[id] {
			continue
		}
		ghost, err := a.confirmGhost(ctx, id)
		if err != nil {
			return nil, err
		}
		if ghost {
			report.GhostChunks = append(report.GhostChunks, id)
		}
	}

	if len(report.GhostChunks) == 0 {
		a.logger.Debug().Int("vectors", report.Vectors).Msg("Index consistency audit passed")
		return report, nil
	}

	a.logger.Error().
		Err(common.ErrIndexInconsistency).
		Int("vectors", report.Vectors).
		Int("ghost_chunks", len(report.GhostChunks)).
		Strs("chunk_ids", report.GhostChunks).
		Msg("Index holds vectors without chunks")

	if a.repair {
		for _, id := range report.GhostChunks {
			if err := a.index.Delete(ctx, id); err != nil {
				return report, fmt.Errorf("failed to remove ghost vector %s: %w", id, err)
			}
		}
		report.Repaired = true
		a.logger.Warn().Int("removed", len(report.GhostChunks)).Msg("Ghost vectors removed from index")
	}

	return report, nil
}

// confirmGhost re-reads a candidate so a document deleted between the two
// snapshots is not reported
func (a *Auditor) confirmGhost(ctx context.Context, chunkID string) (bool, error) {
	if !a.index.Contains(chunkID) {
		return false, nil
	}
	_, err := a.chunks.GetChunk(ctx, chunkID)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, common.ErrNotFound) {
		return true, nil
	}
	return false, fmt.Errorf("failed to check chunk %s: %w", chunkID, err)
}

package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

const indexMetaKey = "vector_index_meta"

// VectorStorage implements the VectorStorage interface for Badger
type VectorStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVectorStorage creates a new VectorStorage instance
func NewVectorStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VectorStorage {
	return &VectorStorage{
		db:     db,
		logger: logger,
	}
}

func (s *VectorStorage) SaveEntries(ctx context.Context, entries []*models.IndexEntry) error {
	for _, entry := range entries {
		if err := s.db.Store().Upsert(entry.ChunkID, entry); err != nil {
			return fmt.Errorf("failed to save vector %s: %w", entry.ChunkID, err)
		}
	}
	return nil
}

func (s *VectorStorage) DeleteEntry(ctx context.Context, chunkID string) error {
	if err := s.db.Store().Delete(chunkID, &models.IndexEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete vector %s: %w", chunkID, err)
	}
	return nil
}

func (s *VectorStorage) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := s.db.Store().DeleteMatching(&models.IndexEntry{}, badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
		return fmt.Errorf("failed to delete vectors for document %s: %w", documentID, err)
	}
	return nil
}

func (s *VectorStorage) LoadAll(ctx context.Context) ([]*models.IndexEntry, error) {
	var entries []models.IndexEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	result := make([]*models.IndexEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}

func (s *VectorStorage) GetMeta(ctx context.Context) (*models.IndexMeta, error) {
	var meta models.IndexMeta
	if err := s.db.Store().Get(indexMetaKey, &meta); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("vector index metadata: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get vector index metadata: %w", err)
	}
	return &meta, nil
}

func (s *VectorStorage) SaveMeta(ctx context.Context, meta *models.IndexMeta) error {
	if err := s.db.Store().Upsert(indexMetaKey, meta); err != nil {
		return fmt.Errorf("failed to save vector index metadata: %w", err)
	}
	return nil
}

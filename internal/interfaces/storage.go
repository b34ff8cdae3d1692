package interfaces

import (
	"context"

	"github.com/ternarybob/advisor/internal/models"
)

// DocumentStorage - persistence for uploaded documents
type DocumentStorage interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	CountDocuments(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// ChunkStorage - persistence for document chunks
type ChunkStorage interface {
	SaveChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) // Ordered by ordinal
	DeleteChunksByDocument(ctx context.Context, documentID string) error
	ListChunkIDs(ctx context.Context) ([]string, error)
	CountChunks(ctx context.Context) (int, error)
}

// VectorStorage - write-through persistence behind the vector index
type VectorStorage interface {
	SaveEntries(ctx context.Context, entries []*models.IndexEntry) error
	DeleteEntry(ctx context.Context, chunkID string) error
	DeleteByDocument(ctx context.Context, documentID string) error
	LoadAll(ctx context.Context) ([]*models.IndexEntry, error)
	GetMeta(ctx context.Context) (*models.IndexMeta, error) // Wraps common.ErrNotFound when absent
	SaveMeta(ctx context.Context, meta *models.IndexMeta) error
}

// SessionStorage - persistence for chat sessions and their message logs
type SessionStorage interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, sessionID string) ([]*models.Message, error) // Ordered by seq
	DeleteMessages(ctx context.Context, sessionID string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	DocumentStorage() DocumentStorage
	ChunkStorage() ChunkStorage
	VectorStorage() VectorStorage
	SessionStorage() SessionStorage
	Close() error
}

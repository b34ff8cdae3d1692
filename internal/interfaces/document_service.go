package interfaces

import (
	"context"

	"github.com/ternarybob/advisor/internal/models"
)

// DocumentService accepts uploads and manages the document lifecycle
type DocumentService interface {
	// SubmitDocument validates synchronously and indexes in the background
	SubmitDocument(ctx context.Context, data []byte, filename, declaredType string) (*models.SubmitResult, error)
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	Stats(ctx context.Context) (*models.DocumentStats, error)
}

package interfaces

import (
	"context"

	"github.com/ternarybob/advisor/internal/models"
)

// ConversationStore holds per-session ordered message history
type ConversationStore interface {
	CreateSession(ctx context.Context) (*models.Session, error)

	// EnsureSession returns the session, creating it under the given id when absent
	EnsureSession(ctx context.Context, id string) (*models.Session, error)

	// Append assigns the next sequence number and persists the message
	Append(ctx context.Context, sessionID string, msg *models.Message) error

	// History returns the most recent whole turns whose serialized size fits budget.
	// The most recent turn is always kept in full.
	History(ctx context.Context, sessionID string, budget int) ([]models.Message, error)

	Messages(ctx context.Context, sessionID string) ([]*models.Message, error)
	Clear(ctx context.Context, sessionID string) error

	// ExportPDF renders the session transcript as a PDF document
	ExportPDF(ctx context.Context, sessionID string) ([]byte, error)
}

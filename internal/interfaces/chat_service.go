package interfaces

import (
	"context"

	"github.com/ternarybob/advisor/internal/models"
)

// ChatService runs grounded chat turns
type ChatService interface {
	// Chat always resolves to a success or fallback reply unless an invariant is violated
	Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
	GetHistory(ctx context.Context, sessionID string) ([]*models.Message, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// GenerativeBackend produces a reply for an assembled prompt
type GenerativeBackend interface {
	Generate(ctx context.Context, prompt *models.Prompt) *models.GenerationResult
	Health() models.BackendHealth
}

// FallbackAdvisor answers deterministically when generation is unavailable
type FallbackAdvisor interface {
	Advise(query string) models.FallbackAnswer
	Suggestions(query string) []string
}

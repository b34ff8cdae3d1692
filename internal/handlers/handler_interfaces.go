package handlers

import (
	"context"

	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
)

// ChatResponder is the chat surface exposed over HTTP
type ChatResponder interface {
	interfaces.ChatService
	ExportTranscript(ctx context.Context, sessionID string) ([]byte, error)
}

// BackendHealthReporter reports the generative backend state
type BackendHealthReporter interface {
	Health() models.BackendHealth
}

// AuditReporter exposes the most recent index consistency audit
type AuditReporter interface {
	LastReport() *models.AuditReport
}

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/advisor/internal/app"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/handlers"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

type stubDocuments struct{}

func (stubDocuments) SubmitDocument(ctx context.Context, data []byte, filename, declaredType string) (*models.SubmitResult, error) {
	return &models.SubmitResult{DocumentID: "doc_1", Status: models.DocumentStatusProcessing}, nil
}
func (stubDocuments) DeleteDocument(ctx context.Context, id string) error { return common.ErrNotFound }
func (stubDocuments) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return &models.Document{ID: id}, nil
}
func (stubDocuments) ListDocuments(ctx context.Context) ([]*models.Document, error) { return nil, nil }
func (stubDocuments) Stats(ctx context.Context) (*models.DocumentStats, error) {
	return &models.DocumentStats{}, nil
}

type stubChat struct{}

func (stubChat) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	return &models.ChatResponse{SessionID: req.SessionID}, nil
}
func (stubChat) GetHistory(ctx context.Context, sessionID string) ([]*models.Message, error) {
	return []*models.Message{}, nil
}
func (stubChat) ClearHistory(ctx context.Context, sessionID string) error { return nil }
func (stubChat) ExportTranscript(ctx context.Context, sessionID string) ([]byte, error) {
	return []byte("%PDF"), nil
}
func (stubChat) Health() models.BackendHealth { return models.BackendHealth{BreakerState: "closed"} }

func newTestServer() *Server {
	logger := arbor.NewLogger()
	return New(&app.App{
		Config:          common.NewDefaultConfig(),
		Logger:          logger,
		APIHandler:      handlers.NewAPIHandler(stubChat{}, stubDocuments{}, nil, logger),
		DocumentHandler: handlers.NewDocumentHandler(stubDocuments{}, 1024, logger),
		ChatHandler:     handlers.NewChatHandler(stubChat{}, logger),
	})
}

func TestRoutes(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/documents", http.StatusOK},
		{http.MethodPut, "/api/documents", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/documents/stats", http.StatusOK},
		{http.MethodGet, "/api/documents/doc_1", http.StatusOK},
		{http.MethodDelete, "/api/documents/doc_1", http.StatusNotFound},
		{http.MethodGet, "/api/chat/history/s1", http.StatusOK},
		{http.MethodDelete, "/api/chat/history/s1", http.StatusOK},
		{http.MethodGet, "/api/chat/history/s1/pdf", http.StatusOK},
		{http.MethodGet, "/api/chat", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
		{http.MethodOptions, "/api/chat", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
		})
	}
}

func TestRoutes_TranscriptContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/history/s1/pdf", nil))
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

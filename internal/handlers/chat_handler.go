package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

const (
	maxChatBodyBytes  = 64 * 1024
	historyPathPrefix = "/api/chat/history/"
)

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	chatService ChatResponder
	logger      arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	chatService ChatResponder,
	logger arbor.ILogger,
) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// ChatHandler handles POST /api/chat requests
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode chat request")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.logger.Info().
		Str("session_id", req.SessionID).
		Int("message_length", len(req.Message)).
		Int("document_filter", len(req.DocumentIDs)).
		Msg("Processing chat request")

	response, err := h.chatService.Chat(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to answer chat message")
		return
	}

	WriteJSON(w, http.StatusOK, response)
}

// HistoryHandler handles GET /api/chat/history/{session} requests
func (h *ChatHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := PathID(r, historyPathPrefix, "")
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "Session id is required")
		return
	}

	messages, err := h.chatService.GetHistory(r.Context(), sessionID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to load chat history")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// ClearHistoryHandler handles DELETE /api/chat/history/{session} requests
func (h *ChatHandler) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := PathID(r, historyPathPrefix, "")
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "Session id is required")
		return
	}

	if err := h.chatService.ClearHistory(r.Context(), sessionID); err != nil {
		WriteServiceError(w, h.logger, err, "Failed to clear chat history")
		return
	}
	WriteSuccess(w, "Chat history cleared")
}

// TranscriptHandler handles GET /api/chat/history/{session}/pdf requests
func (h *ChatHandler) TranscriptHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID := PathID(r, historyPathPrefix, "/pdf")
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "Session id is required")
		return
	}

	pdf, err := h.chatService.ExportTranscript(r.Context(), sessionID)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to export chat transcript")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transcript-%s.pdf"`, safeFilename(sessionID)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to write transcript")
	}
}

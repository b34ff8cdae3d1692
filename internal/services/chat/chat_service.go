package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

// ChatService implements interfaces.ChatService. Turns of one session are
// serialized; different sessions run concurrently.
type ChatService struct {
	retriever     *Retriever
	conversations interfaces.ConversationStore
	backend       interfaces.GenerativeBackend
	fallback      interfaces.FallbackAdvisor
	validate      *validator.Validate
	maxMessageLen int
	snippetLength int
	logger        arbor.ILogger

	locks common.KeyedMutex // serializes turns per session
}

// Compile-time assertion
var _ interfaces.ChatService = (*ChatService)(nil)

// NewChatService creates a new chat service
func NewChatService(
	retriever *Retriever,
	conversations interfaces.ConversationStore,
	backend interfaces.GenerativeBackend,
	fallback interfaces.FallbackAdvisor,
	maxMessageLen int,
	snippetLength int,
	logger arbor.ILogger,
) *ChatService {
	return &ChatService{
		retriever:     retriever,
		conversations: conversations,
		backend:       backend,
		fallback:      fallback,
		validate:      validator.New(),
		maxMessageLen: maxMessageLen,
		snippetLength: snippetLength,
		logger:        logger,
	}
}

func (s *ChatService) transition(sessionID string, state models.TurnState) {
	s.logger.Debug().Str("session_id", sessionID).Str("state", string(state)).Msg("Chat turn state")
}

// Chat runs one turn: RECEIVED, EMBEDDING, RETRIEVING, GENERATING, then SUCCESS or
// FALLBACK, and finally RECORDED. Generation failures never surface as errors.
func (s *ChatService) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.SessionID)
	defer unlock()

	startTime := time.Now()
	s.transition(req.SessionID, models.TurnReceived)

	if _, err := s.conversations.EnsureSession(ctx, req.SessionID); err != nil {
		return nil, err
	}

	s.transition(req.SessionID, models.TurnEmbedding)
	vector, err := s.retriever.EmbedQuery(ctx, req.Message)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("Query embedding failed, continuing without retrieval")
		vector = nil
	}

	s.transition(req.SessionID, models.TurnRetrieving)
	retrieval, err := s.retriever.Assemble(ctx, req.Message, vector, req.SessionID, req.DocumentIDs)
	if err != nil {
		if errors.Is(err, common.ErrIndexInconsistency) {
			s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("Chat turn aborted on index inconsistency")
		}
		return nil, err
	}

	s.transition(req.SessionID, models.TurnGenerating)
	result := s.backend.Generate(ctx, retrieval.Prompt)

	response := &models.ChatResponse{
		SessionID: req.SessionID,
		Sources:   []models.Source{},
	}

	if result.OK() {
		s.transition(req.SessionID, models.TurnSuccess)
		response.Outcome = models.TurnOutcomeSuccess
		response.Message = result.Text
		response.Suggestions = s.fallback.Suggestions(req.Message)
		response.Sources = s.sources(retrieval.Chunks)
	} else {
		s.transition(req.SessionID, models.TurnFallback)
		answer := s.fallback.Advise(req.Message)
		s.logger.Warn().
			Str("session_id", req.SessionID).
			Str("status", string(result.Status)).
			Int("attempts", result.Attempts).
			Str("topic", answer.Topic).
			Err(result.Err).
			Msg("Generation unavailable, answering with fallback advice")
		response.Outcome = models.TurnOutcomeFallback
		response.Message = answer.Text
		response.Suggestions = answer.Suggestions
	}

	if err := s.record(ctx, req, retrieval, response); err != nil {
		return nil, err
	}
	s.transition(req.SessionID, models.TurnRecorded)

	s.logger.Info().
		Str("session_id", req.SessionID).
		Str("outcome", string(response.Outcome)).
		Int("sources", len(response.Sources)).
		Dur("duration", time.Since(startTime)).
		Msg("Chat turn completed")

	return response, nil
}

func (s *ChatService) validateRequest(req *models.ChatRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", common.ErrInvalidRequest)
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Message = strings.TrimSpace(req.Message)

	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	if s.maxMessageLen > 0 && utf8.RuneCountInString(req.Message) > s.maxMessageLen {
		return fmt.Errorf("%w: message exceeds %d characters", common.ErrInvalidRequest, s.maxMessageLen)
	}
	return nil
}

// record appends both sides of the turn. It runs detached from ctx so a
// disconnecting client cannot leave half a turn behind.
func (s *ChatService) record(ctx context.Context, req *models.ChatRequest, retrieval *Retrieval, response *models.ChatResponse) error {
	recordCtx := context.WithoutCancel(ctx)

	user := &models.Message{Role: models.RoleUser, Text: req.Message}
	if err := s.conversations.Append(recordCtx, req.SessionID, user); err != nil {
		return fmt.Errorf("failed to record user message: %w", err)
	}

	assistant := &models.Message{
		Role:              models.RoleAssistant,
		Text:              response.Message,
		RetrievedChunkIDs: retrieval.Prompt.SourceChunkIDs,
		Outcome:           response.Outcome,
	}
	if err := s.conversations.Append(recordCtx, req.SessionID, assistant); err != nil {
		return fmt.Errorf("failed to record assistant message: %w", err)
	}
	return nil
}

func (s *ChatService) sources(chunks []RetrievedChunk) []models.Source {
	sources := make([]models.Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, models.Source{
			ChunkID:    c.Chunk.ID,
			DocumentID: c.Chunk.DocumentID,
			Filename:   c.Filename,
			Snippet:    snippet(c.Chunk.Text, s.snippetLength),
			Score:      c.Score,
		})
	}
	return sources
}

// GetHistory returns every message of the session in order
func (s *ChatService) GetHistory(ctx context.Context, sessionID string) ([]*models.Message, error) {
	return s.conversations.Messages(ctx, sessionID)
}

// ClearHistory deletes the session and its messages
func (s *ChatService) ClearHistory(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	return s.conversations.Clear(ctx, sessionID)
}

// ExportTranscript renders the session history as a PDF
func (s *ChatService) ExportTranscript(ctx context.Context, sessionID string) ([]byte, error) {
	return s.conversations.ExportPDF(ctx, sessionID)
}

// Health reports the generative backend state
func (s *ChatService) Health() models.BackendHealth {
	return s.backend.Health()
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

// Store implements interfaces.ConversationStore over session storage
type Store struct {
	storage  interfaces.SessionStorage
	maxTurns int
	logger   arbor.ILogger

	locks common.KeyedMutex
}

// Compile-time assertion
var _ interfaces.ConversationStore = (*Store)(nil)

// NewStore creates a conversation store. History never considers more than maxTurns turns (0 = unlimited).
func NewStore(storage interfaces.SessionStorage, maxTurns int, logger arbor.ILogger) *Store {
	return &Store{
		storage:  storage,
		maxTurns: maxTurns,
		logger:   logger,
	}
}

func (s *Store) CreateSession(ctx context.Context) (*models.Session, error) {
	session := &models.Session{ID: common.NewSessionID()}
	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("session_id", session.ID).Msg("Session created")
	return session, nil
}

func (s *Store) EnsureSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.storage.GetSession(ctx, id)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	session = &models.Session{ID: id}
	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("session_id", id).Msg("Session created on first message")
	return session, nil
}

func (s *Store) Append(ctx context.Context, sessionID string, msg *models.Message) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.storage.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = common.NewMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.SessionID = sessionID
	msg.Seq = session.LastSeq + 1

	if err := s.storage.AppendMessage(ctx, msg); err != nil {
		return err
	}
	session.LastSeq = msg.Seq

	return s.storage.SaveSession(ctx, session)
}

// History returns the most recent whole turns that fit budget, oldest first.
// A turn is a user message with the replies that follow it.
func (s *Store) History(ctx context.Context, sessionID string, budget int) ([]models.Message, error) {
	messages, err := s.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turns := groupTurns(messages)
	if s.maxTurns > 0 && len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	if len(turns) == 0 {
		return []models.Message{}, nil
	}

	// The most recent turn is kept whatever its size
	first := len(turns) - 1
	used := turns[first].size()
	for first > 0 {
		next := turns[first-1].size()
		if used+next > budget {
			break
		}
		used += next
		first--
	}

	var history []models.Message
	for _, t := range turns[first:] {
		history = append(history, t.messages...)
	}
	return history, nil
}

func (s *Store) Messages(ctx context.Context, sessionID string) ([]*models.Message, error) {
	if _, err := s.storage.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.storage.GetMessages(ctx, sessionID)
}

// Clear removes the session and its messages
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if _, err := s.storage.GetSession(ctx, sessionID); err != nil {
		return err
	}

	if err := s.storage.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", sessionID, err)
	}

	s.logger.Info().Str("session_id", sessionID).Msg("Session history cleared")
	return nil
}

type turn struct {
	messages []models.Message
}

func (t turn) size() int {
	n := 0
	for _, m := range t.messages {
		n += m.SerializedSize()
	}
	return n
}

func groupTurns(messages []*models.Message) []turn {
	var turns []turn
	for _, m := range messages {
		if m.Role == models.RoleUser || len(turns) == 0 {
			turns = append(turns, turn{})
		}
		last := &turns[len(turns)-1]
		last.messages = append(last.messages, *m)
	}
	return turns
}

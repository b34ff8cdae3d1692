package models

import "time"

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnOutcome records how an assistant reply was produced
type TurnOutcome string

const (
	TurnOutcomeSuccess  TurnOutcome = "success"
	TurnOutcomeFallback TurnOutcome = "fallback"
)

// Session is a chat conversation
type Session struct {
	ID        string    `json:"id"`
	LastSeq   int       `json:"last_seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one entry in a session's append-only log
type Message struct {
	ID                string      `json:"id"`
	SessionID         string      `json:"session_id" badgerhold:"index"`
	Seq               int         `json:"seq"`
	Role              Role        `json:"role"`
	Text              string      `json:"text"`
	CreatedAt         time.Time   `json:"created_at"`
	RetrievedChunkIDs []string    `json:"retrieved_chunk_ids,omitempty"`
	Outcome           TurnOutcome `json:"outcome,omitempty"`
}

// SerializedSize is the character count the message occupies in a prompt ("role: text\n")
func (m Message) SerializedSize() int {
	return len([]rune(string(m.Role))) + 2 + len([]rune(m.Text)) + 1
}

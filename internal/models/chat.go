package models

// ChatRequest is a single user turn
type ChatRequest struct {
	SessionID   string   `json:"session_id" validate:"required,max=128"`
	Message     string   `json:"message" validate:"required,max=2000"`
	DocumentIDs []string `json:"document_ids,omitempty" validate:"omitempty,dive,required"`
}

// Source is a retrieved chunk cited by a reply
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename,omitempty"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// ChatResponse is the resolved outcome of a turn
type ChatResponse struct {
	SessionID   string      `json:"session_id"`
	Message     string      `json:"message"`
	Sources     []Source    `json:"sources"`
	Suggestions []string    `json:"suggestions"`
	Outcome     TurnOutcome `json:"outcome"`
}

// Prompt is the assembled input for the generative backend
type Prompt struct {
	System         string    `json:"system"`
	Context        string    `json:"context"`
	History        []Message `json:"history"`
	Query          string    `json:"query"`
	SourceChunkIDs []string  `json:"source_chunk_ids"`
}

// TurnState is a step of the chat-turn state machine
type TurnState string

const (
	TurnReceived   TurnState = "received"
	TurnEmbedding  TurnState = "embedding"
	TurnRetrieving TurnState = "retrieving"
	TurnGenerating TurnState = "generating"
	TurnSuccess    TurnState = "success"
	TurnFallback   TurnState = "fallback"
	TurnRecorded   TurnState = "recorded"
)

package models

import "time"

// GenerationStatus tags the outcome of a backend call
type GenerationStatus string

const (
	GenerationSuccess       GenerationStatus = "success"
	GenerationQuotaExceeded GenerationStatus = "quota_exceeded"
	GenerationTransient     GenerationStatus = "transient"
	GenerationFatal         GenerationStatus = "fatal"
	GenerationCircuitOpen   GenerationStatus = "circuit_open"
)

// GenerationResult is the tagged result of a backend call.
// Text is set only for GenerationSuccess; Err carries the last failure otherwise.
type GenerationResult struct {
	Status   GenerationStatus
	Text     string
	Attempts int
	Err      error
}

// OK reports whether generation succeeded
func (r *GenerationResult) OK() bool {
	return r != nil && r.Status == GenerationSuccess
}

// BackendHealth is a snapshot of the generative backend
type BackendHealth struct {
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	BreakerState     string    `json:"breaker_state"`
	ConsecutiveQuota int       `json:"consecutive_quota_errors"`
	OpenUntil        time.Time `json:"open_until,omitempty"`
	LastStatus       string    `json:"last_status,omitempty"`
}

// FallbackAnswer is a deterministic reply produced without the backend
type FallbackAnswer struct {
	Topic       string   `json:"topic"`
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions"`
}

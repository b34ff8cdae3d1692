package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// Provider makes a single generation call. Retry, rate limiting and
// circuit breaking are the Backend's job.
type Provider interface {
	Generate(ctx context.Context, prompt *models.Prompt) (string, error)
	Type() ProviderType
	Model() string
	Close() error
}

// promptMessage is a provider-agnostic conversation entry
type promptMessage struct {
	Role models.Role
	Text string
}

// NewProvider creates the provider selected by llm.default_provider
func NewProvider(ctx context.Context, config *common.Config, logger arbor.ILogger) (Provider, error) {
	switch config.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return NewClaudeProvider(config.Claude, logger)
	case common.LLMProviderGemini, "":
		return NewGeminiProvider(ctx, config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.LLM.DefaultProvider)
	}
}

// convertPrompt flattens a prompt into alternating history messages followed by
// the current question. Retrieved context travels with the question.
func convertPrompt(prompt *models.Prompt) ([]promptMessage, string, error) {
	if prompt == nil || strings.TrimSpace(prompt.Query) == "" {
		return nil, "", fmt.Errorf("%w: prompt has no query", common.ErrFatal)
	}

	messages := make([]promptMessage, 0, len(prompt.History)+1)
	for _, msg := range prompt.History {
		role := msg.Role
		if role != models.RoleAssistant {
			role = models.RoleUser
		}
		// Consecutive same-role entries are merged; both APIs expect alternation
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Text += "\n\n" + msg.Text
			continue
		}
		messages = append(messages, promptMessage{Role: role, Text: msg.Text})
	}

	var question strings.Builder
	if prompt.Context != "" {
		question.WriteString("Context from the user's documents:\n")
		question.WriteString(prompt.Context)
		question.WriteString("\n\nQuestion: ")
	}
	question.WriteString(prompt.Query)

	if n := len(messages); n > 0 && messages[n-1].Role == models.RoleUser {
		messages[n-1].Text += "\n\n" + question.String()
	} else {
		messages = append(messages, promptMessage{Role: models.RoleUser, Text: question.String()})
	}

	// Both APIs require the conversation to open with the user
	if messages[0].Role != models.RoleUser {
		messages = messages[1:]
	}

	return messages, prompt.System, nil
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
)

// ClaudeProvider generates replies with Anthropic Claude
type ClaudeProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	logger      arbor.ILogger
}

var _ Provider = (*ClaudeProvider)(nil)

// NewClaudeProvider creates a Claude chat provider
func NewClaudeProvider(config common.ClaudeConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude (set ANTHROPIC_API_KEY, ADVISOR_CLAUDE_API_KEY or claude.api_key in config)")
	}

	model := config.Model
	if model == "" {
		model = "claude-haiku-3-5-20241022"
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	// The SDK retries on its own by default; the backend owns retry policy
	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	)

	logger.Debug().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Float32("temperature", config.Temperature).
		Msg("Claude chat provider initialized")

	return &ClaudeProvider{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: config.Temperature,
		logger:      logger,
	}, nil
}

// convertMessagesToClaude maps prompt messages to Claude message params
func convertMessagesToClaude(messages []promptMessage) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text)))
		} else {
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))
		}
	}
	return params
}

func (p *ClaudeProvider) Generate(ctx context.Context, prompt *models.Prompt) (string, error) {
	messages, systemText, err := convertPrompt(prompt)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages:  convertMessagesToClaude(messages),
	}
	if p.temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	startTime := time.Now()
	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: no response generated from Claude API", common.ErrTransient)
	}

	p.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", text.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude completion finished")

	return text.String(), nil
}

func (p *ClaudeProvider) Type() ProviderType { return ProviderClaude }

func (p *ClaudeProvider) Model() string { return p.model }

func (p *ClaudeProvider) Close() error { return nil }

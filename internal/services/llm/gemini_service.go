package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiProvider generates replies with Google Gemini
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      arbor.ILogger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini chat provider
func NewGeminiProvider(ctx context.Context, config common.GeminiConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set ADVISOR_GEMINI_API_KEY, GOOGLE_API_KEY or gemini.api_key in config)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	logger.Debug().
		Str("model", model).
		Float32("temperature", config.Temperature).
		Msg("Gemini chat provider initialized")

	return &GeminiProvider{
		client:      client,
		model:       model,
		temperature: config.Temperature,
		logger:      logger,
	}, nil
}

// convertMessagesToGemini maps prompt messages to Gemini contents
func convertMessagesToGemini(messages []promptMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Text)},
		})
	}
	return contents
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt *models.Prompt) (string, error) {
	messages, systemText, err := convertPrompt(prompt)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	if p.temperature > 0 {
		config.Temperature = genai.Ptr(p.temperature)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	startTime := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, convertMessagesToGemini(messages), config)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response from Gemini API", common.ErrTransient)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty text in Gemini response", common.ErrTransient)
	}

	p.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini completion finished")

	return text, nil
}

func (p *GeminiProvider) Type() ProviderType { return ProviderGemini }

func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}

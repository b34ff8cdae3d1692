package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiProvider generates embeddings through the Gemini API
type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
	timeout   time.Duration
	logger    arbor.ILogger
}

// Compile-time assertion
var _ interfaces.EmbeddingProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini embedding provider
func NewGeminiProvider(ctx context.Context, gemini common.GeminiConfig, embedding common.EmbeddingConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if gemini.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for embeddings (set ADVISOR_GEMINI_API_KEY or gemini.api_key)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Info().
		Str("embed_model", embedding.Model).
		Int("embed_dimension", embedding.Dimension).
		Msg("Gemini embedding provider initialized")

	return &GeminiProvider{
		client:    client,
		model:     embedding.Model,
		dimension: embedding.Dimension,
		timeout:   common.ParseDurationOr(gemini.Timeout, 60*time.Second),
		logger:    logger,
	}, nil
}

// Embed sends all texts in a single EmbedContent request
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	outputDim := int32(p.dimension)
	result, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings from API", len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		if e == nil || len(e.Values) != p.dimension {
			return nil, fmt.Errorf("%w: embedding %d has unexpected dimension", common.ErrDimensionMismatch, i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Model returns the embedding model version
func (p *GeminiProvider) Model() string {
	return p.model
}

// Dimension returns the embedding dimension
func (p *GeminiProvider) Dimension() int {
	return p.dimension
}

package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and a sanitized configuration summary
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Advisor", GetVersion())

	logger.Info().
		Str("environment", config.Environment).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Bool("gemini_key_set", config.Gemini.APIKey != "").
		Bool("claude_key_set", config.Claude.APIKey != "").
		Str("embedding_provider", config.Embedding.Provider).
		Int("embedding_dimension", config.Embedding.Dimension).
		Int("chunk_size", config.Ingestion.ChunkSize).
		Int("chunk_overlap", config.Ingestion.ChunkOverlap).
		Int("top_k", config.Retrieval.TopK).
		Str("storage_path", config.Storage.Badger.Path).
		Msg("Configuration loaded")
}

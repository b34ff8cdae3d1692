package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_Validates(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "characters", cfg.Ingestion.ChunkUnit)
	assert.Equal(t, int64(10*1024*1024), cfg.Ingestion.MaxFileSize)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoadFromFiles_LaterFileOverrides(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[ingestion]
chunk_size = 400
chunk_overlap = 50

[retrieval]
top_k = 3
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[retrieval]
top_k = 7
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 50, cfg.Ingestion.ChunkOverlap)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	t.Setenv("ADVISOR_SERVER_PORT", "9191")
	t.Setenv("ADVISOR_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"token chunk unit", func(c *Config) { c.Ingestion.ChunkUnit = "tokens" }},
		{"overlap equals size", func(c *Config) { c.Ingestion.ChunkOverlap = c.Ingestion.ChunkSize }},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"unknown similarity", func(c *Config) { c.Retrieval.Similarity = "dot" }},
		{"unknown provider", func(c *Config) { c.LLM.DefaultProvider = "openai" }},
		{"bad cooldown", func(c *Config) { c.Generation.BreakerCooldown = "soon" }},
		{"bad schedule", func(c *Config) { c.Maintenance.Schedule = "every hour" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, "5s", ParseDurationOr("5s", 0).String())
	assert.Equal(t, "1m0s", ParseDurationOr("", 60e9).String())
	assert.Equal(t, "1m0s", ParseDurationOr("nope", 60e9).String())
}

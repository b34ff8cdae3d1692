package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Claude      ClaudeConfig      `toml:"claude"`
	LLM         LLMConfig         `toml:"llm"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Ingestion   IngestionConfig   `toml:"ingestion"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Generation  GenerationConfig  `toml:"generation"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// GeminiConfig contains Google Gemini API configuration for chat and embeddings
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // Chat model (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Per-attempt timeout (default: "60s")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between requests (default: "1s")
	Temperature float32 `toml:"temperature"` // Chat completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the generative provider
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider   string `toml:"provider"`    // "gemini" or "hash" (offline, deterministic)
	Model      string `toml:"model"`       // Model version recorded in the index metadata
	Dimension  int    `toml:"dimension"`   // Fixed vector dimension
	BatchSize  int    `toml:"batch_size"`  // Texts per embedding request
	CacheItems int64  `toml:"cache_items"` // Query embedding cache capacity (0 disables)
}

// IngestionConfig controls extraction and chunking
type IngestionConfig struct {
	MaxFileSize   int64    `toml:"max_file_size"`  // Raw byte ceiling checked before extraction
	ChunkUnit     string   `toml:"chunk_unit"`     // Only "characters" is supported
	ChunkSize     int      `toml:"chunk_size"`     // Window size in characters
	ChunkOverlap  int      `toml:"chunk_overlap"`  // Characters shared by consecutive chunks
	SnapTolerance int      `toml:"snap_tolerance"` // How far back a window end may move to a break
	AllowedTypes  []string `toml:"allowed_types"`
	Workers       int      `toml:"workers"` // Concurrent background ingestion tasks
}

// RetrievalConfig controls vector search
type RetrievalConfig struct {
	TopK          int     `toml:"top_k"`
	MinSimilarity float64 `toml:"min_similarity"`
	Similarity    string  `toml:"similarity"` // "cosine" or "euclidean"
	SnippetLength int     `toml:"snippet_length"`
}

// GenerationConfig controls prompt assembly, retry and circuit breaking
type GenerationConfig struct {
	PromptBudget      int     `toml:"prompt_budget"`   // Characters available for the whole prompt
	HistoryTurns      int     `toml:"history_turns"`   // Upper bound on turns considered for history
	MaxMessageLen     int     `toml:"max_message_len"` // Maximum chat message length in characters
	MaxRetries        int     `toml:"max_retries"`
	InitialBackoff    string  `toml:"initial_backoff"`
	MaxBackoff        string  `toml:"max_backoff"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	BreakerThreshold  int     `toml:"breaker_threshold"` // Consecutive quota errors before opening
	BreakerWindow     string  `toml:"breaker_window"`    // Rolling window for the threshold
	BreakerCooldown   string  `toml:"breaker_cooldown"`  // How long the breaker stays open
}

// MaintenanceConfig controls the scheduled index consistency audit
type MaintenanceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule with seconds field
	Repair   bool   `toml:"repair"`   // Remove ghost vectors found by the audit
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "60s",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   2048,
			Timeout:     "60s",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Embedding: EmbeddingConfig{
			Provider:   "gemini",
			Model:      "text-embedding-004",
			Dimension:  768,
			BatchSize:  50,
			CacheItems: 1000,
		},
		Ingestion: IngestionConfig{
			MaxFileSize:   10 * 1024 * 1024, // 10MB
			ChunkUnit:     "characters",
			ChunkSize:     1000,
			ChunkOverlap:  200,
			SnapTolerance: 100,
			AllowedTypes:  []string{"pdf", "docx", "xlsx", "xls", "txt", "md", "html"},
			Workers:       2,
		},
		Retrieval: RetrievalConfig{
			TopK:          5,
			MinSimilarity: 0.3,
			Similarity:    "cosine",
			SnippetLength: 200,
		},
		Generation: GenerationConfig{
			PromptBudget:      12000,
			HistoryTurns:      10,
			MaxMessageLen:     2000,
			MaxRetries:        3,
			InitialBackoff:    "1s",
			MaxBackoff:        "30s",
			BackoffMultiplier: 2.0,
			BreakerThreshold:  3,
			BreakerWindow:     "5m",
			BreakerCooldown:   "2m",
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Schedule: "0 0 * * * *", // Hourly
			Repair:   false,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ADVISOR_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("ADVISOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ADVISOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("ADVISOR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("ADVISOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ADVISOR_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Provider keys. GOOGLE_API_KEY and ANTHROPIC_API_KEY are honoured as the SDK defaults.
	if key := firstEnv("ADVISOR_GEMINI_API_KEY", "GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if model := os.Getenv("ADVISOR_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if key := firstEnv("ADVISOR_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("ADVISOR_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if provider := os.Getenv("ADVISOR_EMBEDDING_PROVIDER"); provider != "" {
		config.Embedding.Provider = strings.ToLower(provider)
	}

	// Retrieval tuning
	if topK := os.Getenv("ADVISOR_RETRIEVAL_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = k
		}
	}
	if minSim := os.Getenv("ADVISOR_RETRIEVAL_MIN_SIMILARITY"); minSim != "" {
		if v, err := strconv.ParseFloat(minSim, 64); err == nil {
			config.Retrieval.MinSimilarity = v
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks cross-field constraints that TOML decoding cannot express
func (c *Config) Validate() error {
	in := c.Ingestion
	if in.ChunkUnit != "characters" {
		return fmt.Errorf("ingestion.chunk_unit %q is not supported (only \"characters\")", in.ChunkUnit)
	}
	if in.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunk_size must be positive, got %d", in.ChunkSize)
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		return fmt.Errorf("ingestion.chunk_overlap must be in [0, chunk_size), got %d", in.ChunkOverlap)
	}
	if in.SnapTolerance < 0 {
		return fmt.Errorf("ingestion.snap_tolerance must not be negative, got %d", in.SnapTolerance)
	}
	if in.MaxFileSize <= 0 {
		return fmt.Errorf("ingestion.max_file_size must be positive, got %d", in.MaxFileSize)
	}

	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	switch c.Embedding.Provider {
	case "gemini", "hash":
	default:
		return fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider)
	}

	switch c.Retrieval.Similarity {
	case "cosine", "euclidean":
	default:
		return fmt.Errorf("retrieval.similarity %q is not supported", c.Retrieval.Similarity)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}

	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("llm.default_provider %q is not supported", c.LLM.DefaultProvider)
	}

	g := c.Generation
	if g.BreakerThreshold <= 0 {
		return fmt.Errorf("generation.breaker_threshold must be positive, got %d", g.BreakerThreshold)
	}
	for name, value := range map[string]string{
		"generation.initial_backoff":  g.InitialBackoff,
		"generation.max_backoff":      g.MaxBackoff,
		"generation.breaker_window":   g.BreakerWindow,
		"generation.breaker_cooldown": g.BreakerCooldown,
		"gemini.timeout":              c.Gemini.Timeout,
		"claude.timeout":              c.Claude.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", name, value, err)
		}
	}

	if c.Maintenance.Enabled {
		if err := ValidateSchedule(c.Maintenance.Schedule); err != nil {
			return fmt.Errorf("maintenance.schedule: %w", err)
		}
	}

	return nil
}

// ValidateSchedule validates a six-field cron expression (seconds first)
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ParseDurationOr parses a duration string and returns fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MACHICHAT_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: MACHICHAT_PROVIDER -> provider, etc.
	if err := k.Load(env.Provider("MACHICHAT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "MACHICHAT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of openai, ollama", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("retrieval.similarity_threshold must be between 0 and 1")
	}
	if c.Retrieval.MaxRetries < 0 {
		return fmt.Errorf("retrieval.max_retries must be non-negative")
	}

	if c.Chat.ContextBudget <= 0 {
		return fmt.Errorf("chat.context_budget must be positive")
	}
	if c.Chat.HistoryLimit < 0 {
		return fmt.Errorf("chat.history_limit must be non-negative")
	}
	if c.Chat.TurnTimeoutSec <= 0 {
		return fmt.Errorf("chat.turn_timeout_sec must be positive")
	}
	if c.Chat.MaxAttempts < 1 {
		return fmt.Errorf("chat.max_attempts must be at least 1")
	}

	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive")
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider. Ollama needs no key.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load with no file should use defaults: %v", err)
	}

	if cfg.Provider != ProviderOpenAI {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.SimilarityThreshold != 0.7 {
		t.Errorf("threshold = %v", cfg.Retrieval.SimilarityThreshold)
	}
	if cfg.Ingest.ChunkSize != 500 {
		t.Errorf("chunk_size = %d", cfg.Ingest.ChunkSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".machichat.yml")
	content := "provider: ollama\nmodel: llama3.1\nretrieval:\n  top_k: 5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOllama {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.Model != "llama3.1" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	// Unset keys keep their defaults.
	if cfg.Chat.ContextBudget != 2000 {
		t.Errorf("context_budget = %d", cfg.Chat.ContextBudget)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MACHICHAT_MODEL", "gpt-4o")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("env override ignored: model = %q", cfg.Model)
	}
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".machichat.yml")

	cfg := DefaultConfig()
	cfg.Model = "gpt-4o"
	cfg.Server.Port = 9000
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "gpt-4o" || loaded.Server.Port != 9000 {
		t.Errorf("roundtrip lost values: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.Provider = "invalid" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"threshold above one", func(c *Config) { c.Retrieval.SimilarityThreshold = 1.5 }},
		{"zero context budget", func(c *Config) { c.Chat.ContextBudget = 0 }},
		{"zero turn timeout", func(c *Config) { c.Chat.TurnTimeoutSec = 0 }},
		{"zero max attempts", func(c *Config) { c.Chat.MaxAttempts = 0 }},
		{"zero chunk size", func(c *Config) { c.Ingest.ChunkSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

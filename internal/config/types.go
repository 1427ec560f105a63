package config

// ProviderType identifies a language-generation provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level machichat configuration, corresponding to .machichat.yml.
type Config struct {
	Provider       ProviderType `yaml:"provider" koanf:"provider"`
	Model          string       `yaml:"model" koanf:"model"`
	EmbeddingModel string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir        string       `yaml:"data_dir" koanf:"data_dir"`

	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Chat      ChatConfig      `yaml:"chat" koanf:"chat"`
	Ingest    IngestConfig    `yaml:"ingest" koanf:"ingest"`
}

// ServerConfig holds the HTTP boundary settings for the UI layer.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// RetrievalConfig parameterizes the similarity search step.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k" koanf:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" koanf:"similarity_threshold"`
	MaxRetries          int     `yaml:"max_retries" koanf:"max_retries"`
}

// ChatConfig parameterizes prompt construction and answer generation.
type ChatConfig struct {
	ContextBudget     int     `yaml:"context_budget" koanf:"context_budget"`
	HistoryLimit      int     `yaml:"history_limit" koanf:"history_limit"`
	TurnTimeoutSec    int     `yaml:"turn_timeout_sec" koanf:"turn_timeout_sec"`
	MaxAttempts       int     `yaml:"max_attempts" koanf:"max_attempts"`
	Temperature       float64 `yaml:"temperature" koanf:"temperature"`
	RequestsPerMinute int     `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// IngestConfig parameterizes the document upload pipeline.
type IngestConfig struct {
	ChunkSize int      `yaml:"chunk_size" koanf:"chunk_size"`
	BatchSize int      `yaml:"batch_size" koanf:"batch_size"`
	Exclude   []string `yaml:"exclude" koanf:"exclude"`
}

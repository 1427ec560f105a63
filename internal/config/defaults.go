package config

// DefaultConfig returns the configuration used when no .machichat.yml exists.
// Retrieval defaults (top-k 10, threshold 0.7) and the 500-character chunk
// size follow the values the document corpus was tuned with.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderOpenAI,
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		DataDir:        ".machichat",
		Server: ServerConfig{
			Port: 8720,
		},
		Retrieval: RetrievalConfig{
			TopK:                10,
			SimilarityThreshold: 0.7,
			MaxRetries:          3,
		},
		Chat: ChatConfig{
			ContextBudget:     2000,
			HistoryLimit:      10,
			TurnTimeoutSec:    60,
			MaxAttempts:       3,
			Temperature:       0.7,
			RequestsPerMinute: 60,
		},
		Ingest: IngestConfig{
			ChunkSize: 500,
			BatchSize: 100,
		},
	}
}

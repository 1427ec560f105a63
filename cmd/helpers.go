package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ymatsuda/machichat/internal/chat"
	"github.com/ymatsuda/machichat/internal/config"
	"github.com/ymatsuda/machichat/internal/db"
	"github.com/ymatsuda/machichat/internal/embeddings"
	"github.com/ymatsuda/machichat/internal/llm"
	"github.com/ymatsuda/machichat/internal/property"
	"github.com/ymatsuda/machichat/internal/retrieval"
	"github.com/ymatsuda/machichat/internal/store"
	"github.com/ymatsuda/machichat/internal/vectordb"
)

// loadConfig loads and validates the config, providing a friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `machichat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildEmbedder creates the embedder used for both ingest and search.
func buildEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for embeddings")
	}
	return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
}

// openVectorStore creates the vector store and loads the persisted
// snapshot if one exists. A missing snapshot is not fatal; the store
// just starts empty.
func openVectorStore(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) *vectordb.Store {
	vs := vectordb.NewStore(embedder)
	if err := vs.Load(ctx, cfg.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load vector store from %s: %v\n", cfg.DataDir, err)
		fmt.Fprintf(os.Stderr, "Run `machichat ingest` to populate the knowledge base.\n")
	}
	return vs
}

// buildProvider creates the generation provider with client-side rate
// limiting applied.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.Chat.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.Chat.RequestsPerMinute)
	}
	return provider, nil
}

// app bundles the wired collaborators behind the chat commands.
type app struct {
	cfg        *config.Config
	database   *db.DB
	store      *store.Store
	vectors    *vectordb.Store
	properties *property.Service
	templates  *chat.TemplateStore
	pipeline   *chat.Pipeline
}

// buildApp wires the full pipeline from the configuration.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	vectors := openVectorStore(ctx, cfg, embedder)

	database, err := db.Open(filepath.Join(cfg.DataDir, "machichat.db"))
	if err != nil {
		return nil, err
	}

	templates, err := chat.NewTemplateStore(filepath.Join(cfg.DataDir, "prompt_templates.json"))
	if err != nil {
		database.Close()
		return nil, err
	}

	convStore := store.New(database)
	retriever := retrieval.New(vectors, cfg.Retrieval)
	generator := chat.NewGenerator(provider, cfg.Model, cfg.Chat)

	return &app{
		cfg:        cfg,
		database:   database,
		store:      convStore,
		vectors:    vectors,
		properties: property.NewService(vectors),
		templates:  templates,
		pipeline:   chat.NewPipeline(retriever, generator, convStore, templates, cfg.Chat),
	}, nil
}

func (a *app) Close() error {
	return a.database.Close()
}

package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/ymatsuda/machichat/internal/config"
	"github.com/ymatsuda/machichat/internal/llm"
)

const generationMaxTokens = 2048

// Generator calls the language-generation capability with a bounded
// retry policy: rate limits back off exponentially up to the attempt
// budget, a timeout is retried exactly once, and auth failures or
// invalid output are never retried.
type Generator struct {
	provider    llm.Provider
	model       string
	temperature float64
	maxAttempts int
	baseDelay   time.Duration
}

// NewGenerator creates a Generator from the chat configuration.
func NewGenerator(provider llm.Provider, model string, cfg config.ChatConfig) *Generator {
	return &Generator{
		provider:    provider,
		model:       model,
		temperature: cfg.Temperature,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   time.Second,
	}
}

// Generate sends the payload and returns the raw generated text or a
// typed failure (ErrAuth, ErrGenerationUnavailable, ErrInvalidResponse).
func (g *Generator) Generate(ctx context.Context, payload PromptPayload) (string, error) {
	attempt := 0
	timeoutRetried := false

	for {
		attempt++

		resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
			Model:       g.model,
			Messages:    payload.Messages,
			MaxTokens:   generationMaxTokens,
			Temperature: g.temperature,
		})
		if err == nil {
			if strings.TrimSpace(resp.Content) == "" {
				return "", ErrInvalidResponse
			}
			return resp.Content, nil
		}

		// The end-to-end turn deadline always wins over retry policy.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		switch llm.Classify(err) {
		case llm.KindAuth:
			log.Printf("chat: provider rejected credentials: %v", err)
			return "", ErrAuth

		case llm.KindRateLimited:
			if attempt >= g.maxAttempts {
				log.Printf("chat: rate limited after %d attempts: %v", attempt, err)
				return "", ErrGenerationUnavailable
			}
			delay := g.baseDelay << (attempt - 1)
			log.Printf("chat: rate limited, retrying in %s (attempt %d/%d)", delay, attempt, g.maxAttempts)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}

		case llm.KindTimeout:
			if timeoutRetried || attempt >= g.maxAttempts {
				log.Printf("chat: generation timed out: %v", err)
				return "", ErrGenerationUnavailable
			}
			timeoutRetried = true
			log.Printf("chat: generation timed out, retrying once")

		default:
			log.Printf("chat: generation failed: %v", err)
			return "", ErrGenerationUnavailable
		}
	}
}

// Package retrieval wraps the vector store's similarity search with the
// policies the answer pipeline needs: intent-biased filtering, a
// similarity threshold, and bounded retries. A failed retrieval never
// fails a turn; callers receive ErrUnavailable and degrade to answering
// from conversation history alone.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ymatsuda/machichat/internal/classifier"
	"github.com/ymatsuda/machichat/internal/config"
	"github.com/ymatsuda/machichat/internal/vectordb"
)

// ErrUnavailable is returned when the search capability stays unreachable
// after all retries. The passage slice returned alongside is empty.
var ErrUnavailable = errors.New("document search is unavailable")

// Passage is one retrieved text snippet with its similarity score.
type Passage struct {
	ID       string
	Content  string
	Score    float32
	Metadata vectordb.Metadata
}

// Searcher is the similarity-search capability the retriever delegates to.
// *vectordb.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, ns vectordb.Namespace, query string, limit int, filter *vectordb.SearchFilter) ([]vectordb.SearchResult, error)
}

// Retriever runs similarity searches with retry and threshold policies.
type Retriever struct {
	store     Searcher
	topK      int
	threshold float32
	retries   int
	baseDelay time.Duration
}

// New creates a Retriever from the retrieval configuration.
func New(store Searcher, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{
		store:     store,
		topK:      cfg.TopK,
		threshold: float32(cfg.SimilarityThreshold),
		retries:   cfg.MaxRetries,
		baseDelay: time.Second,
	}
}

// Retrieve returns up to topK passages relevant to the query, biased by
// the question intent. It over-fetches 2x candidates, drops everything
// below the similarity threshold and caps the remainder at topK.
func (r *Retriever) Retrieve(ctx context.Context, query string, intent classifier.Intent) ([]Passage, error) {
	var filter *vectordb.SearchFilter
	if category := intent.Category(); category != "" {
		filter = &vectordb.SearchFilter{Category: category}
	}

	results, err := r.searchWithRetry(ctx, query, filter)
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, 0, r.topK)
	for _, res := range results {
		if res.Similarity < r.threshold {
			continue
		}
		passages = append(passages, Passage{
			ID:       res.Document.ID,
			Content:  res.Document.Content,
			Score:    res.Similarity,
			Metadata: res.Document.Metadata,
		})
		if len(passages) == r.topK {
			break
		}
	}

	return passages, nil
}

// searchWithRetry calls the search capability with doubling backoff.
func (r *Retriever) searchWithRetry(ctx context.Context, query string, filter *vectordb.SearchFilter) ([]vectordb.SearchResult, error) {
	delay := r.baseDelay
	attempts := r.retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		results, err := r.store.Search(ctx, vectordb.NamespaceDocuments, query, r.topK*2, filter)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == attempts {
			break
		}

		log.Printf("retrieval: search attempt %d/%d failed: %v", attempt, attempts, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

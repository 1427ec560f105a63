package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ymatsuda/machichat/internal/classifier"
	"github.com/ymatsuda/machichat/internal/config"
	"github.com/ymatsuda/machichat/internal/vectordb"
)

// stubSearcher counts calls and fails a configurable number of times
// before succeeding.
type stubSearcher struct {
	results    []vectordb.SearchResult
	failures   int
	calls      int
	lastFilter *vectordb.SearchFilter
	lastLimit  int
}

func (s *stubSearcher) Search(ctx context.Context, ns vectordb.Namespace, query string, limit int, filter *vectordb.SearchFilter) ([]vectordb.SearchResult, error) {
	s.calls++
	s.lastFilter = filter
	s.lastLimit = limit
	if s.calls <= s.failures {
		return nil, errors.New("transient search failure")
	}
	return s.results, nil
}

func newTestRetriever(searcher *stubSearcher, topK int, threshold float64, retries int) *Retriever {
	r := New(searcher, config.RetrievalConfig{
		TopK:                topK,
		SimilarityThreshold: threshold,
		MaxRetries:          retries,
	})
	r.baseDelay = time.Millisecond
	return r
}

func result(id string, score float32) vectordb.SearchResult {
	return vectordb.SearchResult{
		Document:   vectordb.Document{ID: id, Content: "本文 " + id},
		Similarity: score,
	}
}

func TestRetrieveFiltersBelowThreshold(t *testing.T) {
	searcher := &stubSearcher{results: []vectordb.SearchResult{
		result("a", 0.92),
		result("b", 0.75),
		result("c", 0.65), // below threshold
		result("d", 0.40), // below threshold
	}}
	r := newTestRetriever(searcher, 10, 0.7, 0)

	passages, err := r.Retrieve(context.Background(), "質問", classifier.IntentGeneral)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	for _, p := range passages {
		if p.Score < 0.7 {
			t.Errorf("passage %s below threshold: %.2f", p.ID, p.Score)
		}
	}
}

func TestRetrieveCapsAtTopK(t *testing.T) {
	var results []vectordb.SearchResult
	for i := 0; i < 8; i++ {
		results = append(results, result(string(rune('a'+i)), 0.9))
	}
	searcher := &stubSearcher{results: results}
	r := newTestRetriever(searcher, 3, 0.7, 0)

	passages, err := r.Retrieve(context.Background(), "質問", classifier.IntentGeneral)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) != 3 {
		t.Errorf("expected topK=3 passages, got %d", len(passages))
	}
	// Over-fetch requests 2x topK candidates for threshold filtering.
	if searcher.lastLimit != 6 {
		t.Errorf("search limit = %d, want 6", searcher.lastLimit)
	}
}

func TestRetrieveIntentFilter(t *testing.T) {
	searcher := &stubSearcher{}
	r := newTestRetriever(searcher, 10, 0.7, 0)

	if _, err := r.Retrieve(context.Background(), "小学校は？", classifier.IntentEducation); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if searcher.lastFilter == nil || searcher.lastFilter.Category != "教育・子育て" {
		t.Errorf("expected education category filter, got %+v", searcher.lastFilter)
	}

	if _, err := r.Retrieve(context.Background(), "雰囲気は？", classifier.IntentGeneral); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if searcher.lastFilter != nil {
		t.Errorf("general intent should apply no filter, got %+v", searcher.lastFilter)
	}
}

func TestRetrieveRetriesTransientFailure(t *testing.T) {
	searcher := &stubSearcher{
		failures: 2,
		results:  []vectordb.SearchResult{result("a", 0.9)},
	}
	r := newTestRetriever(searcher, 10, 0.7, 3)

	passages, err := r.Retrieve(context.Background(), "質問", classifier.IntentGeneral)
	if err != nil {
		t.Fatalf("Retrieve should succeed after retries: %v", err)
	}
	if len(passages) != 1 {
		t.Errorf("expected 1 passage, got %d", len(passages))
	}
	if searcher.calls != 3 {
		t.Errorf("expected 3 search calls, got %d", searcher.calls)
	}
}

func TestRetrieveExhaustedRetriesUnavailable(t *testing.T) {
	searcher := &stubSearcher{failures: 100}
	r := newTestRetriever(searcher, 10, 0.7, 2)

	passages, err := r.Retrieve(context.Background(), "質問", classifier.IntentGeneral)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("failed retrieval must return no passages, got %d", len(passages))
	}
	if searcher.calls != 3 {
		t.Errorf("expected retries+1 = 3 calls, got %d", searcher.calls)
	}
}

func TestRetrieveRespectsCancellation(t *testing.T) {
	searcher := &stubSearcher{failures: 100}
	r := newTestRetriever(searcher, 10, 0.7, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Retrieve(ctx, "質問", classifier.IntentGeneral)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

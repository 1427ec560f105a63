package vectordb

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ymatsuda/machichat/internal/embeddings"
)

// Store wraps chromem-go with one collection per namespace.
type Store struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc

	mu          sync.Mutex
	collections map[Namespace]*chromem.Collection
}

// NewStore creates a new in-memory Store backed by the given embedder.
func NewStore(embedder embeddings.Embedder) *Store {
	return &Store{
		db:          chromem.NewDB(),
		embedFunc:   embeddings.ToChromemFunc(embedder),
		collections: make(map[Namespace]*chromem.Collection),
	}
}

func (s *Store) collection(ns Namespace) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[ns]; ok {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection(string(ns), nil, s.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", ns, err)
	}
	s.collections[ns] = col
	return col, nil
}

// AddDocuments upserts the given documents into the namespace.
func (s *Store) AddDocuments(ctx context.Context, ns Namespace, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	col, err := s.collection(ns)
	if err != nil {
		return err
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		}
	}

	return col.AddDocuments(ctx, chromDocs, 1)
}

// Search runs a similarity search over the namespace.
func (s *Store) Search(ctx context.Context, ns Namespace, query string, limit int, filter *SearchFilter) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	col, err := s.collection(ns)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	if count := col.Count(); limit > count && count > 0 {
		limit = count
	} else if count == 0 {
		return nil, nil
	}

	where := buildWhereClause(filter)

	results, err := col.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}

	return searchResults, nil
}

// All returns every document in the namespace. Used for property listings,
// where the collection is small.
func (s *Store) All(ctx context.Context, ns Namespace) ([]Document, error) {
	col, err := s.collection(ns)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	// chromem has no listing API; query with the namespace name as text
	// and the full count as limit to pull everything back.
	results, err := col.Query(ctx, string(ns), count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem list query: %w", err)
	}

	docs := make([]Document, len(results))
	for i, r := range results {
		docs[i] = Document{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: mapToMetadata(r.Metadata),
		}
	}

	return docs, nil
}

// DeleteBySource removes all chunks originating from the given source file.
func (s *Store) DeleteBySource(ctx context.Context, ns Namespace, source string) error {
	col, err := s.collection(ns)
	if err != nil {
		return err
	}
	return col.Delete(ctx, map[string]string{"source": source}, nil)
}

// Persist writes the store to dir as a compressed snapshot.
func (s *Store) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/vectordb.gob.gz", true, "")
}

// Load restores a snapshot previously written by Persist.
func (s *Store) Load(ctx context.Context, dir string) error {
	if err := s.db.ImportFromFile(dir+"/vectordb.gob.gz", ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Drop cached collection handles; they are re-acquired lazily.
	s.mu.Lock()
	s.collections = make(map[Namespace]*chromem.Collection)
	s.mu.Unlock()
	return nil
}

// Count returns the number of documents in the namespace.
func (s *Store) Count(ns Namespace) int {
	col, err := s.collection(ns)
	if err != nil {
		return 0
	}
	return col.Count()
}

// metadataToMap converts Metadata to a flat map[string]string for chromem.
func metadataToMap(m Metadata) map[string]string {
	return map[string]string{
		"source":       m.Source,
		"chunk_id":     strconv.Itoa(m.ChunkID),
		"category":     m.Category,
		"sub_category": m.SubCategory,
		"municipality": m.Municipality,
		"created_at":   m.CreatedAt.Format(time.RFC3339),
	}
}

// mapToMetadata converts a flat map[string]string back to Metadata.
func mapToMetadata(m map[string]string) Metadata {
	chunkID, _ := strconv.Atoi(m["chunk_id"])
	createdAt, _ := time.Parse(time.RFC3339, m["created_at"])

	return Metadata{
		Source:       m["source"],
		ChunkID:      chunkID,
		Category:     m["category"],
		SubCategory:  m["sub_category"],
		Municipality: m["municipality"],
		CreatedAt:    createdAt,
	}
}

// buildWhereClause converts a SearchFilter to a chromem where clause.
func buildWhereClause(filter *SearchFilter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.Category != "" {
		where["category"] = filter.Category
	}
	if filter.Municipality != "" {
		where["municipality"] = filter.Municipality
	}

	if len(where) == 0 {
		return nil
	}
	return where
}

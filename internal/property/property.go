// Package property manages the property-record side of the knowledge
// base. A property record is one document: its first line is the
// property name, its second line the location, and the rest free-form
// description. Records live in their own namespace so general retrieval
// never returns them.
package property

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ymatsuda/machichat/internal/vectordb"
)

// Record is one property as presented to the UI and CLI.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Content  string `json:"content"`
}

// Service reads property records from the vector store.
type Service struct {
	store *vectordb.Store
}

// NewService creates a Service over the given store.
func NewService(store *vectordb.Store) *Service {
	return &Service{store: store}
}

// List returns all property records ordered by name.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	docs, err := s.store.All(ctx, vectordb.NamespaceProperties)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, toRecord(doc))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// Get returns the property record with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	docs, err := s.store.All(ctx, vectordb.NamespaceProperties)
	if err != nil {
		return nil, fmt.Errorf("loading properties: %w", err)
	}

	for _, doc := range docs {
		if doc.ID == id {
			r := toRecord(doc)
			return &r, nil
		}
	}
	return nil, fmt.Errorf("property %q not found", id)
}

// toRecord derives the display fields from the document content. The
// name and location come from the first two non-empty lines.
func toRecord(doc vectordb.Document) Record {
	r := Record{ID: doc.ID, Content: doc.Content}

	for _, line := range strings.Split(doc.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r.Name == "" {
			r.Name = line
			continue
		}
		r.Location = line
		break
	}
	if r.Name == "" {
		r.Name = doc.ID
	}
	return r
}

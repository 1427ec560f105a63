package vectordb

import "time"

// Namespace separates logical document collections within the store.
// Regional documents and property records live in different namespaces
// so that property lookups never mix into general retrieval.
type Namespace string

const (
	NamespaceDocuments  Namespace = "documents"
	NamespaceProperties Namespace = "properties"
)

// Document represents a piece of content to be stored and searched.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Metadata holds structured information about a document chunk.
type Metadata struct {
	Source       string // originating file name
	ChunkID      int
	Category     string // 大カテゴリ (e.g. 教育・子育て)
	SubCategory  string // 中カテゴリ (e.g. 小学校・中学校)
	Municipality string // 市区町村 (e.g. 川越市)
	CreatedAt    time.Time
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// SearchFilter narrows search results by metadata fields.
// Empty fields are not filtered on.
type SearchFilter struct {
	Category     string
	Municipality string
}

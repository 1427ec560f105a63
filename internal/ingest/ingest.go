// Package ingest loads local text files into the vector store: glob
// expansion, encoding detection, sentence-aware chunking and batched
// embedding uploads.
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"

	"github.com/ymatsuda/machichat/internal/config"
	"github.com/ymatsuda/machichat/internal/vectordb"
)

// Reporter receives progress while an ingest run is underway.
type Reporter interface {
	Start(totalFiles int)
	FileDone(path string, chunks int)
	Finish()
}

// Ingestor uploads documents into the vector store.
type Ingestor struct {
	store     *vectordb.Store
	chunkSize int
	batchSize int
	exclude   []string
	reporter  Reporter
}

// DocumentMeta carries the classification metadata applied to every
// chunk of an ingest run.
type DocumentMeta struct {
	Category     string
	SubCategory  string
	Municipality string
}

// New creates an Ingestor from the ingest configuration.
func New(store *vectordb.Store, cfg config.IngestConfig, reporter Reporter) *Ingestor {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Ingestor{
		store:     store,
		chunkSize: cfg.ChunkSize,
		batchSize: cfg.BatchSize,
		exclude:   cfg.Exclude,
		reporter:  reporter,
	}
}

// Result summarizes an ingest run.
type Result struct {
	Files  int
	Chunks int
}

// IngestDocuments chunks and uploads every file matching the patterns
// into the documents namespace. Re-ingesting a file replaces its
// previous chunks.
func (ing *Ingestor) IngestDocuments(ctx context.Context, patterns []string, meta DocumentMeta) (*Result, error) {
	files, err := ing.expand(patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched")
	}

	ing.reporter.Start(len(files))
	defer ing.reporter.Finish()

	result := &Result{}
	for _, path := range files {
		text, err := readText(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		source := filepath.Base(path)
		if err := ing.store.DeleteBySource(ctx, vectordb.NamespaceDocuments, source); err != nil {
			log.Printf("ingest: clearing previous chunks of %s: %v", source, err)
		}

		chunks := chunkText(text, ing.chunkSize)
		docs := make([]vectordb.Document, len(chunks))
		now := time.Now().UTC()
		for i, chunk := range chunks {
			docs[i] = vectordb.Document{
				ID:      chunkID(source, i),
				Content: chunk,
				Metadata: vectordb.Metadata{
					Source:       source,
					ChunkID:      i,
					Category:     meta.Category,
					SubCategory:  meta.SubCategory,
					Municipality: meta.Municipality,
					CreatedAt:    now,
				},
			}
		}

		if err := ing.upload(ctx, vectordb.NamespaceDocuments, docs); err != nil {
			return nil, fmt.Errorf("uploading %s: %w", source, err)
		}

		result.Files++
		result.Chunks += len(chunks)
		ing.reporter.FileDone(path, len(chunks))
	}

	return result, nil
}

// IngestProperties uploads each matching file as a single property
// record. Property files are small and must stay whole so the name and
// location lines survive.
func (ing *Ingestor) IngestProperties(ctx context.Context, patterns []string) (*Result, error) {
	files, err := ing.expand(patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched")
	}

	ing.reporter.Start(len(files))
	defer ing.reporter.Finish()

	result := &Result{}
	now := time.Now().UTC()
	for _, path := range files {
		text, err := readText(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		source := filepath.Base(path)
		id := source[:len(source)-len(filepath.Ext(source))]
		doc := vectordb.Document{
			ID:      id,
			Content: text,
			Metadata: vectordb.Metadata{
				Source:    source,
				CreatedAt: now,
			},
		}

		if err := ing.upload(ctx, vectordb.NamespaceProperties, []vectordb.Document{doc}); err != nil {
			return nil, fmt.Errorf("uploading %s: %w", source, err)
		}

		result.Files++
		result.Chunks++
		ing.reporter.FileDone(path, 1)
	}

	return result, nil
}

// upload sends documents in batches so one oversized run does not hold
// a giant embedding request open.
func (ing *Ingestor) upload(ctx context.Context, ns vectordb.Namespace, docs []vectordb.Document) error {
	batch := ing.batchSize
	if batch <= 0 {
		batch = 100
	}

	for start := 0; start < len(docs); start += batch {
		end := start + batch
		if end > len(docs) {
			end = len(docs)
		}
		if err := ing.store.AddDocuments(ctx, ns, docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// expand resolves glob patterns to a sorted, deduplicated file list,
// applying the configured exclude patterns.
func (ing *Ingestor) expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			if seen[match] || ing.excluded(match) {
				continue
			}
			seen[match] = true
			files = append(files, match)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (ing *Ingestor) excluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range ing.exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// readText loads a file and normalizes it to UTF-8.
func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := decodeText(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// barReporter renders terminal progress during interactive runs.
type barReporter struct {
	bar *progressbar.ProgressBar
}

// NewBarReporter returns a Reporter that draws a terminal progress bar.
func NewBarReporter() Reporter {
	return &barReporter{}
}

func (r *barReporter) Start(totalFiles int) {
	r.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("取り込み中"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *barReporter) FileDone(path string, chunks int) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

func (r *barReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

type nopReporter struct{}

func (nopReporter) Start(int)            {}
func (nopReporter) FileDone(string, int) {}
func (nopReporter) Finish()              {}

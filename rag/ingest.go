package rag

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/tmc/langchaingo/vectorstores"
)

// Chunking defaults for uploaded documents.
const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 50
)

// Ingestor loads uploaded documents, splits them into overlapping chunks and
// adds them to a vector store with source metadata.
type Ingestor struct {
	store    vectorstores.VectorStore
	splitter textsplitter.TextSplitter
}

// NewIngestor creates an ingestor targeting the given store.
func NewIngestor(store vectorstores.VectorStore) *Ingestor {
	return &Ingestor{
		store: store,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(defaultChunkSize),
			textsplitter.WithChunkOverlap(defaultChunkOverlap),
		),
	}
}

// IngestText splits plain text into chunks and stores them. Returns the
// number of chunks added.
func (in *Ingestor) IngestText(ctx context.Context, r io.Reader, source string) (int, error) {
	loader := documentloaders.NewText(r)
	docs, err := loader.LoadAndSplit(ctx, in.splitter)
	if err != nil {
		return 0, fmt.Errorf("splitting %s: %w", source, err)
	}
	return in.add(ctx, docs, source)
}

// IngestHTML extracts the visible text from an HTML document and stores it.
func (in *Ingestor) IngestHTML(ctx context.Context, r io.Reader, source string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, fmt.Errorf("parsing html %s: %w", source, err)
	}
	doc.Find("script, style, noscript").Remove()

	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}
	return in.IngestText(ctx, strings.NewReader(text), source)
}

// IngestFile dispatches on the file extension: .html/.htm go through the
// HTML extractor, everything else is treated as plain text.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	source := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return in.IngestHTML(ctx, f, source)
	default:
		return in.IngestText(ctx, f, source)
	}
}

func (in *Ingestor) add(ctx context.Context, docs []schema.Document, source string) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any)
		}
		docs[i].Metadata["source"] = source
	}

	if _, err := in.store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("adding %s to vector store: %w", source, err)
	}
	return len(docs), nil
}

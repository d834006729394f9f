package rag

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/vectorstores"
)

// EvidenceRetriever retrieves historical evidence snippets from a vector
// store by semantic similarity. It implements the pipeline's Retriever
// boundary.
type EvidenceRetriever struct {
	store vectorstores.VectorStore
}

// NewEvidenceRetriever wraps a vector store as an evidence retriever.
func NewEvidenceRetriever(store vectorstores.VectorStore) *EvidenceRetriever {
	return &EvidenceRetriever{store: store}
}

// Search returns up to k snippets ordered most relevant first. An empty
// store yields an empty result, not an error.
func (r *EvidenceRetriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 4
	}

	docs, err := r.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	snippets := make([]string, 0, len(docs))
	for _, doc := range docs {
		snippets = append(snippets, doc.PageContent)
	}
	return snippets, nil
}

package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/vectorstores"
)

// ContextStore assembles the authoritative context block for a question from
// the uploaded organizational documents. It implements the pipeline's
// ContextProvider boundary.
type ContextStore struct {
	store vectorstores.VectorStore
	topK  int
}

// NewContextStore wraps a vector store of uploaded documents. topK bounds
// the number of chunks quoted per question (default 4).
func NewContextStore(store vectorstores.VectorStore, topK int) *ContextStore {
	if topK <= 0 {
		topK = 4
	}
	return &ContextStore{store: store, topK: topK}
}

// ContextBlock retrieves the chunks most relevant to the question and
// formats them into the block the prompts treat as authoritative. An empty
// store yields an empty block, which downgrades the pipeline to fallback
// reasoning.
func (c *ContextStore) ContextBlock(ctx context.Context, question string) (string, error) {
	docs, err := c.store.SimilaritySearch(ctx, question, c.topK)
	if err != nil {
		return "", fmt.Errorf("loading context chunks: %w", err)
	}
	if len(docs) == 0 {
		return "", nil
	}

	var b strings.Builder
	for i, doc := range docs {
		source := "uploaded document"
		if s, ok := doc.Metadata["source"]; ok {
			source = fmt.Sprintf("%v", s)
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[CHUNK %d] Source: %s | Similarity: %.2f\n%s",
			i+1, source, doc.Score, doc.PageContent)
	}
	return b.String(), nil
}

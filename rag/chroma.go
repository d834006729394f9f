package rag

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/chroma"
)

// Collection name suffixes under the configured namespace. Context holds the
// uploaded organizational documents; evidence holds historical decision
// material for semantic retrieval.
const (
	contextSuffix  = "context"
	evidenceSuffix = "evidence"
)

// NewChromaStore connects to a Chroma server and returns a vector store
// bound to the given namespace. Requires a running Chroma instance
// (docker run -p 8000:8000 chromadb/chroma).
func NewChromaStore(url, namespace string, embedder embeddings.Embedder) (vectorstores.VectorStore, error) {
	store, err := chroma.New(
		chroma.WithChromaURL(url),
		chroma.WithEmbedder(embedder),
		chroma.WithDistanceFunction("cosine"),
		chroma.WithNameSpace(namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to chroma at %s: %w", url, err)
	}
	return store, nil
}

// NewContextCollection returns the Chroma store for uploaded context
// documents.
func NewContextCollection(url, namespace string, embedder embeddings.Embedder) (vectorstores.VectorStore, error) {
	return NewChromaStore(url, namespace+"_"+contextSuffix, embedder)
}

// NewEvidenceCollection returns the Chroma store for historical evidence.
func NewEvidenceCollection(url, namespace string, embedder embeddings.Embedder) (vectorstores.VectorStore, error) {
	return NewChromaStore(url, namespace+"_"+evidenceSuffix, embedder)
}

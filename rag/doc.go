// Package rag provides the retrieval side of the decision pipeline: Chroma
// backed vector stores for uploaded context documents and historical
// evidence, document ingestion with chunking, and adapters implementing the
// pipeline's Retriever and ContextProvider boundaries.
package rag

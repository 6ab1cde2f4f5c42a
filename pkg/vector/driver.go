// Package vector provides the nearest-neighbor index the retriever queries.
package vector

import "context"

// Document is one indexed item.
type Document struct {
	// ID is the document identifier from the document source.
	ID string

	// Fingerprint is the content fingerprint the embedding was computed from.
	Fingerprint string

	// Embedding is the vector representation of the document content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings. A document with an
	// existing ID replaces the previous one.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding,
	// best first.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}

// Package embeddings turns text into vectors through an external provider.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model names the embedding model. Vectors from different models are
	// never compared with each other.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

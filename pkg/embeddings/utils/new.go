// Package embeddingutils builds the configured embedder.
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/crmchat/pkg/embeddings"
	"github.com/papercomputeco/crmchat/pkg/embeddings/ollama"
	"github.com/papercomputeco/crmchat/pkg/embeddings/openai"
	"github.com/papercomputeco/crmchat/pkg/retry"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string

	// Retry wraps the provider when non-nil.
	Retry *retry.Policy

	// RateLimit caps requests per second. Zero is unlimited.
	RateLimit float64
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case "openai":
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: o.TargetURL,
			APIKey:  o.APIKey,
			Model:   o.Model,
		})
	case "ollama":
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	// every attempt, retries included, waits on the limiter
	e = embeddings.NewThrottled(e, o.RateLimit, 1)

	if o.Retry != nil {
		e = embeddings.NewRetrying(e, *o.Retry)
	}

	return e, nil
}

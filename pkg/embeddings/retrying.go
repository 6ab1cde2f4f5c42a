package embeddings

import (
	"context"

	"github.com/papercomputeco/crmchat/pkg/retry"
)

// Retrying wraps an Embedder with a per-call timeout and bounded retries.
type Retrying struct {
	inner  Embedder
	policy retry.Policy
}

// NewRetrying wraps inner with policy.
func NewRetrying(inner Embedder, policy retry.Policy) *Retrying {
	return &Retrying{inner: inner, policy: policy}
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) ([]float32, error) {
		return r.inner.Embed(ctx, text)
	})
}

func (r *Retrying) Model() string { return r.inner.Model() }

func (r *Retrying) Close() error { return r.inner.Close() }

var _ Embedder = (*Retrying)(nil)

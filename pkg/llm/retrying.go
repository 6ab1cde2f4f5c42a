package llm

import (
	"context"

	"github.com/papercomputeco/crmchat/pkg/retry"
)

// Retrying bounds every Generate call of the wrapped generator with the
// policy's timeout and retries transient failures.
type Retrying struct {
	inner  Generator
	policy retry.Policy
}

// NewRetrying wraps inner with policy.
func NewRetrying(inner Generator, policy retry.Policy) *Retrying {
	return &Retrying{inner: inner, policy: policy}
}

func (r *Retrying) Generate(ctx context.Context, messages []Message) (string, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.inner.Generate(ctx, messages)
	})
}

func (r *Retrying) Model() string { return r.inner.Model() }

func (r *Retrying) Close() error { return r.inner.Close() }

var _ Generator = (*Retrying)(nil)

package embeddings

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled limits the request rate of an Embedder. The index build embeds
// cache misses concurrently and hosted providers reject bursts with 429.
type Throttled struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewThrottled allows perSecond requests with a burst of burst. A
// non-positive perSecond returns inner unchanged.
func NewThrottled(inner Embedder, perSecond float64, burst int) Embedder {
	if perSecond <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *Throttled) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %w", ErrEmbedding, err)
	}
	return t.inner.Embed(ctx, text)
}

func (t *Throttled) Model() string { return t.inner.Model() }

func (t *Throttled) Close() error { return t.inner.Close() }

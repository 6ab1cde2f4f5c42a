package embeddings_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/embeddings"
	"github.com/papercomputeco/crmchat/pkg/retry"
)

type flakyEmbedder struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *flakyEmbedder) Model() string { return "flaky-model" }
func (f *flakyEmbedder) Close() error  { return nil }

var _ = Describe("StatusError", func() {
	It("matches ErrEmbedding and exposes the status", func() {
		var err error = &embeddings.StatusError{Provider: "openai", StatusCode: 503, Body: "overloaded"}
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("503"))
		Expect(retry.IsRetryable(err)).To(BeTrue())
	})
})

var _ = Describe("Retrying", func() {
	policy := retry.Policy{MaxRetries: 2, RetryDelay: time.Millisecond, Timeout: time.Second}

	It("retries a transient provider failure", func() {
		inner := &flakyEmbedder{failures: 2, err: &embeddings.StatusError{StatusCode: 500}}
		e := embeddings.NewRetrying(inner, policy)

		v, err := e.Embed(context.Background(), "ciao")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{1, 0}))
		Expect(inner.calls.Load()).To(Equal(int32(3)))
		Expect(e.Model()).To(Equal("flaky-model"))
	})

	It("surfaces a permanent failure after one call", func() {
		inner := &flakyEmbedder{failures: 10, err: &embeddings.StatusError{StatusCode: 401}}
		e := embeddings.NewRetrying(inner, policy)

		_, err := e.Embed(context.Background(), "ciao")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(inner.calls.Load()).To(Equal(int32(1)))
	})

	It("reports exhaustion", func() {
		inner := &flakyEmbedder{failures: 10, err: &embeddings.StatusError{StatusCode: 429}}
		e := embeddings.NewRetrying(inner, policy)

		_, err := e.Embed(context.Background(), "ciao")
		Expect(errors.Is(err, retry.ErrExhausted)).To(BeTrue())
		Expect(inner.calls.Load()).To(Equal(int32(3)))
	})
})

var _ = Describe("Throttled", func() {
	It("returns the inner embedder when unlimited", func() {
		inner := &flakyEmbedder{}
		Expect(embeddings.NewThrottled(inner, 0, 1)).To(BeIdenticalTo(inner))
	})

	It("passes calls through the limiter", func() {
		inner := &flakyEmbedder{}
		e := embeddings.NewThrottled(inner, 1000, 5)

		for range 5 {
			_, err := e.Embed(context.Background(), "x")
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(inner.calls.Load()).To(Equal(int32(5)))
		Expect(e.Model()).To(Equal("flaky-model"))
	})

	It("fails with ErrEmbedding when the context is done", func() {
		e := embeddings.NewThrottled(&flakyEmbedder{}, 0.001, 1)
		_, err := e.Embed(context.Background(), "first")
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = e.Embed(ctx, "second")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})
})

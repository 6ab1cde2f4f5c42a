package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/eventstream"
	"github.com/papercomputeco/crmchat/pkg/logger"
)

// recordingPublisher captures events. When gate is set every publish waits
// on it first.
type recordingPublisher struct {
	mu       sync.Mutex
	answered []*eventstream.QueryAnsweredEvent
	built    []*eventstream.IndexBuiltEvent
	gate     chan struct{}
	err      error
	closed   bool
}

func (r *recordingPublisher) wait() {
	if r.gate != nil {
		<-r.gate
	}
}

func (r *recordingPublisher) PublishQueryAnswered(_ context.Context, e *eventstream.QueryAnsweredEvent) error {
	r.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answered = append(r.answered, e)
	return r.err
}

func (r *recordingPublisher) PublishIndexBuilt(_ context.Context, e *eventstream.IndexBuiltEvent) error {
	r.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built = append(r.built, e)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) answeredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.answered)
}

var _ = Describe("Event Worker Pool", func() {
	var (
		pub *recordingPublisher
		ctx context.Context
	)

	BeforeEach(func() {
		pub = &recordingPublisher{}
		ctx = context.Background()
	})

	Describe("NewPool", func() {
		It("requires a publisher", func() {
			_, err := NewPool(&Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("publisher is required")))
		})

		It("applies defaults", func() {
			wp, err := NewPool(&Config{Publisher: pub})
			Expect(err).NotTo(HaveOccurred())
			Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
			Expect(wp.config.QueueSize).To(Equal(defaultJobQueueSize))
			Expect(wp.config.PublishTimeout).To(Equal(defaultPublishTimeout))
			Expect(wp.Close()).To(Succeed())
		})
	})

	It("forwards every event before Close returns", func() {
		wp, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		for range 10 {
			Expect(wp.PublishQueryAnswered(ctx, eventstream.NewQueryAnsweredEvent())).To(Succeed())
		}
		Expect(wp.PublishIndexBuilt(ctx, eventstream.NewIndexBuiltEvent())).To(Succeed())

		Expect(wp.Close()).To(Succeed())
		Expect(pub.answered).To(HaveLen(10))
		Expect(pub.built).To(HaveLen(1))
		Expect(pub.closed).To(BeTrue())
	})

	It("does not block the caller on a slow publisher", func() {
		pub.gate = make(chan struct{})
		wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.PublishQueryAnswered(ctx, eventstream.NewQueryAnsweredEvent())).To(Succeed())
		Expect(pub.answeredCount()).To(BeZero())

		close(pub.gate)
		Eventually(pub.answeredCount).Should(Equal(1))
		Expect(wp.Close()).To(Succeed())
	})

	It("drops events when the queue is full", func() {
		pub.gate = make(chan struct{})
		wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, QueueSize: 1, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		// one in flight on the worker, one buffered
		Expect(wp.PublishQueryAnswered(ctx, eventstream.NewQueryAnsweredEvent())).To(Succeed())
		Eventually(func() bool {
			return wp.Enqueue(Job{QueryAnswered: eventstream.NewQueryAnsweredEvent()})
		}).Should(BeTrue())

		err = wp.PublishQueryAnswered(ctx, eventstream.NewQueryAnsweredEvent())
		Expect(err).To(MatchError(ContainSubstring("queue full")))

		close(pub.gate)
		Expect(wp.Close()).To(Succeed())
		Expect(pub.answered).To(HaveLen(2))
	})

	It("logs publish failures without surfacing them", func() {
		pub.err = errors.New("broker unavailable")
		wp, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.PublishQueryAnswered(ctx, eventstream.NewQueryAnsweredEvent())).To(Succeed())
		Expect(wp.Close()).To(Succeed())
		Expect(pub.answered).To(HaveLen(1))
	})

	It("rejects nil events", func() {
		wp, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(wp.Close)

		Expect(wp.PublishQueryAnswered(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(wp.PublishIndexBuilt(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("refuses events after Close and closes only once", func() {
		wp, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Close()).To(Succeed())
		Expect(wp.Close()).To(Succeed())
		Expect(wp.PublishQueryAnswered(ctx, eventstream.NewQueryAnsweredEvent())).To(MatchError(ErrClosed))
	})
})

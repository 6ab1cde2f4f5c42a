package engine_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/embeddings"
	"github.com/papercomputeco/crmchat/pkg/engine"
	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/logger"
	"github.com/papercomputeco/crmchat/pkg/memory/local"
	testutils "github.com/papercomputeco/crmchat/pkg/utils/test"
)

const (
	anemoiText = "Anemoi generates test events on kafka topics"
	question   = "What tool generates kafka test events?"
)

var _ = Describe("Engine", func() {
	var (
		ctx context.Context
		f   *fixture
		gen *testutils.MockGenerator
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(GinkgoT().TempDir())
		gen = testutils.NewMockGenerator()
	})

	newEngine := func(mutate ...func(*engine.Options)) (*engine.Engine, error) {
		opts := engine.Options{
			Builder:   f.builder(),
			Generator: gen,
			Logger:    logger.Nop(),
		}
		for _, m := range mutate {
			m(&opts)
		}
		return engine.New(ctx, opts)
	}

	Describe("end to end", func() {
		BeforeEach(func() {
			f.write("a.txt", anemoiText)
		})

		It("embeds, retrieves and generates on a cold cache", func() {
			e, err := newEngine()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(e.Close)
			Expect(f.embedder.CallsFor(anemoiText)).To(Equal(1))

			answer, err := e.Query(ctx, question)
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("<response>ok</response>"))

			Expect(f.embedder.CallsFor(question)).To(Equal(1))
			Expect(f.embedder.Calls()).To(Equal(2))
			Expect(gen.Requests()).To(HaveLen(1))

			msgs := gen.Last()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0]).To(Equal(llm.System(engine.DefaultSystemPrompt)))
			Expect(msgs[1].Role).To(Equal(llm.RoleUser))
			Expect(msgs[1].Content).To(Equal(engine.UserMessage(anemoiText, question)))
		})

		It("makes no embedding calls for unchanged documents on rebuild", func() {
			_, err := newEngine()
			Expect(err).NotTo(HaveOccurred())
			first := f.persisted().Entries["a.txt"]

			f.embedder.Reset()
			e, err := newEngine()
			Expect(err).NotTo(HaveOccurred())

			Expect(f.embedder.CallsFor(anemoiText)).To(BeZero())
			Expect(e.Stats().Reused).To(Equal(1))
			Expect(f.persisted().Entries["a.txt"]).To(Equal(first))
		})

		It("re-embeds exactly the changed document", func() {
			f.write("b.txt", "Claims are handled by the back office")
			_, err := newEngine()
			Expect(err).NotTo(HaveOccurred())
			before := f.persisted().Entries["a.txt"].Fingerprint

			f.embedder.Reset()
			f.write("a.txt", anemoiText+"!")
			e, err := newEngine()
			Expect(err).NotTo(HaveOccurred())

			Expect(f.embedder.Calls()).To(Equal(1))
			Expect(f.embedder.CallsFor(anemoiText + "!")).To(Equal(1))
			Expect(e.Stats().Updated).To(Equal(1))
			Expect(f.persisted().Entries["a.txt"].Fingerprint).NotTo(Equal(before))
		})

		It("leaves no entry behind for a removed document", func() {
			f.write("b.txt", "to be removed")
			_, err := newEngine()
			Expect(err).NotTo(HaveOccurred())
			Expect(f.persisted().Entries).To(HaveKey("b.txt"))

			f.remove("b.txt")
			e, err := newEngine()
			Expect(err).NotTo(HaveOccurred())

			Expect(e.Stats().Dropped).To(Equal(1))
			Expect(f.persisted().Entries).NotTo(HaveKey("b.txt"))
		})
	})

	Describe("retrieval", func() {
		BeforeEach(func() {
			f.embedder.Embeddings["close"] = []float32{1, 0, 0}
			f.embedder.Embeddings["closer"] = []float32{1, 0.05, 0}
			f.embedder.Embeddings["far"] = []float32{0, 0, 1}
			f.embedder.Embeddings["q"] = []float32{1, 0.04, 0}
			f.write("close.txt", "close")
			f.write("closer.txt", "closer")
			f.write("far.txt", "far")
		})

		It("returns the top-K fragments best first and joins them with spaces", func() {
			e, err := newEngine()
			Expect(err).NotTo(HaveOccurred())
			Expect(e.TopK()).To(Equal(engine.DefaultTopK))

			a, err := e.Ask(ctx, engine.Request{Question: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Fragments).To(HaveLen(2))
			Expect(a.Fragments[0].DocumentID).To(Equal("closer.txt"))
			Expect(a.Fragments[1].DocumentID).To(Equal("close.txt"))
			Expect(a.Fragments[0].Score).To(BeNumerically(">=", a.Fragments[1].Score))

			Expect(gen.Last()[1].Content).To(Equal(engine.UserMessage("closer close", "q")))
		})

		It("honours a configured top-K", func() {
			e, err := newEngine(func(o *engine.Options) { o.TopK = 3 })
			Expect(err).NotTo(HaveOccurred())

			a, err := e.Ask(ctx, engine.Request{Question: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Fragments).To(HaveLen(3))
			Expect(a.Fragments[2].DocumentID).To(Equal("far.txt"))
		})
	})

	It("sends an explicitly empty context when nothing is indexed", func() {
		e, err := newEngine()
		Expect(err).NotTo(HaveOccurred())

		a, err := e.Ask(ctx, engine.Request{Question: "anything?"})
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Fragments).To(BeEmpty())
		Expect(gen.Last()[1].Content).To(Equal("Contesto: \n\nDomanda: anything?"))
	})

	It("rejects blank questions without calling any provider", func() {
		e, err := newEngine()
		Expect(err).NotTo(HaveOccurred())
		f.embedder.Reset()

		_, err = e.Query(ctx, "   \n")
		Expect(err).To(MatchError(engine.ErrEmptyQuestion))
		Expect(f.embedder.Calls()).To(BeZero())
		Expect(gen.Requests()).To(BeEmpty())
	})

	It("rejects a query embedder with a different model", func() {
		other := testutils.NewMockEmbedder()
		other.ModelName = "text-embedding-3-small"

		_, err := newEngine(func(o *engine.Options) { o.QueryEmbedder = other })
		Expect(err).To(MatchError(engine.ErrModelMismatch))
		Expect(f.embedder.Calls()).To(BeZero())
	})

	It("fails construction when the build fails", func() {
		f.write("a.txt", anemoiText)
		f.embedder.FailOn = anemoiText

		_, err := newEngine()
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("surfaces question embedding failures", func() {
		e, err := newEngine()
		Expect(err).NotTo(HaveOccurred())
		f.embedder.FailOn = question

		_, err = e.Query(ctx, question)
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(gen.Requests()).To(BeEmpty())
	})

	It("surfaces generation failures", func() {
		e, err := newEngine()
		Expect(err).NotTo(HaveOccurred())
		gen.Err = errors.New("model overloaded")

		_, err = e.Query(ctx, question)
		Expect(err).To(MatchError(llm.ErrGeneration))
		Expect(err.Error()).To(ContainSubstring("model overloaded"))
	})

	Describe("conversation memory", func() {
		It("injects earlier turns of the same conversation", func() {
			mem := local.NewDriver(local.Config{Enabled: true})
			e, err := newEngine(func(o *engine.Options) { o.Memory = mem })
			Expect(err).NotTo(HaveOccurred())

			gen.Reply = "<response>primo</response>"
			_, err = e.Ask(ctx, engine.Request{Question: "prima domanda", ConversationID: "c1"})
			Expect(err).NotTo(HaveOccurred())

			gen.Reply = "<response>secondo</response>"
			_, err = e.Ask(ctx, engine.Request{Question: "seconda domanda", ConversationID: "c1"})
			Expect(err).NotTo(HaveOccurred())

			msgs := gen.Last()
			Expect(msgs).To(HaveLen(4))
			Expect(msgs[1]).To(Equal(llm.User("prima domanda")))
			Expect(msgs[2]).To(Equal(llm.Assistant("<response>primo</response>")))

			_, err = e.Ask(ctx, engine.Request{Question: "altra", ConversationID: "c2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.Last()).To(HaveLen(2))
		})

		It("stays stateless when memory is disabled", func() {
			mem := local.NewDriver(local.Config{Enabled: false})
			e, err := newEngine(func(o *engine.Options) { o.Memory = mem })
			Expect(err).NotTo(HaveOccurred())

			for range 2 {
				_, err = e.Ask(ctx, engine.Request{Question: "domanda", ConversationID: "c1"})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(gen.Last()).To(HaveLen(2))
		})

		It("answers statelessly when recall fails", func() {
			mem := testutils.NewMockMemoryDriver()
			mem.FailRecall = true
			e, err := newEngine(func(o *engine.Options) { o.Memory = mem })
			Expect(err).NotTo(HaveOccurred())

			_, err = e.Ask(ctx, engine.Request{Question: "domanda", ConversationID: "c1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Stored["c1"]).To(HaveLen(1))
		})
	})

	It("publishes build and query events", func() {
		f.write("a.txt", anemoiText)
		pub := &recordingPublisher{}
		e, err := newEngine(func(o *engine.Options) { o.Publisher = pub })
		Expect(err).NotTo(HaveOccurred())

		Expect(pub.builds).To(HaveLen(1))
		Expect(pub.builds[0].Documents).To(Equal(1))
		Expect(pub.builds[0].Models.Chat).To(Equal(gen.Model()))

		_, err = e.Ask(ctx, engine.Request{Question: question, ConversationID: "c9"})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.queries).To(HaveLen(1))
		Expect(pub.queries[0].ConversationID).To(Equal("c9"))
		Expect(pub.queries[0].Fragments[0].DocumentID).To(Equal("a.txt"))
	})

	It("serves concurrent questions", func() {
		f.write("a.txt", anemoiText)
		mem := local.NewDriver(local.Config{Enabled: true})
		e, err := newEngine(func(o *engine.Options) { o.Memory = mem })
		Expect(err).NotTo(HaveOccurred())

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := e.Ask(ctx, engine.Request{Question: question, ConversationID: "shared"})
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		Expect(gen.Requests()).To(HaveLen(16))
		msgs, err := mem.Recall(ctx, "shared")
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(32))
	})

	It("reports its models", func() {
		e, err := newEngine()
		Expect(err).NotTo(HaveOccurred())
		Expect(e.EmbeddingModel()).To(Equal(f.embedder.Model()))
		Expect(e.ChatModel()).To(Equal("mock-chat"))
	})
})

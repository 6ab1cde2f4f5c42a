package engine_test

import (
	"context"
	"errors"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/documents"
	"github.com/papercomputeco/crmchat/pkg/embedcache"
	"github.com/papercomputeco/crmchat/pkg/embeddings"
	"github.com/papercomputeco/crmchat/pkg/engine"
	"github.com/papercomputeco/crmchat/pkg/fingerprint"
	"github.com/papercomputeco/crmchat/pkg/vector"
)

var _ = Describe("Builder", func() {
	var (
		ctx context.Context
		f   *fixture
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(GinkgoT().TempDir())
	})

	Describe("Reconcile", func() {
		It("reuses matching entries, embeds the rest and drops vanished IDs", func() {
			cached := embedcache.NewSnapshot(f.embedder.Model())
			cached.Entries["same.txt"] = embedcache.Entry{Fingerprint: fingerprint.Of("unchanged"), Embedding: []float32{9, 9, 9}}
			cached.Entries["edited.txt"] = embedcache.Entry{Fingerprint: fingerprint.Of("old"), Embedding: []float32{1, 1, 1}}
			cached.Entries["gone.txt"] = embedcache.Entry{Fingerprint: fingerprint.Of("gone"), Embedding: []float32{2, 2, 2}}

			docs := []documents.Document{
				{ID: "same.txt", Text: "unchanged"},
				{ID: "edited.txt", Text: "new"},
				{ID: "added.txt", Text: "added"},
			}

			fresh, stats, err := f.builder().Reconcile(ctx, docs, cached)
			Expect(err).NotTo(HaveOccurred())

			Expect(stats).To(Equal(engine.Stats{Documents: 3, Reused: 1, Updated: 2, Dropped: 1}))
			Expect(fresh.Entries).To(HaveLen(3))
			Expect(fresh.Entries).NotTo(HaveKey("gone.txt"))
			Expect(fresh.Entries["same.txt"].Embedding).To(Equal([]float32{9, 9, 9}))
			Expect(fresh.Entries["edited.txt"].Fingerprint).To(Equal(fingerprint.Of("new")))
			Expect(fresh.Model).To(Equal(f.embedder.Model()))

			Expect(f.embedder.CallsFor("unchanged")).To(BeZero())
			Expect(f.embedder.CallsFor("new")).To(Equal(1))
			Expect(f.embedder.CallsFor("added")).To(Equal(1))
		})

		It("treats a nil snapshot as empty", func() {
			fresh, stats, err := f.builder().Reconcile(ctx, []documents.Document{{ID: "a.txt", Text: "a"}}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.Len()).To(Equal(1))
			Expect(stats.Updated).To(Equal(1))
		})

		It("does not depend on document order", func() {
			docs := []documents.Document{{ID: "a.txt", Text: "a"}, {ID: "b.txt", Text: "b"}, {ID: "c.txt", Text: "c"}}
			reversed := []documents.Document{docs[2], docs[1], docs[0]}

			one, _, err := f.builder().Reconcile(ctx, docs, nil)
			Expect(err).NotTo(HaveOccurred())
			two, _, err := f.builder().Reconcile(ctx, reversed, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(two.Entries).To(Equal(one.Entries))
		})

		It("reuses nothing from a snapshot built with another model", func() {
			cached := embedcache.NewSnapshot("other-model")
			cached.Entries["a.txt"] = embedcache.Entry{Fingerprint: fingerprint.Of("a"), Embedding: []float32{7, 7}}

			fresh, stats, err := f.builder().Reconcile(ctx, []documents.Document{{ID: "a.txt", Text: "a"}}, cached)
			Expect(err).NotTo(HaveOccurred())

			Expect(stats).To(Equal(engine.Stats{Documents: 1, Updated: 1, Dropped: 1}))
			Expect(fresh.Model).To(Equal(f.embedder.Model()))
			Expect(fresh.Entries["a.txt"].Embedding).NotTo(Equal([]float32{7, 7}))
			Expect(f.embedder.CallsFor("a")).To(Equal(1))
		})

		It("reuses entries from a snapshot with no recorded model", func() {
			cached := embedcache.NewSnapshot("")
			cached.Entries["a.txt"] = embedcache.Entry{Fingerprint: fingerprint.Of("a"), Embedding: []float32{7, 7}}

			fresh, stats, err := f.builder().Reconcile(ctx, []documents.Document{{ID: "a.txt", Text: "a"}}, cached)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Reused).To(Equal(1))
			Expect(fresh.Entries["a.txt"].Embedding).To(Equal([]float32{7, 7}))
		})

		It("fails when any embedding fails", func() {
			f.embedder.FailOn = "b"
			b := f.builder()
			b.Concurrency = 1

			_, _, err := b.Reconcile(ctx, []documents.Document{{ID: "a.txt", Text: "a"}, {ID: "b.txt", Text: "b"}}, nil)
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
			Expect(err.Error()).To(ContainSubstring("b.txt"))
		})
	})

	Describe("Build", func() {
		It("indexes every document and persists the cache", func() {
			f.write("a.txt", "alpha")
			f.write("b.txt", "beta")

			idx, stats, err := f.builder().Build(ctx)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(idx.Close)

			Expect(stats.Documents).To(Equal(2))
			Expect(stats.Updated).To(Equal(2))
			Expect(idx.Len()).To(Equal(2))
			Expect(idx.Dims).To(Equal(3))

			n, err := idx.Driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			text, ok := idx.Text("a.txt")
			Expect(ok).To(BeTrue())
			Expect(text).To(Equal("alpha"))

			snap := f.persisted()
			Expect(snap.Model).To(Equal(f.embedder.Model()))
			Expect(snap.Entries).To(HaveKey("a.txt"))
			Expect(snap.Entries).To(HaveKey("b.txt"))
		})

		It("builds an empty index over an empty document set", func() {
			idx, stats, err := f.builder().Build(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Documents).To(BeZero())
			Expect(idx.Len()).To(BeZero())
			Expect(f.persisted().Len()).To(BeZero())
		})

		It("passes the embedding dimensionality to the index factory", func() {
			f.write("a.txt", "alpha")
			var gotDims int
			b := f.builder()
			b.NewIndex = func(_ context.Context, dims int) (vector.Driver, error) {
				gotDims = dims
				return nil, os.ErrPermission
			}

			_, _, err := b.Build(ctx)
			Expect(err).To(MatchError(os.ErrPermission))
			Expect(gotDims).To(Equal(3))
		})

		It("re-embeds everything when the cache came from another model", func() {
			f.write("a.txt", "alpha")
			_, _, err := f.builder().Build(ctx)
			Expect(err).NotTo(HaveOccurred())

			f.embedder.ModelName = "other-model"
			f.embedder.Reset()

			_, stats, err := f.builder().Build(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Reused).To(BeZero())
			Expect(stats.Updated).To(Equal(1))
			Expect(stats.Dropped).To(Equal(1))
			Expect(f.persisted().Model).To(Equal("other-model"))
		})

		It("does not touch the cache when embedding fails", func() {
			f.write("a.txt", "alpha")
			f.embedder.FailOn = "alpha"

			_, _, err := f.builder().Build(ctx)
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
			_, statErr := os.Stat(f.cachePath)
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		Describe("with a corrupt cache", func() {
			BeforeEach(func() {
				f.write("a.txt", "alpha")
				Expect(os.WriteFile(f.cachePath, []byte("{not json"), 0o644)).To(Succeed())
			})

			It("fails fast by default", func() {
				_, _, err := f.builder().Build(ctx)
				Expect(err).To(MatchError(embedcache.ErrCorruptCache))

				var cerr *embedcache.CorruptCacheError
				Expect(errors.As(err, &cerr)).To(BeTrue())
				Expect(cerr.Location).To(Equal(f.cachePath))
				Expect(f.embedder.Calls()).To(BeZero())
			})

			It("rebuilds from scratch when configured to", func() {
				b := f.builder()
				b.OnCorrupt = engine.CorruptRebuild

				_, stats, err := b.Build(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(stats.Updated).To(Equal(1))
				Expect(f.persisted().Entries).To(HaveKey("a.txt"))
			})
		})
	})
})

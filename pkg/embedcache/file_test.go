package embedcache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/embedcache"
	"github.com/papercomputeco/crmchat/pkg/fingerprint"
)

var _ = Describe("FileStore", func() {
	var (
		ctx   context.Context
		dir   string
		path  string
		store *embedcache.FileStore
	)

	sample := func() *embedcache.Snapshot {
		snap := embedcache.NewSnapshot("text-embedding-ada-002")
		snap.Entries["a.txt"] = embedcache.Entry{
			Fingerprint: fingerprint.Of("Anemoi generates test events on kafka topics"),
			Embedding:   []float32{0.1, 0.2, 0.3},
		}
		snap.Entries["b.txt"] = embedcache.Entry{
			Fingerprint: fingerprint.Of("Polizza RC auto"),
			Embedding:   []float32{-1, 0, 1},
		}
		return snap
	}

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "embeddings_cache.json")
		store = embedcache.NewFileStore(path)
	})

	Describe("Load", func() {
		It("returns an empty snapshot when the file is absent", func() {
			snap, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Len()).To(Equal(0))
		})

		It("returns an empty snapshot when the file is zero-length", func() {
			Expect(os.WriteFile(path, nil, 0o644)).To(Succeed())

			snap, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Len()).To(Equal(0))
		})

		It("fails with a CorruptCacheError on unparseable bytes", func() {
			Expect(os.WriteFile(path, []byte("\x80\x04\x95 not json"), 0o644)).To(Succeed())

			_, err := store.Load(ctx)
			Expect(err).To(MatchError(embedcache.ErrCorruptCache))

			var corrupt *embedcache.CorruptCacheError
			Expect(errors.As(err, &corrupt)).To(BeTrue())
			Expect(corrupt.Location).To(Equal(path))
		})

		It("fails when the mappings disagree", func() {
			Expect(os.WriteFile(path, []byte(`{"version":1,"model":"m","fingerprints":{"a.txt":"x"},"embeddings":{}}`), 0o644)).To(Succeed())

			_, err := store.Load(ctx)
			Expect(err).To(MatchError(embedcache.ErrCorruptCache))
		})

		It("fails on an unknown format version", func() {
			Expect(os.WriteFile(path, []byte(`{"version":7}`), 0o644)).To(Succeed())

			_, err := store.Load(ctx)
			Expect(err).To(MatchError(embedcache.ErrCorruptCache))
		})
	})

	Describe("Save", func() {
		It("round trips a snapshot", func() {
			Expect(store.Save(ctx, sample())).To(Succeed())

			snap, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap).To(Equal(sample()))
		})

		It("stores two parallel mappings", func() {
			Expect(store.Save(ctx, sample())).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"fingerprints"`))
			Expect(string(data)).To(ContainSubstring(`"embeddings"`))
			Expect(string(data)).To(ContainSubstring(`"model":"text-embedding-ada-002"`))
		})

		It("fully overwrites the previous snapshot", func() {
			Expect(store.Save(ctx, sample())).To(Succeed())

			smaller := sample()
			delete(smaller.Entries, "b.txt")
			Expect(store.Save(ctx, smaller)).To(Succeed())

			snap, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Entries).To(HaveLen(1))
			Expect(snap.Entries).NotTo(HaveKey("b.txt"))
		})

		It("leaves no temp files behind", func() {
			Expect(store.Save(ctx, sample())).To(Succeed())
			Expect(store.Save(ctx, sample())).To(Succeed())

			entries, err := os.ReadDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal("embeddings_cache.json"))
		})

		It("creates missing parent directories", func() {
			nested := embedcache.NewFileStore(filepath.Join(dir, "cache", "nested.json"))
			Expect(nested.Save(ctx, sample())).To(Succeed())
			Expect(filepath.Join(dir, "cache", "nested.json")).To(BeAnExistingFile())
		})
	})

	It("is idempotent across load then save", func() {
		Expect(store.Save(ctx, sample())).To(Succeed())

		first, err := store.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Save(ctx, first)).To(Succeed())

		second, err := store.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("Snapshot", func() {
	It("looks up entries only when the fingerprint matches", func() {
		snap := embedcache.NewSnapshot("m")
		snap.Entries["a.txt"] = embedcache.Entry{Fingerprint: "f1", Embedding: []float32{1}}

		_, ok := snap.Lookup("a.txt", "f1")
		Expect(ok).To(BeTrue())
		_, ok = snap.Lookup("a.txt", "f2")
		Expect(ok).To(BeFalse())
		_, ok = snap.Lookup("b.txt", "f1")
		Expect(ok).To(BeFalse())
	})

	It("handles nil receivers", func() {
		var snap *embedcache.Snapshot
		Expect(snap.Len()).To(Equal(0))
		_, ok := snap.Lookup("a", "b")
		Expect(ok).To(BeFalse())
	})
})

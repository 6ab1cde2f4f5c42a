package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/documents"
	"github.com/papercomputeco/crmchat/pkg/embedcache"
	"github.com/papercomputeco/crmchat/pkg/engine"
	"github.com/papercomputeco/crmchat/pkg/eventstream"
	"github.com/papercomputeco/crmchat/pkg/logger"
	testutils "github.com/papercomputeco/crmchat/pkg/utils/test"
)

// fixture is a document directory plus a cache file in a temp dir.
type fixture struct {
	docsDir   string
	cachePath string
	embedder  *testutils.MockEmbedder
}

func newFixture(dir string) *fixture {
	docsDir := filepath.Join(dir, "documents")
	Expect(os.MkdirAll(docsDir, 0o755)).To(Succeed())
	return &fixture{
		docsDir:   docsDir,
		cachePath: filepath.Join(dir, "embeddings_cache.json"),
		embedder:  testutils.NewMockEmbedder(),
	}
}

func (f *fixture) write(name, text string) {
	Expect(os.WriteFile(filepath.Join(f.docsDir, name), []byte(text), 0o644)).To(Succeed())
}

func (f *fixture) remove(name string) {
	Expect(os.Remove(filepath.Join(f.docsDir, name))).To(Succeed())
}

func (f *fixture) builder() *engine.Builder {
	src, err := documents.NewFileSource(f.docsDir)
	Expect(err).NotTo(HaveOccurred())
	return &engine.Builder{
		Source:   src,
		Embedder: f.embedder,
		Cache:    embedcache.NewFileStore(f.cachePath),
		Logger:   logger.Nop(),
	}
}

func (f *fixture) persisted() *embedcache.Snapshot {
	snap, err := embedcache.NewFileStore(f.cachePath).Load(context.Background())
	Expect(err).NotTo(HaveOccurred())
	return snap
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu      sync.Mutex
	queries []*eventstream.QueryAnsweredEvent
	builds  []*eventstream.IndexBuiltEvent
}

func (p *recordingPublisher) PublishQueryAnswered(_ context.Context, e *eventstream.QueryAnsweredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, e)
	return nil
}

func (p *recordingPublisher) PublishIndexBuilt(_ context.Context, e *eventstream.IndexBuiltEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builds = append(p.builds, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

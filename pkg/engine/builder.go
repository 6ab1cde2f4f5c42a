package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/crmchat/pkg/documents"
	"github.com/papercomputeco/crmchat/pkg/embedcache"
	"github.com/papercomputeco/crmchat/pkg/embeddings"
	"github.com/papercomputeco/crmchat/pkg/fingerprint"
	"github.com/papercomputeco/crmchat/pkg/telemetry"
	"github.com/papercomputeco/crmchat/pkg/vector"
	"github.com/papercomputeco/crmchat/pkg/vector/inmemory"
)

// CorruptPolicy decides what a build does with an unreadable cache.
type CorruptPolicy string

const (
	// CorruptFail aborts the build with the *embedcache.CorruptCacheError.
	CorruptFail CorruptPolicy = "fail"

	// CorruptRebuild logs the corruption and re-embeds every document.
	CorruptRebuild CorruptPolicy = "rebuild"
)

// DefaultConcurrency bounds parallel embedding calls during a build.
const DefaultConcurrency = 4

// IndexFactory creates an empty vector index for dims-length embeddings.
type IndexFactory func(ctx context.Context, dims int) (vector.Driver, error)

// Stats summarises one build.
type Stats struct {
	Documents int           `json:"documents"`
	Reused    int           `json:"reused"`
	Updated   int           `json:"updated"`
	Dropped   int           `json:"dropped"`
	Duration  time.Duration `json:"duration"`
}

// Index is the product of a build: the vector index plus the text of every
// indexed document, keyed by ID.
type Index struct {
	Driver vector.Driver
	Model  string
	Dims   int

	texts map[string]string
}

// Text returns the content of an indexed document.
func (i *Index) Text(id string) (string, bool) {
	t, ok := i.texts[id]
	return t, ok
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	return len(i.texts)
}

// Close releases the vector index.
func (i *Index) Close() error {
	return i.Driver.Close()
}

// Builder reconciles the document set with the embedding cache and builds
// the vector index.
type Builder struct {
	Source   documents.Source
	Embedder embeddings.Embedder
	Cache    embedcache.Store

	// NewIndex defaults to the in-memory index.
	NewIndex IndexFactory

	// Concurrency bounds parallel embedding calls. Zero uses
	// DefaultConcurrency.
	Concurrency int

	// OnCorrupt defaults to CorruptFail.
	OnCorrupt CorruptPolicy

	Logger *slog.Logger
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// Reconcile computes the fresh cache snapshot for docs. Entries whose ID and
// fingerprint match cached are reused; every other document is embedded.
// IDs present in cached but not in docs are dropped. A snapshot built with
// another embedding model reuses nothing. The first embedding failure cancels
// the remaining calls and fails the reconcile.
func (b *Builder) Reconcile(ctx context.Context, docs []documents.Document, cached *embedcache.Snapshot) (*embedcache.Snapshot, Stats, error) {
	model := b.Embedder.Model()
	fresh := embedcache.NewSnapshot(model)
	stats := Stats{Documents: len(docs)}

	var foreign int
	if cached != nil && cached.Model != "" && cached.Model != model {
		foreign = cached.Len()
		cached = nil
	}

	type miss struct {
		id, text, fp string
	}
	var misses []miss

	present := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		present[doc.ID] = struct{}{}
		fp := fingerprint.Of(doc.Text)

		if e, ok := cached.Lookup(doc.ID, fp); ok {
			fresh.Entries[doc.ID] = e
			stats.Reused++
			continue
		}
		misses = append(misses, miss{id: doc.ID, text: doc.Text, fp: fp})
	}

	if cached != nil {
		for id := range cached.Entries {
			if _, ok := present[id]; !ok {
				stats.Dropped++
			}
		}
	}
	stats.Dropped += foreign

	limit := b.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	embedded := make([][]float32, len(misses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, m := range misses {
		g.Go(func() error {
			spanCtx, span := telemetry.Start(gctx, telemetry.SpanEmbed, attribute.String("document.id", m.id))
			v, err := b.Embedder.Embed(spanCtx, m.text)
			telemetry.End(span, err)
			if err != nil {
				return fmt.Errorf("%w: document %s: %w", embeddings.ErrEmbedding, m.id, err)
			}
			if len(v) == 0 {
				return fmt.Errorf("%w: document %s: empty embedding", embeddings.ErrEmbedding, m.id)
			}
			embedded[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	for i, m := range misses {
		fresh.Entries[m.id] = embedcache.Entry{Fingerprint: m.fp, Embedding: embedded[i]}
	}
	stats.Updated = len(misses)

	return fresh, stats, nil
}

// Build lists the documents, reconciles them with the cache, loads every
// embedding into a new vector index and persists the fresh snapshot. Any
// failure aborts the build; there is no partially built index.
func (b *Builder) Build(ctx context.Context) (idx *Index, stats Stats, err error) {
	start := time.Now()
	ctx, span := telemetry.Start(ctx, telemetry.SpanBuild)
	defer func() { telemetry.End(span, err) }()

	log := b.logger()

	docs, err := b.Source.List(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("listing documents: %w", err)
	}

	cached, err := b.loadCache(ctx)
	if err != nil {
		return nil, Stats{}, err
	}

	fresh, stats, err := b.Reconcile(ctx, docs, cached)
	if err != nil {
		return nil, Stats{}, err
	}

	dims, err := dimensions(fresh)
	if err != nil {
		return nil, Stats{}, err
	}

	driver, err := b.newIndex(ctx, dims)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("creating vector index: %w", err)
	}

	texts := make(map[string]string, len(docs))
	vdocs := make([]vector.Document, 0, len(docs))
	for _, doc := range docs {
		e := fresh.Entries[doc.ID]
		texts[doc.ID] = doc.Text
		vdocs = append(vdocs, vector.Document{ID: doc.ID, Fingerprint: e.Fingerprint, Embedding: e.Embedding})
	}
	if err := driver.Add(ctx, vdocs); err != nil {
		_ = driver.Close()
		return nil, Stats{}, fmt.Errorf("indexing documents: %w", err)
	}

	if err := b.Cache.Save(ctx, fresh); err != nil {
		_ = driver.Close()
		return nil, Stats{}, fmt.Errorf("saving embedding cache: %w", err)
	}

	stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("index.documents", stats.Documents),
		attribute.Int("index.reused", stats.Reused),
		attribute.Int("index.updated", stats.Updated),
		attribute.Int("index.dropped", stats.Dropped),
	)
	log.Info("index built",
		"documents", stats.Documents,
		"reused", stats.Reused,
		"updated", stats.Updated,
		"dropped", stats.Dropped,
		"model", fresh.Model,
		"duration", stats.Duration,
	)

	return &Index{Driver: driver, Model: fresh.Model, Dims: dims, texts: texts}, stats, nil
}

// loadCache applies the corruption policy. Snapshots produced by a different
// embedding model are passed through and rejected by Reconcile.
func (b *Builder) loadCache(ctx context.Context) (*embedcache.Snapshot, error) {
	log := b.logger()

	cached, err := b.Cache.Load(ctx)
	if err != nil {
		if errors.Is(err, embedcache.ErrCorruptCache) && b.OnCorrupt == CorruptRebuild {
			log.Warn("embedding cache is corrupt, re-embedding every document", "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("loading embedding cache: %w", err)
	}

	if cached.Model != "" && cached.Model != b.Embedder.Model() && cached.Len() > 0 {
		log.Warn("embedding cache was built with another model, discarding",
			"cached_model", cached.Model,
			"model", b.Embedder.Model(),
			"entries", cached.Len(),
		)
	}

	return cached, nil
}

func (b *Builder) newIndex(ctx context.Context, dims int) (vector.Driver, error) {
	// external indexes need a dimensionality to create their schema
	if b.NewIndex == nil || dims == 0 {
		return inmemory.NewDriver(dims), nil
	}
	return b.NewIndex(ctx, dims)
}

// dimensions returns the common embedding length of snap, or zero when it
// is empty.
func dimensions(snap *embedcache.Snapshot) (int, error) {
	dims := 0
	for id, e := range snap.Entries {
		switch {
		case dims == 0:
			dims = len(e.Embedding)
		case len(e.Embedding) != dims:
			return 0, fmt.Errorf("%w: document %s has %d dimensions, expected %d",
				vector.ErrDimensionMismatch, id, len(e.Embedding), dims)
		}
	}
	return dims, nil
}

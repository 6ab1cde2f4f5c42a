// Package bootstrap turns a resolved config.Config into a running engine:
// providers, cache store, vector index factory, memory, events and tracing.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/crmchat/pkg/config"
	"github.com/papercomputeco/crmchat/pkg/documents"
	"github.com/papercomputeco/crmchat/pkg/dotdir"
	embedcacheutils "github.com/papercomputeco/crmchat/pkg/embedcache/utils"
	"github.com/papercomputeco/crmchat/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/crmchat/pkg/embeddings/utils"
	"github.com/papercomputeco/crmchat/pkg/engine"
	"github.com/papercomputeco/crmchat/pkg/eventstream"
	"github.com/papercomputeco/crmchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/crmchat/pkg/eventstream/nop"
	"github.com/papercomputeco/crmchat/pkg/eventstream/worker"
	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/llm/provider"
	"github.com/papercomputeco/crmchat/pkg/memory"
	"github.com/papercomputeco/crmchat/pkg/memory/local"
	"github.com/papercomputeco/crmchat/pkg/telemetry"
	"github.com/papercomputeco/crmchat/pkg/utils"
	"github.com/papercomputeco/crmchat/pkg/vector"
	vectorutils "github.com/papercomputeco/crmchat/pkg/vector/utils"
)

// sqliteIndexFile is created in the .crmchat/ directory when the sqlite
// index has no explicit target.
const sqliteIndexFile = "index.db"

// Runtime owns every component built from the config. Close releases them
// in reverse order of construction.
type Runtime struct {
	Config    *config.Config
	Engine    *engine.Engine
	Builder   *engine.Builder
	Embedder  embeddings.Embedder
	Generator llm.Generator
	Memory    memory.Driver
	Publisher eventstream.Publisher
	Tracing   *telemetry.Provider

	logger  *slog.Logger
	closers []func(context.Context) error
}

// Options tune what New builds.
type Options struct {
	// ConfigDir overrides the .crmchat/ lookup for local index files.
	ConfigDir string
}

// NewBuilder wires the document source, embedder and cache store of an index
// build without touching the chat provider.
func NewBuilder(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, logger: logger}

	if err := rt.initBuilder(ctx, opts); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

// New wires everything and runs the startup index build.
func New(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, logger: logger}

	if err := rt.init(ctx, opts); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) init(ctx context.Context, opts Options) error {
	cfg := rt.Config

	tracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "crmchat",
		ServiceVersion: utils.Version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	rt.Tracing = tracing
	rt.closers = append(rt.closers, tracing.Shutdown)

	if err := rt.initBuilder(ctx, opts); err != nil {
		return err
	}

	policy, err := cfg.RetryPolicy()
	if err != nil {
		return err
	}

	gen, err := provider.New(provider.Options{
		ProviderType: cfg.Generation.Provider,
		TargetURL:    cfg.Generation.Target,
		Model:        cfg.Generation.Model,
		APIKey:       cfg.Generation.APIKey,
		Retry:        &policy,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	rt.Generator = gen
	rt.closers = append(rt.closers, func(context.Context) error { return gen.Close() })

	if cfg.Memory.Enabled {
		mem := local.NewDriver(local.Config{
			Enabled:          true,
			TokenLimit:       int(cfg.Memory.TokenLimit),
			MaxConversations: int(cfg.Memory.MaxConversations),
		})
		rt.Memory = mem
		rt.closers = append(rt.closers, func(context.Context) error { return mem.Close() })
	}

	pub, err := NewPublisher(cfg.Events, rt.logger)
	if err != nil {
		return err
	}
	rt.Publisher = pub
	rt.closers = append(rt.closers, func(context.Context) error { return pub.Close() })

	eng, err := engine.New(ctx, engine.Options{
		Builder:      rt.Builder,
		Generator:    rt.Generator,
		Memory:       rt.Memory,
		Publisher:    rt.Publisher,
		TopK:         int(cfg.Index.TopK),
		SystemPrompt: cfg.Generation.SystemPrompt,
		Logger:       rt.logger,
	})
	if err != nil {
		return err
	}
	rt.Engine = eng
	rt.closers = append(rt.closers, func(context.Context) error { return eng.Close() })

	return nil
}

func (rt *Runtime) initBuilder(ctx context.Context, opts Options) error {
	cfg := rt.Config

	policy, err := cfg.RetryPolicy()
	if err != nil {
		return err
	}

	src, err := documents.NewFileSource(cfg.Documents.Path, documents.WithRecursive(cfg.Documents.Recursive))
	if err != nil {
		return err
	}

	emb, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
		Retry:        &policy,
		RateLimit:    cfg.Embedding.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	rt.Embedder = emb
	rt.closers = append(rt.closers, func(context.Context) error { return emb.Close() })

	cache, err := embedcacheutils.NewStore(ctx, &embedcacheutils.NewStoreOpts{
		ProviderType: cfg.Cache.Provider,
		Path:         cfg.Cache.Path,
		PostgresDSN:  cfg.Cache.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("opening embedding cache: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return cache.Close() })

	indexTarget := cfg.Index.Target
	if cfg.Index.Provider == vectorutils.ProviderSQLite && indexTarget == "" {
		indexTarget, err = dotdir.NewManager().Path(opts.ConfigDir, sqliteIndexFile)
		if err != nil {
			return err
		}
	}

	rt.Builder = &engine.Builder{
		Source:      src,
		Embedder:    emb,
		Cache:       cache,
		NewIndex:    IndexFactory(cfg.Index.Provider, indexTarget, rt.logger),
		Concurrency: int(cfg.Index.Concurrency),
		OnCorrupt:   engine.CorruptPolicy(cfg.Cache.OnCorrupt),
		Logger:      rt.logger,
	}

	return nil
}

// IndexFactory returns an engine.IndexFactory for the configured provider.
func IndexFactory(providerType, target string, logger *slog.Logger) engine.IndexFactory {
	return func(ctx context.Context, dims int) (vector.Driver, error) {
		return vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: providerType,
			TargetURL:    target,
			Logger:       logger,
		}, dims)
	}
}

// NewPublisher returns the configured event publisher. Broker-backed
// publishers are wrapped in a worker.Pool so answers never wait on the broker.
func NewPublisher(c config.EventsConfig, logger *slog.Logger) (eventstream.Publisher, error) {
	switch c.Provider {
	case "", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitList(c.Brokers),
			Topic:   c.Topic,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		pool, err := worker.NewPool(&worker.Config{Publisher: pub, Logger: logger})
		if err != nil {
			_ = pub.Close()
			return nil, err
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", c.Provider)
	}
}

// Close releases every component. All closers run; their errors are joined.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

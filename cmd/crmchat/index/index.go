// Package indexcmder provides the index command that builds the embedding
// cache ahead of time and optionally keeps it warm.
package indexcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/crmchat/cmd/crmchat/bootstrap"
	"github.com/papercomputeco/crmchat/pkg/cliui"
	"github.com/papercomputeco/crmchat/pkg/config"
	"github.com/papercomputeco/crmchat/pkg/engine"
)

// DefaultDebounce collapses editor save bursts into one rebuild.
const DefaultDebounce = 500 * time.Millisecond

type indexCommander struct {
	configDir string
	watch     bool
	debounce  time.Duration

	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

const indexLongDesc string = `Build or refresh the embedding cache.

Every document is fingerprinted. Unchanged documents reuse their cached
embedding, changed and new documents are embedded, and removed documents
are dropped from the cache. Running this before "crmchat serve" makes the
server start without any embedding calls.

With --watch the command stays running and rebuilds whenever a file in the
documents directory changes.

Examples:
  crmchat index
  crmchat index --docs ./documents --recursive
  crmchat index --watch`

const indexShortDesc string = "Build or refresh the embedding cache"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.cfg, err = bootstrap.LoadConfig(cmd, bootstrap.EngineFlagKeys)
			if err != nil {
				return err
			}
			return cmder.cfg.ValidateBuild()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = bootstrap.Logger(cmd)
			cmder.out = cmd.OutOrStdout()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	bootstrap.RegisterEngineFlags(cmd, bootstrap.EngineFlagKeys)
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Rebuild whenever a document changes")
	cmd.Flags().DurationVar(&cmder.debounce, "debounce", DefaultDebounce, "Quiet period before a watched change triggers a rebuild")

	return cmd
}

func (c *indexCommander) run(ctx context.Context) error {
	rt, err := bootstrap.NewBuilder(ctx, c.cfg, bootstrap.Options{ConfigDir: c.configDir}, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			c.logger.Warn("closing runtime", "error", err)
		}
	}()

	fmt.Fprintln(c.out)
	if err := c.build(ctx, rt.Builder); err != nil {
		return err
	}

	if !c.watch {
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Watching"),
		cliui.DimStyle.Render(c.cfg.Documents.Path),
	)

	w, err := newWatcher(c.cfg.Documents.Path, c.cfg.Documents.Recursive, c.debounce, c.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx, func() {
		if err := c.build(ctx, rt.Builder); err != nil {
			// the next change gets another chance
			c.logger.Error("rebuild failed", "error", err)
		}
	})
}

func (c *indexCommander) build(ctx context.Context, b *engine.Builder) error {
	var stats engine.Stats

	err := cliui.StepSummary(c.out, "Building index", func() (string, error) {
		idx, s, err := b.Build(ctx)
		if err != nil {
			return "", err
		}
		stats = s
		return fmt.Sprintf("%d embedded, %d reused", s.Updated, s.Reused), idx.Close()
	})
	if err != nil {
		return err
	}

	cliui.WriteFields(c.out, 4, statsFields(stats, b.Embedder.Model()))
	return nil
}

func statsFields(s engine.Stats, model string) []cliui.Field {
	count := func(n int) string { return cliui.ValueStyle.Render(strconv.Itoa(n)) }
	return []cliui.Field{
		{Key: "Documents", Value: count(s.Documents)},
		{Key: "Reused", Value: count(s.Reused)},
		{Key: "Embedded", Value: count(s.Updated)},
		{Key: "Dropped", Value: count(s.Dropped)},
		{Key: "Model", Value: cliui.ValueStyle.Render(model)},
	}
}

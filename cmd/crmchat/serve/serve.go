// Package servecmder provides the serve command that runs the HTTP API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/crmchat/api"
	"github.com/papercomputeco/crmchat/cmd/crmchat/bootstrap"
	"github.com/papercomputeco/crmchat/pkg/config"
)

const shutdownTimeout = 10 * time.Second

type ServeCommander struct {
	configDir string
	mcp       bool

	cfg    *config.Config
	logger *slog.Logger
}

const serveLongDesc string = `Run the crmchat API server.

On startup the document directory is indexed: cached embeddings are reused
for unchanged documents, changed and new documents are embedded, and the
refreshed cache is written back. The server starts listening only once the
index is complete.

Endpoints:
  POST /chatbot          {"question": "..."} -> {"answer": "..."}
  GET  /chatbot/index    index statistics
  GET  /ping             health check
  /mcp                   MCP server exposing an "ask" tool

Examples:
  crmchat serve
  crmchat serve --docs ./documents --listen :8000
  crmchat serve --provider anthropic --model claude-haiku-4-5-20251001`

const serveShortDesc string = "Run the crmchat API server"

var serveFlagKeys = append(append([]string{}, bootstrap.AnswerFlagKeys...), config.FlagListen)

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.cfg, err = bootstrap.LoadConfig(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			return cmder.cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = bootstrap.Logger(cmd)
			return cmder.run(cmd.Context())
		},
	}

	bootstrap.RegisterEngineFlags(cmd, serveFlagKeys)
	cmd.Flags().BoolVar(&cmder.mcp, "mcp", true, "Expose the MCP server on /mcp")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.logger.Info("building index",
		"documents", c.cfg.Documents.Path,
		"embedding_provider", c.cfg.Embedding.Provider,
		"embedding_model", c.cfg.Embedding.Model,
		"index", c.cfg.Index.Provider,
	)

	rt, err := bootstrap.New(ctx, c.cfg, bootstrap.Options{ConfigDir: c.configDir}, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			c.logger.Warn("closing runtime", "error", err)
		}
	}()

	server, err := api.NewServer(api.Config{
		ListenAddr:     c.cfg.API.Listen,
		AllowedOrigins: c.cfg.API.AllowedOrigins,
		MCP:            c.mcp,
		Logger:         c.logger,
	}, rt.Engine)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

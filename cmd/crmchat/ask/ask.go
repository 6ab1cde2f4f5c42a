// Package askcmder provides the ask command: a one-shot question answered
// in-process without a running server.
package askcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/crmchat/cmd/crmchat/bootstrap"
	"github.com/papercomputeco/crmchat/pkg/cliui"
	"github.com/papercomputeco/crmchat/pkg/config"
	"github.com/papercomputeco/crmchat/pkg/engine"
)

type askCommander struct {
	configDir      string
	conversationID string
	jsonOutput     bool
	showSources    bool

	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

const askLongDesc string = `Ask a single question against the document set.

The index is built (or refreshed from the embedding cache) in-process, the
question is answered, and the command exits. The reply is printed exactly as
the chat model produced it. On a terminal it is rendered as markdown.

Examples:
  crmchat ask "Quali garanzie copre la polizza Anemoi?"
  crmchat ask --json "Chi può sottoscrivere la polizza?"
  crmchat ask --sources --top-k 3 "Cosa esclude la garanzia incendio?"`

const askShortDesc string = "Ask a single question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.cfg, err = bootstrap.LoadConfig(cmd, bootstrap.AnswerFlagKeys)
			if err != nil {
				return err
			}
			return cmder.cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logger = bootstrap.Logger(cmd)
			cmder.out = cmd.OutOrStdout()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, strings.Join(args, " "))
		},
	}

	bootstrap.RegisterEngineFlags(cmd, bootstrap.AnswerFlagKeys)
	cmd.Flags().StringVar(&cmder.conversationID, "conversation-id", "", "Conversation to continue (requires --memory)")
	cmd.Flags().BoolVar(&cmder.jsonOutput, "json", false, "Print the answer and its fragments as JSON")
	cmd.Flags().BoolVar(&cmder.showSources, "sources", false, "List the retrieved documents after the answer")

	return cmd
}

func (c *askCommander) run(ctx context.Context, question string) error {
	rt, err := bootstrap.New(ctx, c.cfg, bootstrap.Options{ConfigDir: c.configDir}, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			c.logger.Warn("closing runtime", "error", err)
		}
	}()

	answer, err := rt.Engine.Ask(ctx, engine.Request{
		Question:       question,
		ConversationID: c.conversationID,
	})
	if err != nil {
		return err
	}

	if c.jsonOutput {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	return writeAnswer(c.out, answer, c.showSources, cliui.IsTerminal(c.out))
}

func writeAnswer(w io.Writer, answer *engine.Answer, sources, pretty bool) error {
	text := answer.Text
	if pretty {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = rendered
		}
	}

	if _, err := fmt.Fprintln(w, text); err != nil {
		return err
	}

	if !sources || len(answer.Fragments) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n  %s\n", cliui.KeyStyle.Render("Sources"))
	fields := make([]cliui.Field, len(answer.Fragments))
	for i, f := range answer.Fragments {
		fields[i] = cliui.Field{Key: f.DocumentID, Value: cliui.DimStyle.Render(fmt.Sprintf("(%.3f)", f.Score))}
	}
	cliui.WriteFields(w, 4, fields)
	return nil
}

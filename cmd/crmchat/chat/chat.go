// Package chatcmder provides the chat command: an interactive client for a
// running crmchat API server.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/crmchat/cmd/crmchat/bootstrap"
	"github.com/papercomputeco/crmchat/pkg/cliui"
	"github.com/papercomputeco/crmchat/pkg/config"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	apiTarget      string
	conversationID string
	plain          bool

	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive chat session against a running crmchat server.

Every question in the session is sent to POST /chatbot with the same
conversation id, so a server started with --memory answers follow-up
questions with the earlier turns in mind.

On a terminal a full-screen interface is used. With --plain, or when input
is piped, questions are read one per line.

Examples:
  crmchat chat
  crmchat chat --api-target http://localhost:8000
  echo "Cosa copre Anemoi?" | crmchat chat --plain`

const chatShortDesc string = "Interactive chat against the crmchat API"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap.LoadConfig(cmd, []string{config.FlagAPITarget})
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			if cmder.conversationID == "" {
				cmder.conversationID = uuid.NewString()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = bootstrap.Logger(cmd)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			c := newClient(cmder.apiTarget, cmder.conversationID)
			cmder.logger.Debug("starting chat",
				"api_target", cmder.apiTarget,
				"conversation_id", cmder.conversationID,
			)

			if cmder.plain || !term.IsTerminal(int(os.Stdin.Fd())) {
				return cmder.runPlain(ctx, c, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return cmder.runTUI(ctx, c)
		},
	}

	var apiTarget string
	config.AddStringFlag(cmd, config.EngineFlags, config.FlagAPITarget, &apiTarget)
	cmd.Flags().StringVar(&cmder.conversationID, "conversation-id", "", "Resume a conversation (default: a new random id)")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Line-based prompt instead of the full-screen interface")

	return cmd
}

func (c *chatCommander) runTUI(ctx context.Context, a asker) error {
	p := bubbletea.NewProgram(newChatModel(ctx, a, c.apiTarget), bubbletea.WithAltScreen(), bubbletea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (c *chatCommander) runPlain(ctx context.Context, a asker, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Server:"), cliui.ValueStyle.Render(c.apiTarget))
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		answer, err := a.Ask(ctx, input)
		if err != nil {
			fmt.Fprintf(out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		fmt.Fprintf(out, "%s%s\n\n", assistantPrompt, answer)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

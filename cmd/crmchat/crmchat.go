// Package crmchatcmder wires the crmchat root command and its subcommands.
package crmchatcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/crmchat/cmd/crmchat/ask"
	chatcmder "github.com/papercomputeco/crmchat/cmd/crmchat/chat"
	configcmder "github.com/papercomputeco/crmchat/cmd/crmchat/config"
	indexcmder "github.com/papercomputeco/crmchat/cmd/crmchat/index"
	initcmder "github.com/papercomputeco/crmchat/cmd/crmchat/init"
	servecmder "github.com/papercomputeco/crmchat/cmd/crmchat/serve"
	versioncmder "github.com/papercomputeco/crmchat/cmd/version"
)

const crmchatLongDesc string = `crmchat answers questions about your insurance products from a
private set of documents.

Documents are embedded once and cached; later starts only re-embed what
changed. Questions are answered by a chat model from the closest documents.

  crmchat init         Create a local .crmchat/ config
  crmchat serve        Run the HTTP API (POST /chatbot)
  crmchat index        Build or refresh the embedding cache
  crmchat ask          Ask a single question locally
  crmchat chat         Chat with a running server`

const crmchatShortDesc string = "crmchat - Document-grounded insurance chatbot"

func NewCrmchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "crmchat",
		Short:        crmchatShortDesc,
		Long:         crmchatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json-logs", false, "Log JSON records instead of the pretty console format")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: ./.crmchat or ~/.crmchat)")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

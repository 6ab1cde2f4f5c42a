// Package configcmder provides the config command for managing persistent
// crmchat configuration stored in the .crmchat/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent crmchat configuration.

Configuration is stored as config.toml in the .crmchat/ directory and provides
default values for command flags. CLI flags and CRMCHAT_ environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  documents.path, cache.path, embedding.model, generation.provider,
  index.provider, index.top_k, api.listen, client.api_target

Run "crmchat config list" for the full set.

Use subcommands to get, set, or list configuration values:
  crmchat config set <key> <value>    Set a configuration value
  crmchat config get <key>            Get a configuration value
  crmchat config list                 List all configuration values

Examples:
  crmchat config set generation.provider anthropic
  crmchat config set documents.path ./polizze
  crmchat config get embedding.model
  crmchat config list`

const configShortDesc string = "Manage persistent crmchat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

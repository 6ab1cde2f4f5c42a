package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/crmchat/pkg/config"
	"github.com/papercomputeco/crmchat/pkg/logger"
)

// LoadConfig resolves the config for cmd: registered flags from
// config.EngineFlags named by keys, then CRMCHAT_ env, then config.toml,
// then defaults.
func LoadConfig(cmd *cobra.Command, keys []string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.EngineFlags, keys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// Logger builds the CLI logger from the persistent --debug and --json flags.
func Logger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")

	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(!jsonLogs),
		logger.WithJSON(jsonLogs),
		logger.WithWriter(os.Stderr),
	)
}

// RegisterEngineFlags adds every engine flag named by keys to cmd.
func RegisterEngineFlags(cmd *cobra.Command, keys []string) {
	for _, key := range keys {
		def, ok := config.EngineFlags[key]
		if !ok {
			continue
		}

		switch def.ViperKey {
		case "documents.recursive", "memory.enabled":
			var b bool
			config.AddBoolFlag(cmd, config.EngineFlags, key, &b)
		case "index.top_k", "index.concurrency":
			var n uint
			config.AddUintFlag(cmd, config.EngineFlags, key, &n)
		default:
			var s string
			config.AddStringFlag(cmd, config.EngineFlags, key, &s)
		}
	}
}

// EngineFlagKeys are shared by every command that builds an index.
var EngineFlagKeys = []string{
	config.FlagDocsPath,
	config.FlagRecursive,
	config.FlagCacheProvider,
	config.FlagCachePath,
	config.FlagOnCorrupt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagIndexProv,
	config.FlagIndexTgt,
	config.FlagConcurrency,
	config.FlagOTLPEndpoint,
}

// AnswerFlagKeys adds the generation side on top of EngineFlagKeys.
var AnswerFlagKeys = append(append([]string{}, EngineFlagKeys...),
	config.FlagGenerationProv,
	config.FlagGenerationTgt,
	config.FlagGenerationModel,
	config.FlagTopK,
	config.FlagMemory,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
)

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --docs on
// "crmchat serve", "crmchat index" and "crmchat ask").
type Flag struct {
	// Name is the long flag name (e.g. "docs").
	Name string

	// Shorthand is the one-letter short flag (e.g. "D"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "documents.path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagDocsPath        = "docs"
	FlagRecursive       = "recursive"
	FlagCacheProvider   = "cache-provider"
	FlagCachePath       = "cache"
	FlagOnCorrupt       = "on-corrupt"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagGenerationProv  = "provider"
	FlagGenerationTgt   = "upstream"
	FlagGenerationModel = "model"
	FlagIndexProv       = "index-provider"
	FlagIndexTgt        = "index-target"
	FlagTopK            = "top-k"
	FlagConcurrency     = "concurrency"
	FlagMemory          = "memory"
	FlagListen          = "listen"
	FlagAPITarget       = "api-target"
	FlagEventsProvider  = "events-provider"
	FlagEventsBrokers   = "events-brokers"
	FlagOTLPEndpoint    = "otlp-endpoint"
)

// EngineFlags covers every setting needed to build the answering engine.
// serve, index and ask all register a subset of it.
var EngineFlags = FlagSet{
	FlagDocsPath:        {Name: "docs", Shorthand: "D", ViperKey: "documents.path", Description: "Directory containing the knowledge base documents"},
	FlagRecursive:       {Name: "recursive", ViperKey: "documents.recursive", Description: "Walk subdirectories of the documents directory"},
	FlagCacheProvider:   {Name: "cache-provider", ViperKey: "cache.provider", Description: "Embedding cache backend (file, postgres)"},
	FlagCachePath:       {Name: "cache", Shorthand: "c", ViperKey: "cache.path", Description: "Path to the embedding cache file"},
	FlagOnCorrupt:       {Name: "on-corrupt", ViperKey: "cache.on_corrupt", Description: "What to do with an unreadable cache (fail, rebuild)"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (openai, ollama)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagGenerationProv:  {Name: "provider", Shorthand: "p", ViperKey: "generation.provider", Description: "Chat provider (openai, anthropic, ollama)"},
	FlagGenerationTgt:   {Name: "upstream", Shorthand: "u", ViperKey: "generation.target", Description: "Chat provider URL"},
	FlagGenerationModel: {Name: "model", Shorthand: "m", ViperKey: "generation.model", Description: "Chat model name"},
	FlagIndexProv:       {Name: "index-provider", ViperKey: "index.provider", Description: "Vector index (memory, sqlite, qdrant, chroma)"},
	FlagIndexTgt:        {Name: "index-target", ViperKey: "index.target", Description: "Vector index location (file path or URL)"},
	FlagTopK:            {Name: "top-k", Shorthand: "k", ViperKey: "index.top_k", Description: "Number of fragments retrieved per question"},
	FlagConcurrency:     {Name: "concurrency", ViperKey: "index.concurrency", Description: "Parallel embedding requests during index builds"},
	FlagMemory:          {Name: "memory", ViperKey: "memory.enabled", Description: "Inject prior turns of the conversation into prompts"},
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "crmchat API server URL"},
	FlagEventsProvider:  {Name: "events-provider", ViperKey: "events.provider", Description: "Event publisher (none, kafka)"},
	FlagEventsBrokers:   {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers"},
	FlagOTLPEndpoint:    {Name: "otlp-endpoint", ViperKey: "telemetry.otlp_endpoint", Description: "OTLP gRPC endpoint for traces"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

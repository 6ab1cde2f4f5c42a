package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent crmchat configuration stored as config.toml
// in the .crmchat/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Documents  DocumentsConfig  `toml:"documents"`
	Cache      CacheConfig      `toml:"cache"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Generation GenerationConfig `toml:"generation"`
	Index      IndexConfig      `toml:"index"`
	Memory     MemoryConfig     `toml:"memory"`
	Provider   ProviderConfig   `toml:"provider"`
	API        APIConfig        `toml:"api"`
	Client     ClientConfig     `toml:"client"`
	Events     EventsConfig     `toml:"events"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
}

// DocumentsConfig points at the knowledge base directory.
type DocumentsConfig struct {
	Path      string `toml:"path,omitempty"`
	Recursive bool   `toml:"recursive,omitempty"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Provider    string `toml:"provider,omitempty"`
	Path        string `toml:"path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`

	// OnCorrupt is "fail" or "rebuild".
	OnCorrupt string `toml:"on_corrupt,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider  string  `toml:"provider,omitempty"`
	Target    string  `toml:"target,omitempty"`
	Model     string  `toml:"model,omitempty"`
	APIKey    string  `toml:"api_key,omitempty"`
	RateLimit float64 `toml:"rate_limit,omitempty"`
}

// GenerationConfig holds chat model settings.
type GenerationConfig struct {
	Provider     string `toml:"provider,omitempty"`
	Target       string `toml:"target,omitempty"`
	Model        string `toml:"model,omitempty"`
	APIKey       string `toml:"api_key,omitempty"`
	SystemPrompt string `toml:"system_prompt,omitempty"`
}

// IndexConfig holds vector index and retrieval settings.
type IndexConfig struct {
	Provider    string `toml:"provider,omitempty"`
	Target      string `toml:"target,omitempty"`
	TopK        uint   `toml:"top_k,omitempty"`
	Concurrency uint   `toml:"concurrency,omitempty"`
}

// MemoryConfig holds conversation memory settings.
type MemoryConfig struct {
	Enabled          bool `toml:"enabled,omitempty"`
	TokenLimit       uint `toml:"token_limit,omitempty"`
	MaxConversations uint `toml:"max_conversations,omitempty"`
}

// ProviderConfig holds the timeout and retry budget shared by every
// remote model call. Durations use Go syntax ("60s", "1m30s").
type ProviderConfig struct {
	Timeout    string `toml:"timeout,omitempty"`
	MaxRetries uint   `toml:"max_retries,omitempty"`
	RetryDelay string `toml:"retry_delay,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen         string `toml:"listen,omitempty"`
	AllowedOrigins string `toml:"allowed_origins,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// server (e.g. crmchat chat). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EventsConfig holds event publishing settings. Brokers is comma separated.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint,omitempty"`
}

// configKeyInfo maps a user-facing config key to its getter and setter.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(key string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 0)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(key string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func durationKey(key string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"documents.path":      stringKey(func(c *Config) *string { return &c.Documents.Path }),
	"documents.recursive": boolKey("documents.recursive", func(c *Config) *bool { return &c.Documents.Recursive }),

	"cache.provider":     stringKey(func(c *Config) *string { return &c.Cache.Provider }),
	"cache.path":         stringKey(func(c *Config) *string { return &c.Cache.Path }),
	"cache.postgres_dsn": stringKey(func(c *Config) *string { return &c.Cache.PostgresDSN }),
	"cache.on_corrupt": {
		get: func(c *Config) string { return c.Cache.OnCorrupt },
		set: func(c *Config, v string) error {
			if v != CorruptFail && v != CorruptRebuild {
				return fmt.Errorf("invalid value for cache.on_corrupt: %q (expected %s or %s)", v, CorruptFail, CorruptRebuild)
			}
			c.Cache.OnCorrupt = v
			return nil
		},
	},

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.api_key":  stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.rate_limit": {
		get: func(c *Config) string {
			if c.Embedding.RateLimit == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Embedding.RateLimit, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid value for embedding.rate_limit: %q", v)
			}
			c.Embedding.RateLimit = f
			return nil
		},
	},

	"generation.provider":      stringKey(func(c *Config) *string { return &c.Generation.Provider }),
	"generation.target":        stringKey(func(c *Config) *string { return &c.Generation.Target }),
	"generation.model":         stringKey(func(c *Config) *string { return &c.Generation.Model }),
	"generation.api_key":       stringKey(func(c *Config) *string { return &c.Generation.APIKey }),
	"generation.system_prompt": stringKey(func(c *Config) *string { return &c.Generation.SystemPrompt }),

	"index.provider":    stringKey(func(c *Config) *string { return &c.Index.Provider }),
	"index.target":      stringKey(func(c *Config) *string { return &c.Index.Target }),
	"index.top_k":       uintKey("index.top_k", func(c *Config) *uint { return &c.Index.TopK }),
	"index.concurrency": uintKey("index.concurrency", func(c *Config) *uint { return &c.Index.Concurrency }),

	"memory.enabled":     boolKey("memory.enabled", func(c *Config) *bool { return &c.Memory.Enabled }),
	"memory.token_limit": uintKey("memory.token_limit", func(c *Config) *uint { return &c.Memory.TokenLimit }),
	"memory.max_conversations": uintKey("memory.max_conversations",
		func(c *Config) *uint { return &c.Memory.MaxConversations }),

	"provider.timeout":     durationKey("provider.timeout", func(c *Config) *string { return &c.Provider.Timeout }),
	"provider.max_retries": uintKey("provider.max_retries", func(c *Config) *uint { return &c.Provider.MaxRetries }),
	"provider.retry_delay": durationKey("provider.retry_delay", func(c *Config) *string { return &c.Provider.RetryDelay }),

	"api.listen":          stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.allowed_origins": stringKey(func(c *Config) *string { return &c.API.AllowedOrigins }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"telemetry.otlp_endpoint": stringKey(func(c *Config) *string { return &c.Telemetry.OTLPEndpoint }),
}

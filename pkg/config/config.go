package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/crmchat/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// orderedKeys follows the TOML section layout.
var orderedKeys = []string{
	"documents.path",
	"documents.recursive",
	"cache.provider",
	"cache.path",
	"cache.postgres_dsn",
	"cache.on_corrupt",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.api_key",
	"embedding.rate_limit",
	"generation.provider",
	"generation.target",
	"generation.model",
	"generation.api_key",
	"generation.system_prompt",
	"index.provider",
	"index.target",
	"index.top_k",
	"index.concurrency",
	"memory.enabled",
	"memory.token_limit",
	"memory.max_conversations",
	"provider.timeout",
	"provider.max_retries",
	"provider.retry_delay",
	"api.listen",
	"api.allowed_origins",
	"client.api_target",
	"events.provider",
	"events.brokers",
	"events.topic",
	"telemetry.otlp_endpoint",
}

// ValidConfigKeys returns the list of all supported configuration key names
// in a stable order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// IsSecretKey reports whether a key holds credentials that should be masked
// when displayed.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, ".api_key") || key == "cache.postgres_dsn"
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .crmchat/
// directory. A missing file yields NewDefaultConfig(). Fields explicitly set in
// the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
// Booleans are left alone since false is their default.
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fillUint := func(dst *uint, def uint) {
		if *dst == 0 {
			*dst = def
		}
	}

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	fill(&cfg.Documents.Path, d.Documents.Path)

	fill(&cfg.Cache.Provider, d.Cache.Provider)
	fill(&cfg.Cache.Path, d.Cache.Path)
	fill(&cfg.Cache.OnCorrupt, d.Cache.OnCorrupt)

	fill(&cfg.Embedding.Provider, d.Embedding.Provider)
	fill(&cfg.Embedding.Target, d.Embedding.Target)
	fill(&cfg.Embedding.Model, d.Embedding.Model)

	fill(&cfg.Generation.Provider, d.Generation.Provider)
	fill(&cfg.Generation.Target, d.Generation.Target)
	fill(&cfg.Generation.Model, d.Generation.Model)

	fill(&cfg.Index.Provider, d.Index.Provider)
	fillUint(&cfg.Index.TopK, d.Index.TopK)
	fillUint(&cfg.Index.Concurrency, d.Index.Concurrency)

	fillUint(&cfg.Memory.TokenLimit, d.Memory.TokenLimit)
	fillUint(&cfg.Memory.MaxConversations, d.Memory.MaxConversations)

	fill(&cfg.Provider.Timeout, d.Provider.Timeout)
	fillUint(&cfg.Provider.MaxRetries, d.Provider.MaxRetries)
	fill(&cfg.Provider.RetryDelay, d.Provider.RetryDelay)

	fill(&cfg.API.Listen, d.API.Listen)
	fill(&cfg.API.AllowedOrigins, d.API.AllowedOrigins)

	fill(&cfg.Client.APITarget, d.Client.APITarget)

	fill(&cfg.Events.Provider, d.Events.Provider)
	fill(&cfg.Events.Topic, d.Events.Topic)
}

// SaveConfig persists the configuration to config.toml in the target .crmchat/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		return cfg, nil

	case "anthropic":
		// Anthropic has no embeddings endpoint; vectors still come from OpenAI.
		cfg.Generation.Provider = "anthropic"
		cfg.Generation.Target = "https://api.anthropic.com"
		cfg.Generation.Model = "claude-haiku-4-5-20251001"
		return cfg, nil

	case "ollama":
		cfg.Embedding.Provider = "ollama"
		cfg.Embedding.Target = "http://localhost:11434"
		cfg.Embedding.Model = "nomic-embed-text"
		cfg.Generation.Provider = "ollama"
		cfg.Generation.Target = "http://localhost:11434"
		cfg.Generation.Model = "llama3.2"
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, anthropic, ollama)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

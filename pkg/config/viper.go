package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/crmchat/pkg/dotdir"
)

// DotEnvFile is loaded from the working directory by InitViper when present.
const DotEnvFile = ".env"

// envAliases binds the variable names used by existing deployments next to
// the CRMCHAT_ prefixed ones. The prefixed name wins when both are set.
var envAliases = map[string][]string{
	"documents.path":      {"CHATBOT_DOCS_PATH"},
	"api.allowed_origins": {"ALLOWED_CORS_ORIGINS"},
	"embedding.api_key":   {"OPENAI_API_KEY"},
}

// InitViper creates and returns a configured *viper.Viper.
// It loads .env into the process environment, sets defaults from
// NewDefaultConfig(), reads the config.toml file (if found via dotdir
// resolution), and binds environment variables with the CRMCHAT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CRMCHAT_API_LISTEN, OPENAI_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	if err := LoadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("CRMCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	return v, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path without overriding variables
// already present in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// FromViper resolves every config key through v into a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()

	for _, key := range ValidConfigKeys() {
		raw := v.GetString(key)
		if raw == "" {
			continue
		}
		if err := configKeys[key].set(cfg, raw); err != nil {
			return nil, err
		}
	}

	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = providerKeyFromEnv(cfg.Generation.Provider)
	}

	return cfg, nil
}

// providerKeyFromEnv reads the vendor's conventional API key variable.
func providerKeyFromEnv(providerType string) string {
	switch providerType {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

func envName(key string) string {
	return "CRMCHAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range ValidConfigKeys() {
		val := configKeys[key].get(d)
		if val == "" {
			continue
		}
		v.SetDefault(key, val)
	}
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/crmchat/pkg/llm/provider"
	"github.com/papercomputeco/crmchat/pkg/retry"
)

// ErrMissingCredentials is returned by Validate when a hosted provider is
// configured without an API key.
var ErrMissingCredentials = errors.New("missing provider credentials")

// Validate checks the settings a server needs before it can start.
func (c *Config) Validate() error {
	if err := c.ValidateBuild(); err != nil {
		return err
	}

	if provider.RequiresAPIKey(c.Generation.Provider) && c.Generation.APIKey == "" {
		return fmt.Errorf("%w: generation.api_key is required for provider %q",
			ErrMissingCredentials, c.Generation.Provider)
	}
	return nil
}

// ValidateBuild checks only what an index build needs. The generation
// provider is not consulted.
func (c *Config) ValidateBuild() error {
	if provider.RequiresAPIKey(c.Embedding.Provider) && c.Embedding.APIKey == "" {
		return fmt.Errorf("%w: embedding.api_key is required for provider %q (or set OPENAI_API_KEY)",
			ErrMissingCredentials, c.Embedding.Provider)
	}

	if c.Cache.OnCorrupt != CorruptFail && c.Cache.OnCorrupt != CorruptRebuild {
		return fmt.Errorf("invalid cache.on_corrupt %q", c.Cache.OnCorrupt)
	}

	if _, err := c.RetryPolicy(); err != nil {
		return err
	}

	return nil
}

// RetryPolicy converts the provider section into a retry.Policy.
func (c *Config) RetryPolicy() (retry.Policy, error) {
	p := retry.DefaultPolicy()
	p.MaxRetries = int(c.Provider.MaxRetries)

	if c.Provider.Timeout != "" {
		d, err := time.ParseDuration(c.Provider.Timeout)
		if err != nil {
			return p, fmt.Errorf("invalid provider.timeout: %w", err)
		}
		p.Timeout = d
	}

	if c.Provider.RetryDelay != "" {
		d, err := time.ParseDuration(c.Provider.RetryDelay)
		if err != nil {
			return p, fmt.Errorf("invalid provider.retry_delay: %w", err)
		}
		p.RetryDelay = d
	}

	return p, nil
}

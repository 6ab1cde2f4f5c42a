// Package provider builds the configured chat generator.
package provider

import (
	"fmt"

	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/crmchat/pkg/llm/provider/ollama"
	"github.com/papercomputeco/crmchat/pkg/llm/provider/openai"
	"github.com/papercomputeco/crmchat/pkg/retry"
)

// Options selects and configures a generator.
type Options struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string

	// Retry wraps the provider when non-nil.
	Retry *retry.Policy
}

// New creates a generator for the given provider type.
// Returns an error if the provider type is not recognized.
func New(o Options) (llm.Generator, error) {
	var (
		g   llm.Generator
		err error
	)

	switch o.ProviderType {
	case OpenAI:
		g, err = openai.New(openai.Config{BaseURL: o.TargetURL, APIKey: o.APIKey, Model: o.Model})
	case Anthropic:
		g, err = anthropic.New(anthropic.Config{BaseURL: o.TargetURL, APIKey: o.APIKey, Model: o.Model})
	case Ollama:
		g = ollama.New(ollama.Config{BaseURL: o.TargetURL, Model: o.Model})
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", o.ProviderType, SupportedProviders())
	}
	if err != nil {
		return nil, err
	}

	if o.Retry != nil {
		g = llm.NewRetrying(g, *o.Retry)
	}
	return g, nil
}

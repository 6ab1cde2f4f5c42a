package provider

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama}
}

// RequiresAPIKey reports whether the provider refuses to start without
// credentials.
func RequiresAPIKey(providerType string) bool {
	return providerType == OpenAI || providerType == Anthropic
}

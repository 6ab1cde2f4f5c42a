package config

const (
	// CorruptFail aborts the index build when the cache cannot be parsed.
	CorruptFail = "fail"

	// CorruptRebuild logs the corruption and re-embeds every document.
	CorruptRebuild = "rebuild"
)

const (
	defaultDocumentsPath = "./documents"

	defaultCacheProvider = "file"
	defaultCachePath     = "embeddings_cache.json"

	defaultOpenAITarget   = "https://api.openai.com"
	defaultEmbedProvider  = "openai"
	defaultEmbeddingModel = "text-embedding-ada-002"

	defaultGenProvider = "openai"
	defaultChatModel   = "gpt-3.5-turbo"

	defaultIndexProvider    = "memory"
	defaultIndexTopK        = 2
	defaultIndexConcurrency = 4

	defaultMemoryTokenLimit       = 15000
	defaultMemoryMaxConversations = 1000

	defaultProviderTimeout    = "60s"
	defaultProviderMaxRetries = 3
	defaultProviderRetryDelay = "1s"

	defaultAPIListen       = ":8000"
	defaultAllowedOrigins  = "*"
	defaultClientAPITarget = "http://localhost:8000"

	defaultEventsProvider = "none"
	defaultEventsTopic    = "crmchat.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Documents: DocumentsConfig{
			Path: defaultDocumentsPath,
		},
		Cache: CacheConfig{
			Provider:  defaultCacheProvider,
			Path:      defaultCachePath,
			OnCorrupt: CorruptFail,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbedProvider,
			Target:   defaultOpenAITarget,
			Model:    defaultEmbeddingModel,
		},
		Generation: GenerationConfig{
			Provider: defaultGenProvider,
			Target:   defaultOpenAITarget,
			Model:    defaultChatModel,
		},
		Index: IndexConfig{
			Provider:    defaultIndexProvider,
			TopK:        defaultIndexTopK,
			Concurrency: defaultIndexConcurrency,
		},
		Memory: MemoryConfig{
			Enabled:          false,
			TokenLimit:       defaultMemoryTokenLimit,
			MaxConversations: defaultMemoryMaxConversations,
		},
		Provider: ProviderConfig{
			Timeout:    defaultProviderTimeout,
			MaxRetries: defaultProviderMaxRetries,
			RetryDelay: defaultProviderRetryDelay,
		},
		API: APIConfig{
			Listen:         defaultAPIListen,
			AllowedOrigins: defaultAllowedOrigins,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}

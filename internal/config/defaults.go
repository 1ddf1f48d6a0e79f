package config

import "time"

// Preset is the default model pairing for a generation provider.
type Preset struct {
	Model             string
	EmbeddingProvider ProviderType
	EmbeddingModel    string
}

var presets = map[ProviderType]Preset{
	ProviderAnthropic:  {Model: "claude-sonnet-4-5-20250929", EmbeddingProvider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenAI:     {Model: "gpt-4o-mini", EmbeddingProvider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenRouter: {Model: "anthropic/claude-sonnet-4.5", EmbeddingProvider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
	ProviderGoogle:     {Model: "gemini-2.5-flash", EmbeddingProvider: ProviderGoogle, EmbeddingModel: "gemini-embedding-001"},
	ProviderOllama:     {Model: "llama3.1", EmbeddingProvider: ProviderOllama, EmbeddingModel: "nomic-embed-text"},
}

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = ".brandchat.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	p := presets[ProviderAnthropic]
	return &Config{
		Provider:          ProviderAnthropic,
		Model:             p.Model,
		EmbeddingProvider: p.EmbeddingProvider,
		EmbeddingModel:    p.EmbeddingModel,
		TopK:              3,
		Port:              8080,
		DataDir:           ".brandchat",
		RequestTimeout:    60 * time.Second,
		Cache: CacheConfig{
			Policy: CacheUnbounded,
			Size:   1024,
		},
		Generation: GenerationConfig{
			MaxTokens:    1024,
			Temperature:  0.4,
			Retries:      1,
			RateLimitRPM: 60,
		},
		QueryLog: QueryLogConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetPreset returns the defaults for provider, or the Anthropic preset when
// the provider is unknown.
func GetPreset(provider ProviderType) Preset {
	if p, ok := presets[provider]; ok {
		return p
	}
	return presets[ProviderAnthropic]
}

package config

import "time"

// ProviderType identifies a generation or embedding provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
)

// CachePolicy selects the embedding cache strategy.
type CachePolicy string

const (
	CacheUnbounded CachePolicy = "unbounded"
	CacheLRU       CachePolicy = "lru"
)

// Config is the top-level brandchat configuration, corresponding to .brandchat.yml.
type Config struct {
	Provider          ProviderType     `yaml:"provider" koanf:"provider"`
	Model             string           `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType     `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string           `yaml:"embedding_model" koanf:"embedding_model"`
	TopK              int              `yaml:"top_k" koanf:"top_k"`
	Port              int              `yaml:"port" koanf:"port"`
	AllowedOrigins    []string         `yaml:"allowed_origins,omitempty" koanf:"allowed_origins"`
	AllowAllOrigins   bool             `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	DataDir           string           `yaml:"data_dir" koanf:"data_dir"`
	RequestTimeout    time.Duration    `yaml:"request_timeout" koanf:"request_timeout"`
	Cache             CacheConfig      `yaml:"cache" koanf:"cache"`
	Generation        GenerationConfig `yaml:"generation" koanf:"generation"`
	QueryLog          QueryLogConfig   `yaml:"query_log" koanf:"query_log"`
	Log               LogConfig        `yaml:"log" koanf:"log"`
}

// CacheConfig controls the embedding cache.
type CacheConfig struct {
	Policy CachePolicy `yaml:"policy" koanf:"policy"`
	// Size bounds the LRU policy; ignored when unbounded.
	Size int `yaml:"size" koanf:"size"`
}

// GenerationConfig tunes calls to the generation provider.
type GenerationConfig struct {
	MaxTokens    int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature  float64 `yaml:"temperature" koanf:"temperature"`
	Retries      int     `yaml:"retries" koanf:"retries"`
	RateLimitRPM int     `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
}

// QueryLogConfig controls the SQLite query log.
type QueryLogConfig struct {
	Enabled       bool `yaml:"enabled" koanf:"enabled"`
	RetentionDays int  `yaml:"retention_days" koanf:"retention_days"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

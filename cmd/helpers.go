package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/brandchat/internal/audit"
	"github.com/ziadkadry99/brandchat/internal/config"
	"github.com/ziadkadry99/brandchat/internal/corpus"
	"github.com/ziadkadry99/brandchat/internal/db"
	"github.com/ziadkadry99/brandchat/internal/embeddings"
	"github.com/ziadkadry99/brandchat/internal/llm"
	"github.com/ziadkadry99/brandchat/internal/logging"
	"github.com/ziadkadry99/brandchat/internal/retrieval"
)

const retryBackoff = 500 * time.Millisecond

// ollamaDimensions lists vector sizes for common Ollama embedding models.
var ollamaDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
	"bge-m3":            1024,
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `brandchat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.Must(level, cfg.Log.Format)
}

// createEmbedderFromConfig creates the embedding backend named by the config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	model := cfg.EmbeddingModel

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(model)), nil
	case config.ProviderOllama:
		dims, ok := ollamaDimensions[strings.SplitN(model, ":", 2)[0]]
		if !ok {
			dims = 768
		}
		return embeddings.NewOllamaEmbedder(model, dims, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// createLLMProviderFromConfig creates the generation provider, rate limited
// and retried as configured.
func createLLMProviderFromConfig(cfg *config.Config, logger *zap.Logger) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	p = llm.NewRateLimitedProvider(p, cfg.Generation.RateLimitRPM)
	return llm.NewRetryProvider(p, cfg.Generation.Retries, retryBackoff, logger), nil
}

func newCachePolicy(cfg *config.Config) embeddings.CachePolicy {
	if cfg.Cache.Policy == config.CacheLRU {
		return embeddings.NewLRUCache(cfg.Cache.Size)
	}
	return embeddings.NewUnboundedCache()
}

// app is the wired retrieval stack shared by serve, mcp, ask, search and warm.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	cache        *embeddings.Cache
	orchestrator *retrieval.Orchestrator
}

// buildApp wires the corpus, embedding cache and generation provider.
// Commands that never generate pass needGenerator=false so a missing
// generation API key does not stop them.
func buildApp(cfg *config.Config, logger *zap.Logger, needGenerator bool) (*app, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	cache := embeddings.NewCache(embedder, newCachePolicy(cfg), logger)

	var generator llm.Provider = unavailableProvider{}
	if needGenerator {
		generator, err = createLLMProviderFromConfig(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
	}

	counter := llm.NewTokenCounter()
	orch := retrieval.New(corpus.Default(), cache, generator, retrieval.Options{
		Model:       cfg.Model,
		TopK:        cfg.TopK,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		CountTokens: counter.Count,
		Logger:      logger,
	})

	return &app{cfg: cfg, logger: logger, cache: cache, orchestrator: orch}, nil
}

// openQueryLog opens the SQLite query log, or returns nils when disabled.
func openQueryLog(cfg *config.Config) (*db.DB, *audit.Store, error) {
	if !cfg.QueryLog.Enabled {
		return nil, nil, nil
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening query log: %w", err)
	}
	return database, audit.NewStore(database), nil
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

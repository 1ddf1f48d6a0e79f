package llm

import (
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// NewProvider creates a provider by kind. API keys are read from the
// conventional environment variables.
// Supported kinds: "anthropic", "openai", "openrouter", "google", "ollama".
func NewProvider(kind, model string) (Provider, error) {
	switch kind {
	case "anthropic":
		key, err := requireEnv("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewAnthropicProvider(key, model), nil

	case "openai":
		key, err := requireEnv("OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAIProvider(key, model), nil

	case "openrouter":
		key, err := requireEnv("OPENROUTER_API_KEY")
		if err != nil {
			return nil, err
		}
		cfg := openai.DefaultConfig(key)
		cfg.BaseURL = openRouterBaseURL
		return NewOpenAICompatibleProvider("openrouter", cfg, model), nil

	case "google":
		key, err := requireEnv("GOOGLE_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewGoogleProvider(key, model), nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", kind)
	}
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%s environment variable is not set", name)
	}
	return v, nil
}

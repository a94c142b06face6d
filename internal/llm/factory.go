package llm

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/regqa/internal/config"
)

// NewProvider creates the completion provider selected by cfg, wrapped in a
// rate limiter when requests_per_minute is set. API keys come from the
// environment.
func NewProvider(cfg *config.Config) (Provider, error) {
	p, err := newBaseProvider(cfg.Provider, cfg.Model, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, cfg.RequestsPerMinute)
	}
	return p, nil
}

func newBaseProvider(providerType config.ProviderType, model, baseURL string) (Provider, error) {
	switch providerType {
	case config.ProviderAnthropic:
		apiKey := os.Getenv(config.APIKeyEnvVar(providerType))
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is not set", config.APIKeyEnvVar(providerType))
		}
		return NewAnthropicProvider(apiKey, model, baseURL), nil

	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(providerType))
		if apiKey == "" && baseURL == "" {
			return nil, fmt.Errorf("%s environment variable is not set", config.APIKeyEnvVar(providerType))
		}
		return NewOpenAIProvider(apiKey, model, baseURL), nil

	case config.ProviderOllama:
		host := baseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

package embeddings

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/regqa/internal/config"
)

// NewFromConfig creates the raw embedding backend selected by cfg.
// API keys are read from the environment.
func NewFromConfig(cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" && cfg.EmbeddingBaseURL == "" {
			return nil, fmt.Errorf("%s environment variable is not set", config.APIKeyEnvVar(config.ProviderOpenAI))
		}
		return NewOpenAIEmbedder(apiKey, cfg.EmbeddingModel, cfg.EmbeddingBaseURL, cfg.EmbeddingDims), nil
	case config.ProviderOllama:
		baseURL := cfg.EmbeddingBaseURL
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_HOST")
		}
		return NewOllamaEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDims, baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

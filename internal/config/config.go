package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/ziadkadry99/regqa/internal/provider"
	yamlv3 "gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configuration that cannot be used,
// most importantly bad chunking parameters. It is fatal at startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// envPrefix is the prefix of regqa's own environment overrides.
const envPrefix = "REGQA_"

// legacyEnv maps the unprefixed variable names of earlier deployments to config keys.
var legacyEnv = map[string]string{
	"MODEL_NAME":      "model",
	"EMBEDDING_MODEL": "embedding_model",
	"CHUNK_SIZE":      "chunk_size",
	"CHUNK_OVERLAP":   "chunk_overlap",
	"DOCUMENTS_DIR":   "documents_dir",
	"VECTOR_DB_DIR":   "data_dir",
	"TOP_K":           "top_k",
}

// Load reads configuration from the given YAML file, then overlays the
// legacy environment variables and finally REGQA_* overrides.
// A double underscore separates nested keys: REGQA_RETRY__MAX_ATTEMPTS.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading legacy env: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Model == "" || cfg.EmbeddingModel == "" {
		model, embeddingModel := DefaultModels(cfg.Provider)
		if cfg.Model == "" {
			cfg.Model = model
		}
		if cfg.EmbeddingModel == "" {
			cfg.EmbeddingModel = embeddingModel
		}
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// validProviders is the set of recognized completion providers.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI:    true,
	ProviderAnthropic: true,
	ProviderOllama:    true,
}

// validEmbeddingProviders is the set of providers that can produce embeddings.
var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if !validProviders[c.Provider] {
		return invalid("provider %q: must be one of openai, anthropic, ollama", c.Provider)
	}
	if c.Model == "" {
		return invalid("model is required")
	}
	if !validEmbeddingProviders[c.EmbeddingProvider] {
		return invalid("embedding_provider %q: must be openai or ollama", c.EmbeddingProvider)
	}
	if c.EmbeddingModel == "" {
		return invalid("embedding_model is required")
	}
	if err := ValidateChunking(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.TopK <= 0 {
		return invalid("top_k must be positive")
	}
	if c.DocumentsDir == "" {
		return invalid("documents_dir is required")
	}
	if c.DataDir == "" {
		return invalid("data_dir is required")
	}
	if c.MaxConcurrency < 0 {
		return invalid("max_concurrency must be non-negative")
	}
	if c.EmbeddingBatchSize < 0 {
		return invalid("embedding_batch_size must be non-negative")
	}
	if c.RequestsPerMinute < 0 {
		return invalid("requests_per_minute must be non-negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return invalid("retry.max_attempts must be at least 1")
	}
	return nil
}

// ValidateChunking checks chunk size and overlap: 0 <= overlap < size.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return invalid("chunk_size must be positive, got %d", size)
	}
	if overlap < 0 {
		return invalid("chunk_overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return invalid("chunk_overlap (%d) must be smaller than chunk_size (%d)", overlap, size)
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// RetryPolicy converts the retry section into a provider retry policy.
func (c *Config) RetryPolicy() provider.Policy {
	return provider.Policy{
		MaxAttempts:    c.Retry.MaxAttempts,
		BaseDelay:      c.Retry.BaseDelay,
		RateLimitDelay: c.Retry.RateLimitDelay,
		MaxDelay:       c.Retry.MaxDelay,
		Multiplier:     c.Retry.Multiplier,
		Jitter:         c.Retry.Jitter,
		Timeout:        c.Retry.Timeout,
	}
}

package config

import "time"

// ProviderType identifies an embedding or completion provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level regqa configuration, corresponding to regqa.yml.
type Config struct {
	Provider           ProviderType `yaml:"provider" koanf:"provider"`
	Model              string       `yaml:"model" koanf:"model"`
	BaseURL            string       `yaml:"base_url" koanf:"base_url"`
	EmbeddingProvider  ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel     string       `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingBaseURL   string       `yaml:"embedding_base_url" koanf:"embedding_base_url"`
	EmbeddingDims      int          `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	EmbeddingBatchSize int          `yaml:"embedding_batch_size" koanf:"embedding_batch_size"`

	DocumentsDir string   `yaml:"documents_dir" koanf:"documents_dir"`
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
	DataDir      string   `yaml:"data_dir" koanf:"data_dir"`

	ChunkSize    int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	TopK         int `yaml:"top_k" koanf:"top_k"`

	Temperature       float64 `yaml:"temperature" koanf:"temperature"`
	MaxTokens         int     `yaml:"max_tokens" koanf:"max_tokens"`
	SystemPrompt      string  `yaml:"system_prompt" koanf:"system_prompt"`
	MaxConcurrency    int     `yaml:"max_concurrency" koanf:"max_concurrency"`
	RequestsPerMinute int     `yaml:"requests_per_minute" koanf:"requests_per_minute"`

	Retry  RetryConfig  `yaml:"retry" koanf:"retry"`
	Server ServerConfig `yaml:"server" koanf:"server"`
	Log    LogConfig    `yaml:"log" koanf:"log"`
}

// RetryConfig controls the provider retry policy.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" koanf:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay" koanf:"base_delay"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay" koanf:"rate_limit_delay"`
	MaxDelay       time.Duration `yaml:"max_delay" koanf:"max_delay"`
	Multiplier     float64       `yaml:"multiplier" koanf:"multiplier"`
	Jitter         float64       `yaml:"jitter" koanf:"jitter"`
	Timeout        time.Duration `yaml:"timeout" koanf:"timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"` // allow all CORS origins (dev mode)
}

// LogConfig selects the log level and output format (console or json).
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

package config

import "time"

// DefaultSystemPrompt frames the assistant for the regulatory corpus.
const DefaultSystemPrompt = `You are a knowledge agent for tax and transfer pricing regulations.
Use only the numbered context passages to answer the question.
If the context does not contain the answer, reply exactly: "I don't know based on the provided documents."
Do not make up an answer. Cite the document and page for every claim as [source p.N].`

// DefaultExcludes are glob patterns skipped when scanning the documents directory.
var DefaultExcludes = []string{
	".git/**",
	"**/.*",
	"**/~$*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:           ProviderOpenAI,
		Model:              "gpt-3.5-turbo",
		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingModel:     "text-embedding-ada-002",
		EmbeddingBatchSize: 100,
		DocumentsDir:       "data/documents",
		Include:            []string{"**/*.pdf"},
		Exclude:            DefaultExcludes,
		DataDir:            "vector_db",
		ChunkSize:          1000,
		ChunkOverlap:       100,
		TopK:               4,
		Temperature:        0,
		MaxTokens:          1024,
		SystemPrompt:       DefaultSystemPrompt,
		MaxConcurrency:     4,
		Retry: RetryConfig{
			MaxAttempts:    5,
			BaseDelay:      500 * time.Millisecond,
			RateLimitDelay: 2 * time.Second,
			MaxDelay:       20 * time.Second,
			Multiplier:     2,
			Jitter:         0.2,
			Timeout:        60 * time.Second,
		},
		Server: ServerConfig{
			Port:     5000,
			AllowAll: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// embeddingDefaults maps embedding providers to a model used when none is configured.
var embeddingDefaults = map[ProviderType]string{
	ProviderOpenAI: "text-embedding-ada-002",
	ProviderOllama: "nomic-embed-text",
}

// completionDefaults maps completion providers to a model used when none is configured.
var completionDefaults = map[ProviderType]string{
	ProviderOpenAI:    "gpt-3.5-turbo",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderOllama:    "llama3",
}

// DefaultModels returns the completion and embedding model used for a provider
// when the config leaves them empty.
func DefaultModels(p ProviderType) (model, embeddingModel string) {
	model = completionDefaults[p]
	embeddingModel = embeddingDefaults[embeddingProviderFor(p)]
	return model, embeddingModel
}

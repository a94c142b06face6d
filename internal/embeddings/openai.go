package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/ziadkadry99/regqa/internal/provider"
)

// Known OpenAI embedding models.
const (
	ModelAda002              = "text-embedding-ada-002"
	ModelTextEmbedding3Small = "text-embedding-3-small"
	ModelTextEmbedding3Large = "text-embedding-3-large"
)

func openAIDimensions(model string) int {
	switch model {
	case ModelTextEmbedding3Large:
		return 3072
	case ModelAda002, ModelTextEmbedding3Small:
		return 1536
	default:
		return 0
	}
}

// OpenAIEmbedder generates embeddings using OpenAI's API or any
// OpenAI-compatible gateway.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates a new OpenAI embedder. baseURL and dimensions
// are optional; a zero dimension count falls back to the known model size.
func NewOpenAIEmbedder(apiKey, model, baseURL string, dimensions int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if dimensions <= 0 {
		dimensions = openAIDimensions(model)
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

func (e *OpenAIEmbedder) Name() string {
	return e.model
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed sends all texts in a single request. Batching is left to Resilient.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, provider.Classify("openai", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings, expected %d", len(resp.Data), len(texts))
	}

	// The API tags every vector with the index of its input.
	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Data {
		idx := emb.Index
		if idx < 0 || idx >= len(texts) || vectors[idx] != nil {
			idx = i
		}
		vectors[idx] = emb.Embedding
	}
	return vectors, nil
}

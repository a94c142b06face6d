package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbeddingUnavailable is returned when the embedding provider keeps
// failing with rate-limit or transient errors after all retries.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates one embedding per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors,
	// or 0 when it is only known after the first call.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// checkVectors verifies a provider response: one vector per input and a
// single dimensionality across all of them.
func checkVectors(vectors [][]float32, inputs int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("provider returned %d embeddings, expected %d", len(vectors), inputs)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
		if len(v) != len(vectors[0]) {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), len(vectors[0]))
		}
	}
	return nil
}

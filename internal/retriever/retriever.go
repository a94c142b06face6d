// Package retriever embeds a question and looks up its nearest chunks.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ziadkadry99/regqa/internal/embeddings"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

// DefaultTopK is the number of chunks retrieved when none is configured.
const DefaultTopK = 4

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is empty")

// Searcher is the read side of the vector store.
type Searcher interface {
	Query(ctx context.Context, vector []float32, k int) ([]vectordb.SearchResult, error)
}

// Retriever embeds questions and fetches the most similar chunks.
// Query embeddings are never cached.
type Retriever struct {
	embedder embeddings.Embedder
	store    Searcher
	topK     int
}

// New returns a Retriever. A non-positive topK uses DefaultTopK.
func New(embedder embeddings.Embedder, store Searcher, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// TopK returns the configured number of results.
func (r *Retriever) TopK() int { return r.topK }

// Retrieve returns up to k chunks closest to question, closest first.
// k <= 0 uses the configured top_k.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]vectordb.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if k <= 0 {
		k = r.topK
	}

	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding question: got %d vectors, expected 1", len(vectors))
	}

	results, err := r.store.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}
	return results, nil
}

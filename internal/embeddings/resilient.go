package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ziadkadry99/regqa/internal/provider"
)

// DefaultBatchSize is the number of texts sent per provider call.
const DefaultBatchSize = 100

// Resilient wraps an Embedder with batching and the provider retry policy.
// Batches are committed in order; a failing batch never alters the vectors
// of batches that already succeeded.
type Resilient struct {
	inner     Embedder
	batchSize int
	policy    provider.Policy
}

// NewResilient wraps inner. A non-positive batchSize uses DefaultBatchSize.
func NewResilient(inner Embedder, batchSize int, policy provider.Policy) *Resilient {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Resilient{inner: inner, batchSize: batchSize, policy: policy}
}

func (r *Resilient) Name() string { return r.inner.Name() }

func (r *Resilient) Dimensions() int { return r.inner.Dimensions() }

// Embed embeds texts batch by batch. Rate-limited and transient failures
// are retried; once retries are exhausted the error wraps
// ErrEmbeddingUnavailable. Auth and invalid-input failures are returned
// as they are, without retry.
func (r *Resilient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += r.batchSize {
		end := min(start+r.batchSize, len(texts))
		batch := texts[start:end]

		var vectors [][]float32
		policy := r.policy
		policy.OnRetry = func(err error, d time.Duration) {
			log.Warn().Err(err).Str("component", "embedder").Str("model", r.inner.Name()).
				Int("batch_start", start).Dur("backoff", d).Msg("retrying embedding batch")
			if r.policy.OnRetry != nil {
				r.policy.OnRetry(err, d)
			}
		}
		err := policy.Do(ctx, func(ctx context.Context) error {
			out, err := r.inner.Embed(ctx, batch)
			if err != nil {
				return err
			}
			vectors = out
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			if provider.KindOf(err).Retryable() {
				return nil, fmt.Errorf("%w: texts %d-%d: %w", ErrEmbeddingUnavailable, start, end-1, err)
			}
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
		}

		if err := checkVectors(vectors, len(batch)); err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
		}
		if len(all) > 0 && len(vectors[0]) != len(all[0]) {
			return nil, fmt.Errorf("embedding dimension changed from %d to %d", len(all[0]), len(vectors[0]))
		}
		all = append(all, vectors...)
	}
	return all, nil
}

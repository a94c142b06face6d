package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ziadkadry99/regqa/internal/provider"
)

// RetryingProvider applies a retry policy to every completion call.
// Rate-limited and transient failures are retried; the last error is
// returned once attempts are exhausted.
type RetryingProvider struct {
	provider Provider
	policy   provider.Policy
}

// NewRetryingProvider wraps p with policy.
func NewRetryingProvider(p Provider, policy provider.Policy) *RetryingProvider {
	return &RetryingProvider{provider: p, policy: policy}
}

func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	policy := r.policy
	policy.OnRetry = func(err error, d time.Duration) {
		log.Warn().Err(err).Str("component", "llm").Str("provider", r.provider.Name()).
			Dur("backoff", d).Msg("retrying completion")
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(err, d)
		}
	}

	var resp *CompletionResponse
	err := policy.Do(ctx, func(ctx context.Context) error {
		out, err := r.provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

package provider

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Policy is the retry policy shared by the embedder and the answer
// synthesizer. Rate-limited failures back off from RateLimitDelay, transient
// ones from BaseDelay; both grow by Multiplier up to MaxDelay.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         float64
	// Timeout bounds a single attempt. Expiry counts as a transient failure.
	Timeout time.Duration

	// OnRetry is called before each backoff sleep.
	OnRetry func(err error, delay time.Duration)
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		BaseDelay:      500 * time.Millisecond,
		RateLimitDelay: 2 * time.Second,
		MaxDelay:       20 * time.Second,
		Multiplier:     2,
		Jitter:         0.2,
		Timeout:        60 * time.Second,
	}
}

// kindBackOff picks the exponential schedule matching the kind of the last failure.
type kindBackOff struct {
	schedules map[Kind]*backoff.ExponentialBackOff
	last      Kind
}

func (b *kindBackOff) NextBackOff() time.Duration {
	eb, ok := b.schedules[b.last]
	if !ok {
		return backoff.Stop
	}
	return eb.NextBackOff()
}

func (b *kindBackOff) Reset() {
	for _, eb := range b.schedules {
		eb.Reset()
	}
}

func (p Policy) schedule(initial time.Duration) *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initial
	eb.RandomizationFactor = p.Jitter
	eb.Multiplier = p.Multiplier
	if eb.Multiplier < 1 {
		eb.Multiplier = 1
	}
	eb.MaxInterval = p.MaxDelay
	if eb.MaxInterval < initial {
		eb.MaxInterval = initial
	}
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// Do runs fn until it succeeds, fails with a non-retryable error, the parent
// context ends, or MaxAttempts is reached. The error of the last attempt is
// returned; callers decide how to surface exhausted retries.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	rateDelay := p.RateLimitDelay
	if rateDelay <= 0 {
		rateDelay = p.BaseDelay
	}

	kb := &kindBackOff{
		schedules: map[Kind]*backoff.ExponentialBackOff{
			KindTransient:   p.schedule(p.BaseDelay),
			KindRateLimited: p.schedule(rateDelay),
		},
	}
	b := backoff.WithContext(backoff.WithMaxRetries(kb, uint64(attempts-1)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		callCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) && KindOf(err) == KindUnknown {
			err = &Error{Provider: "call", Kind: KindTransient, Err: err}
		}

		kb.last = KindOf(err)
		if !kb.last.Retryable() {
			return backoff.Permanent(err)
		}
		log.Debug().Err(err).Int("attempt", attempt).Str("kind", kb.last.String()).Msg("provider call failed")
		return err
	}

	return backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(err, d)
		}
	})
}

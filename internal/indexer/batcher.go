package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ziadkadry99/regqa/internal/loader"
	"github.com/ziadkadry99/regqa/internal/provider"
)

// Batcher prepares and commits documents concurrently with bounded parallelism.
type Batcher struct {
	concurrency int
	pipeline    *Pipeline
	commit      CommitFunc
	onProgress  ProgressFunc
}

// NewBatcher creates a new Batcher with the given concurrency limit.
func NewBatcher(concurrency int, pipeline *Pipeline, commit CommitFunc, onProgress ProgressFunc) *Batcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batcher{
		concurrency: concurrency,
		pipeline:    pipeline,
		commit:      commit,
		onProgress:  onProgress,
	}
}

// ProcessFiles prepares every file and commits each one as soon as it is
// ready. One document failing does not stop the others, except for
// authentication failures, which cancel the remaining work.
func (b *Batcher) ProcessFiles(ctx context.Context, files []loader.FileInfo) *BatchResult {
	result := &BatchResult{Failed: make(map[string]error)}
	total := len(files)
	if total == 0 {
		return result
	}

	// Circuit breaker: a rejected API key fails every document the same way.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var authErr atomic.Pointer[error]

	sem := make(chan struct{}, b.concurrency)
	var mu sync.Mutex
	var processed int64

	done := func(name string, chunks int, err error) {
		mu.Lock()
		if err != nil {
			result.Failed[name] = err
		} else {
			result.Committed = append(result.Committed, name)
			result.Chunks += chunks
		}
		mu.Unlock()
		count := atomic.AddInt64(&processed, 1)
		if b.onProgress != nil {
			b.onProgress(int(count), total, name)
		}
	}

	var wg sync.WaitGroup
	for _, file := range files {
		// Check circuit breaker before starting new work.
		if errp := authErr.Load(); errp != nil {
			done(file.Name, 0, fmt.Errorf("skipped %s: %w", file.Name, *errp))
			continue
		}

		select {
		case <-ctx.Done():
			err := ctx.Err()
			if errp := authErr.Load(); errp != nil {
				err = *errp
			}
			done(file.Name, 0, fmt.Errorf("skipped %s: %w", file.Name, err))
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(f loader.FileInfo) {
			defer wg.Done()
			defer func() { <-sem }()

			if errp := authErr.Load(); errp != nil {
				done(f.Name, 0, fmt.Errorf("skipped %s: %w", f.Name, *errp))
				return
			}

			prepared, err := b.pipeline.Prepare(ctx, f)
			if err == nil {
				if cerr := b.commit(ctx, prepared); cerr != nil {
					err = fmt.Errorf("commit %s: %w", f.Name, cerr)
				}
			}
			if err != nil {
				// Detect rejected credentials and trip the circuit breaker.
				if errors.Is(err, provider.ErrAuth) && authErr.CompareAndSwap(nil, &err) {
					cancel()
				}
				done(f.Name, 0, err)
				return
			}
			done(f.Name, len(prepared.Entries), nil)
		}(file)
	}

	wg.Wait()
	return result
}

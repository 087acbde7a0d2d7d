// Package worker provides a bounded-parallel batch executor used by the
// ingestion pipeline to run embedding batches concurrently while keeping
// results in submission order.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

// BatchResult carries the outcome of one batch alongside its submission index.
type BatchResult[T any] struct {
	Index int
	Value T
	Err   error
}

// Pool runs batch jobs with a fixed concurrency limit.
// Results are returned ordered by submission index regardless of
// completion order.
type Pool struct {
	concurrency int
	logger      *slog.Logger
}

// NewPool creates a pool with the given concurrency.
// Concurrency below 1 is clamped to 1.
func NewPool(concurrency int, logger *slog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{concurrency: concurrency, logger: logger}
}

// Concurrency returns the configured parallelism.
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Run executes fn for each of n batches, at most p.concurrency at a time.
// The returned slice has length n and results[i] corresponds to batch i.
// A failing batch records its error in its slot; other batches still run.
// Context cancellation stops dispatching new batches; batches never
// dispatched carry ctx.Err().
func Run[T any](ctx context.Context, p *Pool, n int, fn func(ctx context.Context, index int) (T, error)) []BatchResult[T] {
	results := make([]BatchResult[T], n)
	if n == 0 {
		return results
	}

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			// Mark the remaining batches as not attempted
			for j := i; j < n; j++ {
				results[j] = BatchResult[T]{Index: j, Err: err}
			}
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()

			value, err := fn(ctx, index)
			results[index] = BatchResult[T]{Index: index, Value: value, Err: err}
			if err != nil {
				p.logger.Debug("batch failed", "batch", index, "error", err)
			}
		}(i)
	}

	wg.Wait()
	return results
}

package utils

import (
	"context"
	"sync"
)

// ExecuteWithResults runs functions with at most maxConcurrency in flight and
// returns their results in input order: results[i] and errs[i] belong to
// functions[i]. A non-positive limit falls back to GetSemaphoreLimit. A
// function that panics yields a *PanicError; one that never got a slot
// before ctx was done yields ctx.Err().
func ExecuteWithResults[T any](ctx context.Context, maxConcurrency int, functions ...func() (T, error)) ([]T, []error) {
	if len(functions) == 0 {
		return nil, nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = GetSemaphoreLimit()
	}

	sem := make(chan struct{}, maxConcurrency)
	results := make([]T, len(functions))
	errs := make([]error, len(functions))

	var wg sync.WaitGroup
	wg.Add(len(functions))
	for i, fn := range functions {
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()
			defer RecoverWithCallback(func(err error) { errs[i] = err })

			results[i], errs[i] = fn()
		}()
	}
	wg.Wait()
	return results, errs
}

// MapConcurrent applies fn to every item through ExecuteWithResults. The
// output slices are aligned with items.
func MapConcurrent[T, R any](ctx context.Context, maxConcurrency int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	functions := make([]func() (R, error), len(items))
	for i, item := range items {
		functions[i] = func() (R, error) { return fn(ctx, item) }
	}
	return ExecuteWithResults(ctx, maxConcurrency, functions...)
}

// Package settle runs independent operations concurrently and waits for
// all of them, keeping every outcome.  Unlike errgroup it never cancels the
// remaining work when one operation fails.
package settle

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Result is the outcome of the i-th operation.
type Result struct {
	Index int
	Err   error
}

// Results holds one Result per operation, in submission order.
type Results []Result

// Failed returns only the failed results.
func (rs Results) Failed() Results {
	var out Results
	for _, r := range rs {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Err combines every failure into one error, or nil when all succeeded.
func (rs Results) Err() error {
	var err error
	for _, r := range rs {
		err = multierr.Append(err, r.Err)
	}
	return err
}

// All calls fn(ctx, i) for every i in [0, n) concurrently and returns once
// all calls have returned.  A panic in fn is not recovered.
func All(ctx context.Context, n int, fn func(ctx context.Context, i int) error) Results {
	out := make(Results, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			out[i] = Result{Index: i, Err: fn(ctx, i)}
		}(i)
	}
	wg.Wait()
	return out
}

// Each is All over a slice.
func Each[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) error) Results {
	return All(ctx, len(items), func(ctx context.Context, i int) error {
		return fn(ctx, items[i])
	})
}

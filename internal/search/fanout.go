package search

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Collect runs task for every index in [0, n) on at most workers goroutines and
// returns the results in index order, so the merged output does not depend on
// scheduling. The first error cancels the remaining tasks.
func Collect[T any](ctx context.Context, workers, n int, task func(ctx context.Context, idx int) (T, error)) ([]T, error) {
	out := make([]T, n)
	if n == 0 {
		return out, ctx.Err()
	}
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := task(gctx, i)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

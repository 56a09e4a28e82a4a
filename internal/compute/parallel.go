package compute

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Parallel fans work items out over a bounded number of goroutines.
type Parallel struct {
	workers int
}

// NewParallel builds a parallel backend with the given worker bound.
// A bound of zero or less uses one worker per CPU.
func NewParallel(workers int) Parallel {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return Parallel{workers: workers}
}

func (p Parallel) Name() string { return "parallel" }

func (p Parallel) Map(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}

package compute

import (
	"context"
	"runtime"
)

// Backend executes n independent work items addressed by index.
type Backend interface {
	Name() string

	// Map runs fn for every index in [0, n). The first error stops
	// the batch and is returned; fn must be safe for the backend's
	// concurrency level.
	Map(ctx context.Context, n int, fn func(i int) error) error
}

// Auto selects the parallel backend on multicore machines and the
// serial one otherwise.
func Auto() Backend {
	if runtime.NumCPU() > 1 {
		return NewParallel(0)
	}
	return Serial{}
}

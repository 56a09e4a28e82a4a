package sim

import (
	"context"

	"github.com/githubhash01/Honours-Project/internal/compute"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// Ensemble runs one simulation per initial state. Because simulators
// and controllers carry per-run state, each run gets a fresh simulator
// from the build function.
type Ensemble struct {
	build   func() *Simulator
	backend compute.Backend
}

func NewEnsemble(build func() *Simulator, backend compute.Backend) *Ensemble {
	if backend == nil {
		backend = compute.Auto()
	}
	return &Ensemble{build: build, backend: backend}
}

// Run simulates every initial state and returns the results in order.
// The first failing run aborts the batch.
func (e *Ensemble) Run(ctx context.Context, inits []dynamics.State, cfg dynamics.Config) ([]*dynamics.Result, error) {
	results := make([]*dynamics.Result, len(inits))
	err := e.backend.Map(ctx, len(inits), func(i int) error {
		res, err := e.build().Run(ctx, inits[i], cfg)
		if err != nil {
			return err
		}
		results[i] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

package optimize

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/githubhash01/Honours-Project/internal/diff"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// TrajOptOptions configures open-loop trajectory optimization.
type TrajOptOptions struct {
	Iters   int     // default 50
	LR      float64 // default 0.2
	InitStd float64 // initial control noise scale, default 2.0

	// Tol stops early when the relative cost improvement between
	// iterations falls below it. Zero disables early stopping.
	Tol float64

	Eps  float64 // finite-difference perturbation override
	Seed int64

	Log *zap.SugaredLogger

	Progress func(iter int, cost float64)
}

// TrajOptResult holds the optimized control sequence and its rollout.
type TrajOptResult struct {
	Controls []dynamics.Control
	States   []dynamics.State
	Curve    []float64
	Best     float64
	Iters    int
	WallTime time.Duration
}

// TrajOpt optimizes an open-loop control sequence for the task from the
// given initial state by gradient descent on the rollout cost, with
// gradients from the adjoint pass. Controls are projected back into the
// task bounds after every step.
func TrajOpt(ctx context.Context, tk *task.Task, integ dynamics.Integrator, x0 dynamics.State, opts TrajOptOptions) (*TrajOptResult, error) {
	if opts.Iters <= 0 {
		opts.Iters = 50
	}
	if opts.LR <= 0 {
		opts.LR = 0.2
	}
	if opts.InitStd <= 0 {
		opts.InitStd = 2.0
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}

	fd := diff.DefaultOptions()
	if opts.Eps > 0 {
		fd.Eps = opts.Eps
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	m := tk.System.ControlDim()
	u := make([]dynamics.Control, tk.Horizon)
	for t := range u {
		row := make(dynamics.Control, m)
		for i := range row {
			row[i] = rng.NormFloat64() * opts.InitStd
		}
		u[t] = tk.Clamp(row)
	}

	start := time.Now()
	res := &TrajOptResult{Best: math.Inf(1)}
	pol := func(step int, x dynamics.State) dynamics.Control { return u[step] }

	runGrad := func(x dynamics.State) []float64 { return tk.Running.Grad(x) }
	ctrlGrad := func(c dynamics.Control) []float64 { return tk.Control.Grad(c) }
	termGrad := func(x dynamics.State) []float64 { return tk.Terminal.Grad(x) }

	opts.Log.Infow("trajectory optimization started",
		"task", tk.Name, "horizon", tk.Horizon, "iters", opts.Iters, "lr", opts.LR)

	prev := math.Inf(1)
	for iter := 0; iter < opts.Iters; iter++ {
		select {
		case <-ctx.Done():
			res.WallTime = time.Since(start)
			return res, fmt.Errorf("optimize: trajectory optimization canceled: %w", ctx.Err())
		default:
		}

		tape := diff.Forward(tk.System, integ, x0, pol, tk.Horizon, tk.Dt, 0, fd)
		cost := tk.TrajectoryCost(tape.States, tape.Controls)
		res.Curve = append(res.Curve, cost)
		res.Iters = iter + 1
		if opts.Progress != nil {
			opts.Progress(iter, cost)
		}

		if cost < res.Best {
			res.Best = cost
			res.Controls = cloneControls(u)
			res.States = tape.States
		}

		if opts.Tol > 0 && math.Abs(prev-cost) < opts.Tol*math.Max(1, math.Abs(prev)) {
			break
		}
		prev = cost

		gU, _ := tape.Adjoint(runGrad, ctrlGrad, termGrad, tk.Dt)
		for t := range u {
			for i := range u[t] {
				u[t][i] -= opts.LR * gU[t][i]
			}
			u[t] = tk.Clamp(u[t])
		}
	}

	res.WallTime = time.Since(start)
	opts.Log.Infow("trajectory optimization finished", "best", res.Best, "iters", res.Iters)
	return res, nil
}

func cloneControls(u []dynamics.Control) []dynamics.Control {
	out := make([]dynamics.Control, len(u))
	for i := range u {
		out[i] = u[i].Clone()
	}
	return out
}

package analysis

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// SweepPoint is the closed-loop performance at one parameter setting.
// Cost is the mean over completed episodes and NaN when every episode
// diverged; Diverged reports whether any episode left the valid region.
type SweepPoint struct {
	Value    float64
	Cost     float64
	Diverged bool
}

// ParamSweep re-evaluates a trained controller while one physical
// parameter moves across a grid, producing a robustness curve. The same
// initial states are replayed at every grid value so the curve isolates
// the parameter's effect. The original value is restored before
// returning.
func ParamSweep(
	ctx context.Context,
	tk *task.Task,
	integ dynamics.Integrator,
	ctrl dynamics.Controller,
	param string,
	values []float64,
	episodes int,
	seed int64,
) ([]SweepPoint, error) {
	tunable, ok := tk.System.(dynamics.Configurable)
	if !ok {
		return nil, fmt.Errorf("analysis: %s system has no tunable parameters", tk.Name)
	}
	orig, ok := tunable.GetParams()[param]
	if !ok {
		return nil, fmt.Errorf("unknown param: %s", param)
	}
	if tk.Init == nil {
		return nil, fmt.Errorf("analysis: task %s has no initial state distribution", tk.Name)
	}
	if episodes <= 0 {
		episodes = 1
	}
	defer tunable.SetParam(param, orig)

	points := make([]SweepPoint, 0, len(values))
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return points, fmt.Errorf("%w: %v", dynamics.ErrContextCanceled, err)
		}
		if err := tunable.SetParam(param, v); err != nil {
			return points, err
		}

		rng := rand.New(rand.NewSource(seed))
		pt := SweepPoint{Value: v}
		total, completed := 0.0, 0
		for e := 0; e < episodes; e++ {
			cost, finished := EpisodeCost(tk, integ, ctrl, rng)
			if !finished {
				pt.Diverged = true
				continue
			}
			total += cost
			completed++
		}
		if completed == 0 {
			pt.Cost = math.NaN()
		} else {
			pt.Cost = total / float64(completed)
		}
		points = append(points, pt)
	}
	return points, nil
}

// EpisodeCost runs one closed-loop episode from the task's initial
// distribution and returns its trajectory cost. The boolean is false
// when the state diverged before the episode ended, in which case the
// cost is the partial sum without the terminal term.
func EpisodeCost(tk *task.Task, integ dynamics.Integrator, ctrl dynamics.Controller, rng *rand.Rand) (float64, bool) {
	x := tk.Init(rng)
	if ctrl != nil {
		ctrl.Reset()
	}

	total := 0.0
	for step := 0; step < tk.Horizon; step++ {
		t := float64(step) * tk.Dt
		var u dynamics.Control
		if ctrl == nil {
			u = make(dynamics.Control, tk.System.ControlDim())
		} else {
			u = tk.Clamp(ctrl.Compute(x, t))
		}
		total += tk.StepCost(x, u)
		x = integ.Step(tk.System, x, u, t, tk.Dt)
		if !x.IsValid() {
			return total, false
		}
		if tk.Done != nil && tk.Done(x, step+1) {
			break
		}
	}
	return total + tk.Terminal.Eval(x), true
}

// Evaluate averages [EpisodeCost] over several episodes. Episodes that
// diverge are excluded from the mean and counted separately; mean and
// std are NaN when every episode diverges.
func Evaluate(tk *task.Task, integ dynamics.Integrator, ctrl dynamics.Controller, episodes int, seed int64) (mean, std float64, diverged int) {
	if episodes <= 0 {
		episodes = 1
	}
	rng := rand.New(rand.NewSource(seed))
	costs := make([]float64, 0, episodes)
	for e := 0; e < episodes; e++ {
		cost, finished := EpisodeCost(tk, integ, ctrl, rng)
		if !finished {
			diverged++
			continue
		}
		costs = append(costs, cost)
	}
	if len(costs) == 0 {
		return math.NaN(), math.NaN(), diverged
	}
	mean = stat.Mean(costs, nil)
	if len(costs) > 1 {
		std = stat.StdDev(costs, nil)
	}
	return mean, std, diverged
}

package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/integrators"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// frozenSystem never moves, making episode costs exact.
type frozenSystem struct{}

func (frozenSystem) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	return dynamics.State{0, 0}
}
func (frozenSystem) StateDim() int   { return 2 }
func (frozenSystem) ControlDim() int { return 1 }

// explodeSystem leaves the valid region on the first step.
type explodeSystem struct{}

func (explodeSystem) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	return dynamics.State{math.Inf(1), 0}
}
func (explodeSystem) StateDim() int   { return 2 }
func (explodeSystem) ControlDim() int { return 1 }

func frozenTask(done func(x dynamics.State, step int) bool) *task.Task {
	return &task.Task{
		Name:     "frozen",
		System:   frozenSystem{},
		Dt:       0.1,
		Horizon:  10,
		Running:  task.NewDiagonal(1, 1),
		Control:  task.Zero{},
		Terminal: task.Zero{},
		Encoder:  &task.Identity{N: 2},
		Init: func(rng *rand.Rand) dynamics.State {
			return dynamics.State{1, 0}
		},
		Done: done,
	}
}

func TestEpisodeCost(t *testing.T) {
	tk := frozenTask(nil)
	cost, finished := EpisodeCost(tk, integrators.NewEuler(), nil, rand.New(rand.NewSource(1)))
	if !finished {
		t.Fatal("episode reported diverged")
	}
	// 10 steps of dt*running on the frozen state [1, 0].
	if math.Abs(cost-1.0) > 1e-12 {
		t.Errorf("cost = %g, want 1.0", cost)
	}
}

func TestEpisodeCostDone(t *testing.T) {
	tk := frozenTask(func(x dynamics.State, step int) bool { return step >= 2 })
	cost, finished := EpisodeCost(tk, integrators.NewEuler(), nil, rand.New(rand.NewSource(1)))
	if !finished {
		t.Fatal("episode reported diverged")
	}
	if math.Abs(cost-0.2) > 1e-12 {
		t.Errorf("cost = %g, want 0.2 after early termination", cost)
	}
}

func TestEpisodeCostDiverged(t *testing.T) {
	tk := frozenTask(nil)
	tk.System = explodeSystem{}
	_, finished := EpisodeCost(tk, integrators.NewEuler(), nil, rand.New(rand.NewSource(1)))
	if finished {
		t.Error("expected divergence")
	}
}

func TestEvaluate(t *testing.T) {
	tk, err := task.New("di")
	if err != nil {
		t.Fatal(err)
	}
	mean, std, diverged := Evaluate(tk, integrators.NewRK4(), nil, 4, 42)
	if diverged != 0 {
		t.Fatalf("diverged = %d, want 0", diverged)
	}
	if math.IsNaN(mean) || mean <= 0 {
		t.Errorf("mean = %g, want positive", mean)
	}
	if std < 0 {
		t.Errorf("std = %g, want non-negative", std)
	}
}

func TestEvaluateAllDiverged(t *testing.T) {
	tk := frozenTask(nil)
	tk.System = explodeSystem{}
	mean, _, diverged := Evaluate(tk, integrators.NewEuler(), nil, 3, 1)
	if diverged != 3 {
		t.Errorf("diverged = %d, want 3", diverged)
	}
	if !math.IsNaN(mean) {
		t.Errorf("mean = %g, want NaN", mean)
	}
}

func TestParamSweep(t *testing.T) {
	tk, err := task.New("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	before := tk.System.(dynamics.Configurable).GetParams()["mass"]

	points, err := ParamSweep(context.Background(), tk, integrators.NewRK4(), nil,
		"mass", []float64{0.8, 1.0, 1.2}, 2, 11)
	if err != nil {
		t.Fatalf("ParamSweep: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	for i, want := range []float64{0.8, 1.0, 1.2} {
		if points[i].Value != want {
			t.Errorf("point %d value = %g, want %g", i, points[i].Value, want)
		}
		if points[i].Diverged || math.IsNaN(points[i].Cost) {
			t.Errorf("point %d diverged: %+v", i, points[i])
		}
	}

	after := tk.System.(dynamics.Configurable).GetParams()["mass"]
	if after != before {
		t.Errorf("mass = %g after sweep, want %g restored", after, before)
	}
}

func TestParamSweepReplaysInits(t *testing.T) {
	tk, err := task.New("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	points, err := ParamSweep(context.Background(), tk, integrators.NewEuler(), nil,
		"mass", []float64{1.0, 1.0}, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if points[0].Cost != points[1].Cost {
		t.Errorf("identical settings gave %g and %g", points[0].Cost, points[1].Cost)
	}
}

func TestParamSweepUnknownParam(t *testing.T) {
	tk, err := task.New("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParamSweep(context.Background(), tk, integrators.NewEuler(), nil,
		"flux", []float64{1}, 1, 1); err == nil {
		t.Error("expected error for unknown param")
	}
}

func TestParamSweepNotConfigurable(t *testing.T) {
	tk := frozenTask(nil)
	if _, err := ParamSweep(context.Background(), tk, integrators.NewEuler(), nil,
		"mass", []float64{1}, 1, 1); err == nil {
		t.Error("expected error for non-configurable system")
	}
}

func TestParamSweepCancellation(t *testing.T) {
	tk, err := task.New("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ParamSweep(ctx, tk, integrators.NewEuler(), nil, "mass", []float64{1}, 1, 1)
	if !errors.Is(err, dynamics.ErrContextCanceled) {
		t.Errorf("err = %v, want ErrContextCanceled", err)
	}
}

package task

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/physics"
)

var factories = map[string]func() *Task{
	"di":       DoubleIntegrator,
	"cartpole": Cartpole,
	"pendulum": Pendulum,
	"arm":      Arm,
}

// New constructs a fresh task by name. Each call returns independent
// system instances so parameter sweeps cannot leak between runs.
func New(name string) (*Task, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown task: %s", name)
	}
	return factory(), nil
}

// Names lists the available tasks, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

// DoubleIntegrator regulates a point mass to the origin.
func DoubleIntegrator() *Task {
	sys := physics.NewDoubleIntegrator()
	return &Task{
		Name:     "di",
		System:   sys,
		Dt:       0.01,
		Horizon:  100,
		Running:  NewDiagonal(10, 0.1),
		Control:  NewDiagonal(0.01),
		Terminal: NewDiagonal(100, 1),
		Encoder:  &Identity{N: 2},
		Init: func(rng *rand.Rand) dynamics.State {
			return dynamics.State{
				uniform(rng, -1, 1),
				uniform(rng, -0.7, 0.7),
			}
		},
		R: mat.NewDense(1, 1, []float64{0.01}),
		G: mat.NewDense(2, 1, []float64{0, 1}),
	}
}

// Cartpole keeps the pole upright from small perturbations.
func Cartpole() *Task {
	sys := physics.NewCartPole()
	return &Task{
		Name:     "cartpole",
		System:   sys,
		Dt:       0.01,
		Horizon:  100,
		Running:  Zero{},
		Control:  NewDiagonal(1),
		Terminal: NewDiagonal(25, 0.25, 100, 1),
		Encoder:  &Identity{N: 4},
		Init: func(rng *rand.Rand) dynamics.State {
			x := make(dynamics.State, 4)
			for i := range x {
				x[i] = uniform(rng, -0.1, 0.1)
			}
			return x
		},
	}
}

// Pendulum swings the pendulum up to the inverted position under a
// torque bound below the static gravity limit.
func Pendulum() *Task {
	sys := physics.NewPendulum()
	swing := &Swingup{KPos: 1, KVel: 0.1}
	return &Task{
		Name:         "pendulum",
		System:       sys,
		Dt:           0.01,
		Horizon:      200,
		Running:      swing,
		Control:      NewDiagonal(0.001),
		Terminal:     &Scaled{Inner: swing, K: 5},
		Encoder:      &Trig{N: 2, Angles: []int{0}},
		ControlLimit: 6.0,
		Init: func(rng *rand.Rand) dynamics.State {
			return dynamics.State{
				uniform(rng, math.Pi-1, math.Pi+1),
				uniform(rng, -1, 1),
			}
		},
	}
}

// Arm drives the manipulator tip to a fixed planar target.
func Arm() *Task {
	sys := physics.NewTwoLinkArm()
	reach := &Reach{
		Arm:     sys,
		TargetX: 0.5,
		TargetY: 0.5,
		WPos:    10,
		WVel:    0.1,
	}
	return &Task{
		Name:     "arm",
		System:   sys,
		Dt:       0.01,
		Horizon:  256,
		Running:  reach,
		Control:  NewDiagonal(0.1, 0.1),
		Terminal: &Scaled{Inner: reach, K: 0.01},
		Encoder:  &Trig{N: 4, Angles: []int{0, 1}},
		Init: func(rng *rand.Rand) dynamics.State {
			return dynamics.State{
				uniform(rng, -1.57, 1.57),
				uniform(rng, -1.57, 1.57),
				uniform(rng, -0.1, 0.1),
				uniform(rng, -0.1, 0.1),
			}
		},
		Done: func(x dynamics.State, step int) bool {
			if invalid(x) {
				return true
			}
			if math.Abs(x[0]) > 2.2*math.Pi || math.Abs(x[1]) > 2.2*math.Pi {
				return true
			}
			if math.Abs(x[2]) > 10 || math.Abs(x[3]) > 10 {
				return true
			}
			return false
		},
	}
}

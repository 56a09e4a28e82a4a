package task

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// Task binds a system to an objective: quadratic-horizon costs, initial
// state distribution, observation encoding and termination rule. The
// per-step cost convention is dt*(running(x_t) + control(u_t)) for
// t = 0..Horizon-1 plus terminal(x_T).
type Task struct {
	Name    string
	System  dynamics.System
	Dt      float64
	Horizon int

	Running  Cost
	Control  Cost
	Terminal Cost

	Encoder Encoder
	Init    func(rng *rand.Rand) dynamics.State

	// Done reports early termination; nil means time limit only.
	Done func(x dynamics.State, step int) bool

	// ControlLimit bounds each actuator to [-limit, limit]; 0 = unbounded.
	ControlLimit float64

	// R and G parameterize the Hamilton-Jacobi-Bellman control rule
	// u = -1/2 R^-1 G' dV/dx; nil on tasks that never use it.
	R *mat.Dense
	G *mat.Dense
}

// ObsDim is the policy input width.
func (t *Task) ObsDim() int {
	return t.Encoder.Dim()
}

// StepCost is the running portion of the cost at one step.
func (t *Task) StepCost(x dynamics.State, u dynamics.Control) float64 {
	return t.Dt * (t.Running.Eval(x) + t.Control.Eval(u))
}

// TrajectoryCost sums step costs over a rollout and adds the terminal
// cost of the final state. States has Horizon+1 entries, Controls Horizon.
func (t *Task) TrajectoryCost(states []dynamics.State, controls []dynamics.Control) float64 {
	total := 0.0
	for i, u := range controls {
		total += t.StepCost(states[i], u)
	}
	return total + t.Terminal.Eval(states[len(states)-1])
}

// Clamp applies the actuator bound in place and returns u.
func (t *Task) Clamp(u dynamics.Control) dynamics.Control {
	if t.ControlLimit <= 0 {
		return u
	}
	for i := range u {
		u[i] = math.Max(-t.ControlLimit, math.Min(t.ControlLimit, u[i]))
	}
	return u
}

// invalid reports whether the state has left the workable region.
func invalid(x dynamics.State) bool {
	return !x.IsValid()
}

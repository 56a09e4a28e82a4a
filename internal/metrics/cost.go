package metrics

import (
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// Cost accumulates the task's running cost along a rollout. The
// terminal cost is not included since metrics observe pre-step states.
type Cost struct {
	name string
	task *task.Task
	sum  float64
}

func NewCost(tk *task.Task) *Cost {
	return &Cost{
		name: "cost",
		task: tk,
	}
}

func (c *Cost) Name() string { return c.name }

func (c *Cost) Observe(x dynamics.State, u dynamics.Control, t float64) {
	c.sum += c.task.StepCost(x, u)
}

func (c *Cost) Value() float64 {
	return c.sum
}

func (c *Cost) Reset() {
	c.sum = 0
}

// Defaults returns the standard metric set for a system.
func Defaults(sys dynamics.System) []dynamics.Metric {
	return []dynamics.Metric{
		NewEnergy(sys),
		NewEnergyDrift(sys),
		NewControlEffort(),
		NewStability(1e3),
	}
}

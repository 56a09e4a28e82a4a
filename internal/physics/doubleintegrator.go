package physics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// DoubleIntegrator is a point mass on a line: q_ddot = u/m.
// State is [q, v].
type DoubleIntegrator struct {
	Mass float64
}

func NewDoubleIntegrator() *DoubleIntegrator {
	return &DoubleIntegrator{Mass: 1.0}
}

func (d *DoubleIntegrator) StateDim() int {
	return 2
}

func (d *DoubleIntegrator) ControlDim() int {
	return 1
}

func (d *DoubleIntegrator) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}
	return dynamics.State{x[1], force / d.Mass}
}

func (d *DoubleIntegrator) Energy(x dynamics.State) float64 {
	return 0.5 * d.Mass * x[1] * x[1]
}

func (d *DoubleIntegrator) Linearize(x dynamics.State, u dynamics.Control, t float64) (*mat.Dense, *mat.Dense) {
	a := mat.NewDense(2, 2, []float64{0, 1, 0, 0})
	b := mat.NewDense(2, 1, []float64{0, 1 / d.Mass})
	return a, b
}

func (d *DoubleIntegrator) GetParams() map[string]float64 {
	return map[string]float64{"mass": d.Mass}
}

func (d *DoubleIntegrator) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("%w: mass must be positive", dynamics.ErrParameterBounds)
		}
		d.Mass = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

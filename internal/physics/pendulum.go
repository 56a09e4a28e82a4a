package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *Pendulum) StateDim() int {
	return 2
}

func (p *Pendulum) ControlDim() int {
	return 1
}

// Derive returns [omega, alpha]. Theta is measured from the upright
// position, so gravity accelerates the pendulum away from theta = 0
// and the hanging rest point sits at theta = pi.
func (p *Pendulum) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	theta := x[0]
	omega := x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}
	alpha := (-p.Damping*omega + p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / (p.Mass * p.Length * p.Length)

	return dynamics.State{omega, alpha}
}

func (p *Pendulum) Energy(x dynamics.State) float64 {
	// KE = 0.5 * m * (L*omega)^2
	// PE = m * g * L * (1 + cos(theta)), zero at the hanging rest
	// point.
	v := p.Length * x[1]
	ke := 0.5 * p.Mass * v * v
	pe := p.Mass * p.Gravity * p.Length * (1.0 + math.Cos(x[0]))
	return ke + pe
}

func (p *Pendulum) Linearize(x dynamics.State, u dynamics.Control, t float64) (*mat.Dense, *mat.Dense) {
	ml2 := p.Mass * p.Length * p.Length
	a := mat.NewDense(2, 2, []float64{
		0, 1,
		p.Gravity / p.Length * math.Cos(x[0]), -p.Damping / ml2,
	})
	b := mat.NewDense(2, 1, []float64{0, 1 / ml2})
	return a, b
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("%w: mass must be positive", dynamics.ErrParameterBounds)
		}
		p.Mass = value
	case "length":
		if value <= 0 {
			return fmt.Errorf("%w: length must be positive", dynamics.ErrParameterBounds)
		}
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

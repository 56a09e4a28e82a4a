package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// CartPole is the classic cart-pole in Barto's formulation.
// State is [x, xdot, theta, omega] with theta = 0 upright.
type CartPole struct {
	CartMass   float64
	PoleMass   float64
	PoleLength float64
	Gravity    float64
}

func NewCartPole() *CartPole {
	return &CartPole{
		CartMass:   1.0,
		PoleMass:   0.1,
		PoleLength: 1.0,
		Gravity:    9.81,
	}
}

func (c *CartPole) StateDim() int {
	return 4
}

func (c *CartPole) ControlDim() int {
	return 1
}

func (c *CartPole) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	vel := x[1]
	theta := x[2]
	omega := x[3]

	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	mc := c.CartMass
	mp := c.PoleMass
	l := c.PoleLength
	g := c.Gravity

	sint := math.Sin(theta)
	cost := math.Cos(theta)

	temp := (force + mp*l*omega*omega*sint) / (mc + mp)
	thetaacc := (g*sint - cost*temp) / (l * (4.0/3.0 - mp*cost*cost/(mc+mp)))
	xacc := temp - mp*l*thetaacc*cost/(mc+mp)

	return dynamics.State{vel, xacc, omega, thetaacc}
}

func (c *CartPole) Energy(x dynamics.State) float64 {
	vel := x[1]
	theta := x[2]
	omega := x[3]

	mc := c.CartMass
	mp := c.PoleMass
	l := c.PoleLength

	// Pole treated as a rod pivoting at the cart, COM at l/2.
	vpx := vel + (l/2)*omega*math.Cos(theta)
	vpy := (l / 2) * omega * math.Sin(theta)
	inertia := mp * l * l / 12.0

	ke := 0.5*mc*vel*vel + 0.5*mp*(vpx*vpx+vpy*vpy) + 0.5*inertia*omega*omega
	pe := mp * c.Gravity * (l / 2) * math.Cos(theta)
	return ke + pe
}

func (c *CartPole) Linearize(x dynamics.State, u dynamics.Control, t float64) (*mat.Dense, *mat.Dense) {
	theta := x[2]
	omega := x[3]
	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	mc := c.CartMass
	mp := c.PoleMass
	l := c.PoleLength
	g := c.Gravity
	m := mc + mp

	sint := math.Sin(theta)
	cost := math.Cos(theta)

	temp := (force + mp*l*omega*omega*sint) / m
	dTempTheta := mp * l * omega * omega * cost / m
	dTempOmega := 2 * mp * l * omega * sint / m
	dTempForce := 1 / m

	den := l * (4.0/3.0 - mp*cost*cost/m)
	dDenTheta := l * 2 * mp * cost * sint / m

	num := g*sint - cost*temp
	thetaacc := num / den
	dNumTheta := g*cost + sint*temp - cost*dTempTheta

	dThAccTheta := (dNumTheta*den - num*dDenTheta) / (den * den)
	dThAccOmega := -cost * dTempOmega / den
	dThAccForce := -cost * dTempForce / den

	k := mp * l / m
	dXAccTheta := dTempTheta - k*(dThAccTheta*cost-thetaacc*sint)
	dXAccOmega := dTempOmega - k*dThAccOmega*cost
	dXAccForce := dTempForce - k*dThAccForce*cost

	a := mat.NewDense(4, 4, []float64{
		0, 1, 0, 0,
		0, 0, dXAccTheta, dXAccOmega,
		0, 0, 0, 1,
		0, 0, dThAccTheta, dThAccOmega,
	})
	b := mat.NewDense(4, 1, []float64{0, dXAccForce, 0, dThAccForce})
	return a, b
}

func (c *CartPole) GetParams() map[string]float64 {
	return map[string]float64{
		"cart_mass":   c.CartMass,
		"pole_mass":   c.PoleMass,
		"pole_length": c.PoleLength,
		"gravity":     c.Gravity,
	}
}

func (c *CartPole) SetParam(name string, value float64) error {
	switch name {
	case "cart_mass":
		if value <= 0 {
			return fmt.Errorf("%w: cart_mass must be positive", dynamics.ErrParameterBounds)
		}
		c.CartMass = value
	case "pole_mass":
		if value <= 0 {
			return fmt.Errorf("%w: pole_mass must be positive", dynamics.ErrParameterBounds)
		}
		c.PoleMass = value
	case "pole_length":
		if value <= 0 {
			return fmt.Errorf("%w: pole_length must be positive", dynamics.ErrParameterBounds)
		}
		c.PoleLength = value
	case "gravity":
		c.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// TwoLinkArm is a planar two-link manipulator moving in the horizontal
// plane (no gravity term). State is [theta1, theta2, omega1, omega2],
// controls are the joint torques. Link COMs sit at mid-length, link
// inertias are thin-rod values about the COM.
type TwoLinkArm struct {
	Mass1   float64
	Mass2   float64
	Len1    float64
	Len2    float64
	Damping float64
}

func NewTwoLinkArm() *TwoLinkArm {
	return &TwoLinkArm{
		Mass1:   1.0,
		Mass2:   1.0,
		Len1:    0.5,
		Len2:    0.5,
		Damping: 0.1,
	}
}

func (a *TwoLinkArm) StateDim() int {
	return 4
}

func (a *TwoLinkArm) ControlDim() int {
	return 2
}

// massMatrix returns the entries of the symmetric 2x2 inertia matrix at
// joint configuration (theta2 is all that matters).
func (a *TwoLinkArm) massMatrix(theta2 float64) (m11, m12, m22 float64) {
	lc1 := a.Len1 / 2
	lc2 := a.Len2 / 2
	i1 := a.Mass1 * a.Len1 * a.Len1 / 12
	i2 := a.Mass2 * a.Len2 * a.Len2 / 12
	cos2 := math.Cos(theta2)

	m11 = a.Mass1*lc1*lc1 + i1 + a.Mass2*(a.Len1*a.Len1+lc2*lc2+2*a.Len1*lc2*cos2) + i2
	m12 = a.Mass2*(lc2*lc2+a.Len1*lc2*cos2) + i2
	m22 = a.Mass2*lc2*lc2 + i2
	return m11, m12, m22
}

func (a *TwoLinkArm) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	theta2 := x[1]
	omega1 := x[2]
	omega2 := x[3]

	tau1, tau2 := 0.0, 0.0
	if len(u) > 0 {
		tau1 = u[0]
	}
	if len(u) > 1 {
		tau2 = u[1]
	}

	m11, m12, m22 := a.massMatrix(theta2)

	// Coriolis/centrifugal terms.
	h := a.Mass2 * a.Len1 * (a.Len2 / 2) * math.Sin(theta2)
	c1 := -h*omega2*omega2 - 2*h*omega1*omega2
	c2 := h * omega1 * omega1

	rhs1 := tau1 - c1 - a.Damping*omega1
	rhs2 := tau2 - c2 - a.Damping*omega2

	det := m11*m22 - m12*m12
	alpha1 := (m22*rhs1 - m12*rhs2) / det
	alpha2 := (-m12*rhs1 + m11*rhs2) / det

	return dynamics.State{omega1, omega2, alpha1, alpha2}
}

func (a *TwoLinkArm) Energy(x dynamics.State) float64 {
	omega1 := x[2]
	omega2 := x[3]
	m11, m12, m22 := a.massMatrix(x[1])
	return 0.5 * (m11*omega1*omega1 + 2*m12*omega1*omega2 + m22*omega2*omega2)
}

// Tip returns the end-effector position in the plane.
func (a *TwoLinkArm) Tip(x dynamics.State) (px, py float64) {
	t1 := x[0]
	t12 := x[0] + x[1]
	px = a.Len1*math.Cos(t1) + a.Len2*math.Cos(t12)
	py = a.Len1*math.Sin(t1) + a.Len2*math.Sin(t12)
	return px, py
}

// TipJacobian returns d(tip)/d(theta1, theta2), a 2x2 matrix.
func (a *TwoLinkArm) TipJacobian(x dynamics.State) *mat.Dense {
	t1 := x[0]
	t12 := x[0] + x[1]
	s1, c1 := math.Sincos(t1)
	s12, c12 := math.Sincos(t12)

	return mat.NewDense(2, 2, []float64{
		-a.Len1*s1 - a.Len2*s12, -a.Len2 * s12,
		a.Len1*c1 + a.Len2*c12, a.Len2 * c12,
	})
}

func (a *TwoLinkArm) GetParams() map[string]float64 {
	return map[string]float64{
		"mass1":   a.Mass1,
		"mass2":   a.Mass2,
		"len1":    a.Len1,
		"len2":    a.Len2,
		"damping": a.Damping,
	}
}

func (a *TwoLinkArm) SetParam(name string, value float64) error {
	switch name {
	case "mass1", "mass2", "len1", "len2":
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive", dynamics.ErrParameterBounds, name)
		}
	}

	switch name {
	case "mass1":
		a.Mass1 = value
	case "mass2":
		a.Mass2 = value
	case "len1":
		a.Len1 = value
	case "len2":
		a.Len2 = value
	case "damping":
		a.Damping = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

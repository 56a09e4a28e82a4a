package physics

import (
	"math"
	"testing"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

func TestArmEquilibrium(t *testing.T) {
	a := NewTwoLinkArm()

	dx := a.Derive(dynamics.State{0.5, -0.3, 0, 0}, dynamics.Control{0, 0}, 0)

	for i, v := range dx {
		if math.Abs(v) > 1e-12 {
			t.Errorf("derivative[%d] = %v at rest with no torque, want 0", i, v)
		}
	}
}

func TestArmMassMatrixPositiveDefinite(t *testing.T) {
	a := NewTwoLinkArm()

	for _, theta2 := range []float64{-math.Pi, -1.5, 0, 1.5, math.Pi} {
		m11, m12, m22 := a.massMatrix(theta2)
		det := m11*m22 - m12*m12
		if m11 <= 0 || det <= 0 {
			t.Errorf("mass matrix not positive definite at theta2=%v: m11=%v det=%v", theta2, m11, det)
		}
	}
}

func TestArmEnergyConservation(t *testing.T) {
	a := NewTwoLinkArm()
	a.Damping = 0

	x := dynamics.State{0.3, 0.7, 1.0, -0.5}
	u := dynamics.Control{0, 0}
	e0 := a.Energy(x)

	// RK4 steps inline; no torque, no damping: energy must hold.
	dt := 0.001
	for i := 0; i < 2000; i++ {
		t0 := float64(i) * dt
		k1 := a.Derive(x, u, t0)
		k2 := a.Derive(x.AddScaled(k1, dt/2), u, t0+dt/2)
		k3 := a.Derive(x.AddScaled(k2, dt/2), u, t0+dt/2)
		k4 := a.Derive(x.AddScaled(k3, dt), u, t0+dt)
		for j := range x {
			x[j] += dt / 6 * (k1[j] + 2*k2[j] + 2*k3[j] + k4[j])
		}
	}

	e1 := a.Energy(x)
	if math.Abs(e1-e0) > 1e-6*math.Max(1, math.Abs(e0)) {
		t.Errorf("energy drifted from %v to %v", e0, e1)
	}
}

func TestArmTipReach(t *testing.T) {
	a := NewTwoLinkArm()

	// Fully extended along +x.
	px, py := a.Tip(dynamics.State{0, 0, 0, 0})
	if math.Abs(px-(a.Len1+a.Len2)) > 1e-12 || math.Abs(py) > 1e-12 {
		t.Errorf("extended tip = (%v, %v), want (%v, 0)", px, py, a.Len1+a.Len2)
	}

	// Folded back on itself.
	px, py = a.Tip(dynamics.State{0, math.Pi, 0, 0})
	if math.Abs(px-(a.Len1-a.Len2)) > 1e-12 || math.Abs(py) > 1e-9 {
		t.Errorf("folded tip = (%v, %v), want (%v, 0)", px, py, a.Len1-a.Len2)
	}
}

func TestArmTipJacobian(t *testing.T) {
	a := NewTwoLinkArm()
	x := dynamics.State{0.4, 0.9, 0, 0}

	jac := a.TipJacobian(x)

	eps := 1e-6
	for j := 0; j < 2; j++ {
		xp := x.Clone()
		xm := x.Clone()
		xp[j] += eps
		xm[j] -= eps
		pxp, pyp := a.Tip(xp)
		pxm, pym := a.Tip(xm)

		if diff := math.Abs(jac.At(0, j) - (pxp-pxm)/(2*eps)); diff > 1e-6 {
			t.Errorf("J[0,%d] off by %v", j, diff)
		}
		if diff := math.Abs(jac.At(1, j) - (pyp-pym)/(2*eps)); diff > 1e-6 {
			t.Errorf("J[1,%d] off by %v", j, diff)
		}
	}
}

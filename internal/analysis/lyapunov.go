package analysis

import (
	"math"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// ControlFunc supplies the control input during an analysis rollout.
// A nil ControlFunc runs the system unforced.
type ControlFunc func(x dynamics.State, t float64) dynamics.Control

// Closed adapts a feedback controller into a [ControlFunc]. Stateful
// controllers should not be shared with a concurrent simulation.
func Closed(c dynamics.Controller) ControlFunc {
	return func(x dynamics.State, t float64) dynamics.Control {
		return c.Compute(x, t)
	}
}

func controlAt(fn ControlFunc, sys dynamics.System, x dynamics.State, t float64) dynamics.Control {
	if fn == nil {
		return make(dynamics.Control, sys.ControlDim())
	}
	return fn(x, t)
}

// LyapunovExponent estimates the largest Lyapunov exponent by evolving
// two trajectories an initial distance d0 apart and renormalizing their
// separation back to d0 after every step:
//
//	lambda = (1 / (N*dt)) * sum_i ln(d_i / d0)
//
// A positive value means nearby trajectories diverge exponentially;
// stabilized closed-loop systems come out negative. Both trajectories
// receive their own feedback from ctrl, so the estimate is for the
// closed-loop dynamics.
func LyapunovExponent(
	sys dynamics.System,
	integ dynamics.Integrator,
	ctrl ControlFunc,
	x0 dynamics.State,
	dt, duration, perturbation float64,
) float64 {
	if len(x0) == 0 || dt <= 0 || duration <= 0 {
		return 0
	}
	if perturbation <= 0 {
		perturbation = 1e-8
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation
	d0 := perturbation

	steps := int(duration / dt)
	sumLog := 0.0
	counted := 0

	for i := 0; i < steps; i++ {
		t := float64(i) * dt
		x = integ.Step(sys, x, controlAt(ctrl, sys, x, t), t, dt)
		xp = integ.Step(sys, xp, controlAt(ctrl, sys, xp, t), t, dt)
		if !x.IsValid() || !xp.IsValid() {
			break
		}

		sep := xp.Sub(x).Norm()
		if sep == 0 {
			break
		}
		sumLog += math.Log(sep / d0)
		counted++

		// Pull the companion trajectory back to distance d0 along the
		// current separation direction.
		xp = x.AddScaled(xp.Sub(x), d0/sep)
	}

	if counted == 0 {
		return 0
	}
	return sumLog / (float64(counted) * dt)
}

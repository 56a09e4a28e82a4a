package integrators

import "github.com/githubhash01/Honours-Project/internal/dynamics"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(sys dynamics.System, x dynamics.State, u dynamics.Control, t float64, dt float64) dynamics.State {
	dx := sys.Derive(x, u, t)
	result := make(dynamics.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

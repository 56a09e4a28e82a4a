package diff

import (
	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// Tape records a rollout together with the Jacobians of every step. It
// holds horizon+1 states and horizon controls, times, and step Jacobians.
type Tape struct {
	States   []dynamics.State
	Controls []dynamics.Control
	Times    []float64
	Jacs     []StepJac
}

// Horizon returns the number of recorded steps.
func (t *Tape) Horizon() int { return len(t.Controls) }

// Forward rolls the system out for horizon steps under the given policy,
// recording states, controls, and step Jacobians. The policy is called
// with the step index and the pre-step state and returns the control to
// apply for that step.
func Forward(sys dynamics.System, integ dynamics.Integrator, x0 dynamics.State, policy func(step int, x dynamics.State) dynamics.Control, horizon int, dt, t0 float64, opts Options) *Tape {
	tape := &Tape{
		States:   make([]dynamics.State, 0, horizon+1),
		Controls: make([]dynamics.Control, 0, horizon),
		Times:    make([]float64, 0, horizon+1),
		Jacs:     make([]StepJac, 0, horizon),
	}

	x := x0.Clone()
	tm := t0
	tape.States = append(tape.States, x.Clone())
	tape.Times = append(tape.Times, tm)

	for step := 0; step < horizon; step++ {
		u := policy(step, x)
		tape.Controls = append(tape.Controls, u.Clone())
		tape.Jacs = append(tape.Jacs, StepJacobians(sys, integ, x, u, tm, dt, opts))

		x = integ.Step(sys, x, u, tm, dt)
		tm += dt
		tape.States = append(tape.States, x.Clone())
		tape.Times = append(tape.Times, tm)
	}
	return tape
}

// Adjoint backpropagates the rollout cost
//
//	J = sum_t dt*(run(x_t) + ctrl(u_t)) + term(x_T)
//
// through the recorded tape, treating the controls as independent inputs
// (open loop). It returns the gradient of J with respect to each control
// and with respect to the initial state. Any of the cost gradient
// callbacks may be nil, in which case that term is absent from J.
func (t *Tape) Adjoint(runGrad func(x dynamics.State) []float64, ctrlGrad func(u dynamics.Control) []float64, termGrad func(x dynamics.State) []float64, dt float64) (gU [][]float64, gX0 []float64) {
	h := t.Horizon()
	n := len(t.States[0])
	gU = make([][]float64, h)

	// lambda carries dJ/dx_t for the current t, seeded at the terminal
	// state and pulled backwards through the step Jacobians.
	lambda := make([]float64, n)
	if termGrad != nil {
		copy(lambda, termGrad(t.States[h]))
	}

	for step := h - 1; step >= 0; step-- {
		jac := t.Jacs[step]

		gu := mulT(jac.B, lambda)
		if ctrlGrad != nil {
			cg := ctrlGrad(t.Controls[step])
			for i := range gu {
				gu[i] += dt * cg[i]
			}
		}
		gU[step] = gu

		next := mulT(jac.A, lambda)
		if runGrad != nil {
			rg := runGrad(t.States[step])
			for i := range next {
				next[i] += dt * rg[i]
			}
		}
		lambda = next
	}
	return gU, lambda
}

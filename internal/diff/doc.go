// Package diff makes integrator steps differentiable via finite differences.
//
// Gradients of rollout costs with respect to initial states, control
// sequences, and policy parameters are computed by recording a [Tape] of
// per-step Jacobians and running a reverse (adjoint) pass over it:
//
//   - [StepJacobians]: forward-difference Jacobians of one integrator step
//   - [Tape]: recorded trajectory plus per-step Jacobians
//   - [Forward]: rolls out a policy while recording the tape
//   - [Tape.Adjoint]: backpropagates cost gradients through the tape
//
// The per-step Jacobians are taken through the full integrator step, not
// the continuous dynamics, so the adjoint pass is exact for the discrete
// system up to finite-difference error.
//
// # Example
//
//	tape := diff.Forward(sys, integ, x0, pol, 100, 0.01, 0, diff.DefaultOptions())
//	gU, gx0 := tape.Adjoint(runGrad, ctrlGrad, termGrad, 0.01)
package diff

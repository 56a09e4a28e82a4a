// Package dynamics provides core primitives for simulating and
// differentiating controlled dynamical systems.
//
// The package defines the fundamental interfaces and types shared by the
// rest of the module:
//
//   - [State], [Control]: dense vectors for system state and actuation
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Linearizable]: systems with closed-form Jacobians
//   - [Integrator], [AdaptiveIntegrator]: numerical stepper interfaces
//   - [Controller]: feedback controller interface
//   - [Metric]: per-step observation accumulator
//
// # Example
//
//	sys := physics.NewPendulum()
//	integ := integrators.NewRK4()
//	x1 := integ.Step(sys, x0, dynamics.Control{0}, 0, 0.01)
//
// # Thread Safety
//
// States and Controls are plain slices; methods return fresh copies and
// never mutate the receiver. Integrators may keep internal scratch
// buffers and are NOT safe for concurrent use by multiple goroutines.
package dynamics

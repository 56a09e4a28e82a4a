// Package physics provides the analytic dynamical systems the benchmark
// tasks are built on.
//
// Each model implements the [dynamics.System] interface, defining the
// differential equations governing the system's evolution:
//
//   - [Pendulum]: damped pendulum with torque input (swing-up task)
//   - [CartPole]: Barto cart-pole with force input (balance task)
//   - [DoubleIntegrator]: point mass on a line (regulation task)
//   - [TwoLinkArm]: planar manipulator with joint torques (reach task)
//
// All models implement [dynamics.Configurable] for runtime parameter
// adjustment and [dynamics.Hamiltonian] for energy calculation; those
// with tractable algebra also implement [dynamics.Linearizable], which
// LQR synthesis and the analytic linearization paths rely on.
//
// # Energy Conservation
//
// For Hamiltonian systems, use [dynamics.Hamiltonian] to monitor energy drift:
//
//	sys := physics.NewPendulum()
//	if h, ok := sys.(dynamics.Hamiltonian); ok {
//	    energy := h.Energy(state)
//	}
package physics

// Package analysis characterizes trajectories, controllers and training
// runs.
//
// Trajectory-level tools:
//
//   - [LyapunovExponent]: largest Lyapunov exponent of a (closed-loop)
//     system via nearby-trajectory divergence with per-step
//     renormalization
//   - [PhasePortrait] / [PortraitFromStates]: 2D phase-space projections
//   - [PowerSpectrum], [SpectralEntropy], [Smoothness]: frequency-domain
//     structure of control sequences
//
// Benchmark-level tools:
//
//   - [Summarize], [StepsToThreshold], [Aggregate]: learning-curve
//     statistics across epochs and seeds
//   - [ParamSweep]: robustness of a trained controller to physical
//     parameter changes
//   - [Evaluate]: mean closed-loop cost of a controller on a task
//
// # Example
//
// Checking whether a trained policy keeps the pendulum out of the
// chaotic regime:
//
//	lambda := analysis.LyapunovExponent(sys, integ, analysis.Closed(ctrl), x0, 0.01, 20, 1e-8)
//	if lambda > 0 {
//	    // trajectories diverge under this policy
//	}
package analysis

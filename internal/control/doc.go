// Package control provides feedback controllers for dynamical systems.
//
// Controllers implement the [dynamics.Controller] interface to compute
// control inputs from system state:
//
//   - [PID]: Proportional-Integral-Derivative loop on one coordinate
//   - [LQR]: Linear Quadratic Regulator with Riccati gain synthesis
//   - [NN]: learned neural-network policy (optionally tanh-bounded)
//   - [HJB]: optimal control extracted from a learned value function
//   - [Manual]: fixed control sequence playback
//   - [None]: zero control
//
// # Usage
//
//	pid := control.NewPID(1.0, 0.1, 0.01, 0.0)  // Kp, Ki, Kd, setpoint
//	lqr, err := control.Synthesize(sys, xEq, uEq, q, r, dt)
//
// Controllers implementing [dynamics.Configurable] support live tuning.
package control

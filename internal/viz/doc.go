// Package viz renders training and trajectory data in the terminal.
//
// Plot helpers wrap asciigraph for learning curves and trajectory
// components, Portrait scatters a phase portrait onto a Braille
// canvas, and two bubbletea models cover the interactive surfaces: a
// live training monitor fed by progress events and a trajectory
// playback view that animates the benchmark systems.
package viz

package optimize

import "time"

// TrainResult summarizes a training run.
type TrainResult struct {
	// Curve holds the mean loss per epoch in order.
	Curve []float64

	// Best is the lowest epoch loss seen.
	Best float64

	// Epochs is the number of completed epochs.
	Epochs int

	// Steps counts integrator steps along recorded rollouts, not
	// the extra evaluations spent on finite differences.
	Steps int64

	WallTime time.Duration

	// Params is the final flat parameter vector of the trained
	// network.
	Params []float64
}

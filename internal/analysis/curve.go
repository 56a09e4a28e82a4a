package analysis

import (
	"gonum.org/v1/gonum/stat"
)

// CurveStats are headline numbers for a single training curve of
// per-epoch costs.
type CurveStats struct {
	Best   float64
	Final  float64
	AUC    float64
	Points int
}

// Summarize reduces a learning curve to [CurveStats]. Final is the mean
// of the last finalK points (the whole curve when finalK is zero or too
// large); AUC is the trapezoidal area with unit spacing, so slower
// learners accumulate more of it.
func Summarize(curve []float64, finalK int) CurveStats {
	if len(curve) == 0 {
		return CurveStats{}
	}
	s := CurveStats{Points: len(curve), Best: curve[0]}
	for _, v := range curve {
		if v < s.Best {
			s.Best = v
		}
	}
	if finalK <= 0 || finalK > len(curve) {
		finalK = len(curve)
	}
	s.Final = stat.Mean(curve[len(curve)-finalK:], nil)
	for i := 1; i < len(curve); i++ {
		s.AUC += (curve[i-1] + curve[i]) / 2
	}
	return s
}

// StepsToThreshold returns the first index at which the curve reaches
// the threshold, or -1 if it never does. On curves indexed by epoch or
// environment step this is a sample-efficiency measure.
func StepsToThreshold(curve []float64, threshold float64) int {
	for i, v := range curve {
		if v <= threshold {
			return i
		}
	}
	return -1
}

// Band is a pointwise mean and standard deviation across repeated runs.
type Band struct {
	Mean []float64
	Std  []float64
}

// Aggregate combines curves from runs with different seeds into a mean
// curve with pointwise spread. Curves are truncated to the shortest
// non-empty one so early-stopped runs stay comparable.
func Aggregate(curves [][]float64) Band {
	kept := make([][]float64, 0, len(curves))
	shortest := 0
	for _, c := range curves {
		if len(c) == 0 {
			continue
		}
		if len(kept) == 0 || len(c) < shortest {
			shortest = len(c)
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return Band{}
	}

	band := Band{
		Mean: make([]float64, shortest),
		Std:  make([]float64, shortest),
	}
	col := make([]float64, len(kept))
	for i := 0; i < shortest; i++ {
		for j, c := range kept {
			col[j] = c[i]
		}
		band.Mean[i] = stat.Mean(col, nil)
		if len(col) > 1 {
			band.Std[i] = stat.StdDev(col, nil)
		}
	}
	return band
}

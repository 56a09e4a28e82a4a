package optimize

import (
	"context"
	"fmt"
	"math"
)

// Grid is an exhaustive search over named parameter values, scored by
// a caller-supplied objective. It serves the classical baselines, where
// the search space is small and gradients are unavailable.
type Grid struct {
	names  []string
	values [][]float64
}

func NewGrid() *Grid {
	return &Grid{}
}

// Add appends one parameter axis. Axes are combined as a full cartesian
// product, so sizes multiply.
func (g *Grid) Add(name string, values ...float64) *Grid {
	g.names = append(g.names, name)
	g.values = append(g.values, values)
	return g
}

// Size is the number of parameter combinations Search will visit.
func (g *Grid) Size() int {
	if len(g.values) == 0 {
		return 0
	}
	n := 1
	for _, axis := range g.values {
		n *= len(axis)
	}
	return n
}

// Search scores every combination and returns the parameters with the
// lowest score. NaN scores mark invalid candidates and are skipped; a
// nil map comes back when every candidate was invalid. Score errors
// abort the search.
func (g *Grid) Search(ctx context.Context, score func(params map[string]float64) (float64, error)) (map[string]float64, float64, error) {
	total := g.Size()
	if total == 0 {
		return nil, math.NaN(), nil
	}

	idx := make([]int, len(g.values))
	var best map[string]float64
	bestScore := math.Inf(1)

	for k := 0; k < total; k++ {
		if err := ctx.Err(); err != nil {
			return nil, math.NaN(), fmt.Errorf("optimize: grid search canceled: %w", err)
		}

		params := make(map[string]float64, len(g.names))
		for i, name := range g.names {
			params[name] = g.values[i][idx[i]]
		}

		s, err := score(params)
		if err != nil {
			return nil, math.NaN(), err
		}
		if !math.IsNaN(s) && s < bestScore {
			bestScore = s
			best = params
		}

		// Odometer increment over the axes.
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(g.values[i]) {
				break
			}
			idx[i] = 0
		}
	}

	if best == nil {
		return nil, math.NaN(), nil
	}
	return best, bestScore, nil
}

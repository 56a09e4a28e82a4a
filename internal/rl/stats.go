package rl

import (
	"encoding/json"
	"fmt"
	"math"
)

// normClip bounds normalized observations, keeping early estimates with
// tiny variance from producing huge inputs.
const normClip = 5.0

// RunningStat tracks per-dimension mean and variance of observations
// with Welford's algorithm. Push and Normalize must not be called
// concurrently; the trainer pushes between rollout phases.
type RunningStat struct {
	n    float64
	mean []float64
	m2   []float64
}

func NewRunningStat(dim int) *RunningStat {
	return &RunningStat{
		mean: make([]float64, dim),
		m2:   make([]float64, dim),
	}
}

func (r *RunningStat) Push(obs []float64) {
	r.n++
	for i, v := range obs {
		delta := v - r.mean[i]
		r.mean[i] += delta / r.n
		r.m2[i] += delta * (v - r.mean[i])
	}
}

// Std returns the per-dimension standard deviation, 1 until at least
// two observations have been pushed.
func (r *RunningStat) Std(i int) float64 {
	if r.n < 2 {
		return 1
	}
	return math.Sqrt(r.m2[i]/(r.n-1) + 1e-8)
}

// Normalize returns (obs - mean) / std clipped to [-normClip, normClip].
func (r *RunningStat) Normalize(obs []float64) []float64 {
	out := make([]float64, len(obs))
	for i, v := range obs {
		z := (v - r.mean[i]) / r.Std(i)
		if z > normClip {
			z = normClip
		} else if z < -normClip {
			z = -normClip
		}
		out[i] = z
	}
	return out
}

// Count returns the number of observations pushed.
func (r *RunningStat) Count() float64 { return r.n }

type runningStatJSON struct {
	N    float64   `json:"n"`
	Mean []float64 `json:"mean"`
	M2   []float64 `json:"m2"`
}

func (r *RunningStat) MarshalJSON() ([]byte, error) {
	return json.Marshal(runningStatJSON{N: r.n, Mean: r.mean, M2: r.m2})
}

func (r *RunningStat) UnmarshalJSON(data []byte) error {
	var raw runningStatJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Mean) != len(raw.M2) {
		return fmt.Errorf("rl: normalizer mean/m2 length mismatch")
	}
	r.n = raw.N
	r.mean = raw.Mean
	r.m2 = raw.M2
	return nil
}

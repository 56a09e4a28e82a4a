package task

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// Encoder maps raw state to policy observations. Jacobian is d(obs)/d(state),
// needed to chain gradients from the policy input back to the state.
type Encoder interface {
	Encode(x dynamics.State) []float64
	Dim() int
	Jacobian(x dynamics.State) *mat.Dense
}

// Identity passes the state through unchanged.
type Identity struct {
	N int
}

func (e *Identity) Encode(x dynamics.State) []float64 {
	out := make([]float64, e.N)
	copy(out, x)
	return out
}

func (e *Identity) Dim() int { return e.N }

func (e *Identity) Jacobian(x dynamics.State) *mat.Dense {
	j := mat.NewDense(e.N, e.N, nil)
	for i := 0; i < e.N; i++ {
		j.Set(i, i, 1)
	}
	return j
}

// Trig expands angle components into (cos, sin) pairs and passes the
// rest through, in state order.
type Trig struct {
	N      int
	Angles []int
}

func (e *Trig) isAngle(i int) bool {
	for _, a := range e.Angles {
		if a == i {
			return true
		}
	}
	return false
}

func (e *Trig) Dim() int { return e.N + len(e.Angles) }

func (e *Trig) Encode(x dynamics.State) []float64 {
	out := make([]float64, 0, e.Dim())
	for i := 0; i < e.N; i++ {
		if e.isAngle(i) {
			out = append(out, math.Cos(x[i]), math.Sin(x[i]))
		} else {
			out = append(out, x[i])
		}
	}
	return out
}

func (e *Trig) Jacobian(x dynamics.State) *mat.Dense {
	j := mat.NewDense(e.Dim(), e.N, nil)
	row := 0
	for i := 0; i < e.N; i++ {
		if e.isAngle(i) {
			j.Set(row, i, -math.Sin(x[i]))
			j.Set(row+1, i, math.Cos(x[i]))
			row += 2
		} else {
			j.Set(row, i, 1)
			row++
		}
	}
	return j
}

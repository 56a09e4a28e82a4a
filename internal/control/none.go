package control

import "github.com/githubhash01/Honours-Project/internal/dynamics"

type None struct {
	dim int
}

func NewNone(dim int) *None {
	return &None{
		dim: dim,
	}
}

func (n *None) Compute(x dynamics.State, t float64) dynamics.Control {
	return make(dynamics.Control, n.dim)
}

func (n *None) Reset() {}

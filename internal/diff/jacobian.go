package diff

import (
	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

const defaultEps = 1e-6

// Options controls how step Jacobians are computed.
type Options struct {
	// Eps is the forward-difference perturbation size.
	Eps float64

	// Mask marks which state dimensions participate in differentiation.
	// A dimension with Mask[i] == false contributes neither rows nor
	// columns to the state Jacobian: gradients do not flow into or out
	// of it. A nil mask means every dimension is sensitive.
	Mask []bool
}

// DefaultOptions returns options with the standard perturbation size and
// every state dimension sensitive.
func DefaultOptions() Options {
	return Options{Eps: defaultEps}
}

// StepJac holds the Jacobians of a single integrator step x' = step(x, u).
// A is the n-by-n state Jacobian dx'/dx and B the n-by-m control Jacobian
// dx'/du.
type StepJac struct {
	A *mat.Dense
	B *mat.Dense
}

// StepJacobians computes the Jacobians of one integrator step by forward
// differences. Each sensitive input dimension is perturbed by opts.Eps and
// the step repeated; masked dimensions yield zero columns. Masked rows are
// zeroed afterwards so that no gradient flows through an insensitive
// coordinate in either direction.
func StepJacobians(sys dynamics.System, integ dynamics.Integrator, x dynamics.State, u dynamics.Control, t, dt float64, opts Options) StepJac {
	eps := opts.Eps
	if eps <= 0 {
		eps = defaultEps
	}
	n := len(x)
	m := len(u)

	base := integ.Step(sys, x, u, t, dt)

	a := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		if opts.Mask != nil && j < len(opts.Mask) && !opts.Mask[j] {
			continue
		}
		xp := x.Clone()
		xp[j] += eps
		pert := integ.Step(sys, xp, u, t, dt)
		for i := 0; i < n; i++ {
			a.Set(i, j, (pert[i]-base[i])/eps)
		}
	}

	b := mat.NewDense(n, m, nil)
	for j := 0; j < m; j++ {
		up := u.Clone()
		up[j] += eps
		pert := integ.Step(sys, x, up, t, dt)
		for i := 0; i < n; i++ {
			b.Set(i, j, (pert[i]-base[i])/eps)
		}
	}

	if opts.Mask != nil {
		for i := 0; i < n && i < len(opts.Mask); i++ {
			if opts.Mask[i] {
				continue
			}
			for j := 0; j < n; j++ {
				a.Set(i, j, 0)
			}
			for j := 0; j < m; j++ {
				b.Set(i, j, 0)
			}
		}
	}

	return StepJac{A: a, B: b}
}

// mulT computes transpose(m) * v for a dense matrix and a plain vector.
func mulT(m *mat.Dense, v []float64) []float64 {
	r, c := m.Dims()
	out := make([]float64, c)
	for j := 0; j < c; j++ {
		s := 0.0
		for i := 0; i < r; i++ {
			s += m.At(i, j) * v[i]
		}
		out[j] = s
	}
	return out
}

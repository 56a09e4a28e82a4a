package dynamics

import "gonum.org/v1/gonum/mat"

// linEps is the central-difference step for numerical linearization.
const linEps = 1e-5

// Linearize returns the continuous-time Jacobians df/dx and df/du of a
// system at (x, u, t). Systems implementing [Linearizable] supply them
// in closed form; anything else is differentiated by central differences.
func Linearize(sys System, x State, u Control, t float64) (a, b *mat.Dense) {
	if l, ok := sys.(Linearizable); ok {
		return l.Linearize(x, u, t)
	}
	return NumericalLinearize(sys, x, u, t, linEps)
}

// NumericalLinearize estimates df/dx and df/du by central differences.
func NumericalLinearize(sys System, x State, u Control, t float64, eps float64) (a, b *mat.Dense) {
	n := sys.StateDim()
	m := sys.ControlDim()
	a = mat.NewDense(n, n, nil)
	b = mat.NewDense(n, m, nil)

	for j := 0; j < n; j++ {
		xp := x.Clone()
		xm := x.Clone()
		xp[j] += eps
		xm[j] -= eps
		fp := sys.Derive(xp, u, t)
		fm := sys.Derive(xm, u, t)
		for i := 0; i < n; i++ {
			a.Set(i, j, (fp[i]-fm[i])/(2*eps))
		}
	}

	for j := 0; j < m; j++ {
		up := u.Clone()
		um := u.Clone()
		up[j] += eps
		um[j] -= eps
		fp := sys.Derive(x, up, t)
		fm := sys.Derive(x, um, t)
		for i := 0; i < n; i++ {
			b.Set(i, j, (fp[i]-fm[i])/(2*eps))
		}
	}
	return a, b
}

package control

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// ErrRiccati is returned when the discrete Riccati iteration fails to
// converge, typically because the linearized pair is not stabilizable.
var ErrRiccati = errors.New("control: riccati iteration did not converge")

const (
	riccatiMaxIter = 1000
	riccatiTol     = 1e-9
)

// LQR applies u = -K(x - target) with a constant gain matrix.
type LQR struct {
	K      *mat.Dense
	Target dynamics.State
}

func NewLQR(k *mat.Dense, target dynamics.State) *LQR {
	return &LQR{K: k, Target: target}
}

// Synthesize linearizes sys about the equilibrium (xEq, uEq), discretizes
// with A_d = I + A*dt and B_d = B*dt, and iterates the discrete-time
// Riccati equation
//
//	P <- Q + A'PA - A'PB (R + B'PB)^-1 B'PA
//
// to a fixed point. The resulting gain K = (R + B'PB)^-1 B'PA stabilizes
// the system near the equilibrium.
func Synthesize(sys dynamics.System, xEq dynamics.State, uEq dynamics.Control, q, r *mat.Dense, dt float64) (*LQR, error) {
	a, b := dynamics.Linearize(sys, xEq, uEq, 0)

	n, _ := a.Dims()
	_, m := b.Dims()

	ad := mat.NewDense(n, n, nil)
	ad.Scale(dt, a)
	for i := 0; i < n; i++ {
		ad.Set(i, i, ad.At(i, i)+1)
	}
	bd := mat.NewDense(n, m, nil)
	bd.Scale(dt, b)

	p := mat.NewDense(n, n, nil)
	p.Copy(q)

	var (
		pa, pb, atpa, btpb, btpa mat.Dense
		gain, term, next         mat.Dense
	)
	for iter := 0; iter < riccatiMaxIter; iter++ {
		pa.Mul(p, ad)
		pb.Mul(p, bd)
		atpa.Mul(ad.T(), &pa)
		btpb.Mul(bd.T(), &pb)
		btpa.Mul(bd.T(), &pa)

		// gain = (R + B'PB)^-1 B'PA
		var rb mat.Dense
		rb.Add(r, &btpb)
		if err := gain.Solve(&rb, &btpa); err != nil {
			return nil, fmt.Errorf("control: solving gain equation: %w", err)
		}

		term.Mul(btpa.T(), &gain)
		next.Sub(&atpa, &term)
		next.Add(&next, q)

		diff := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				d := next.At(i, j) - p.At(i, j)
				if d < 0 {
					d = -d
				}
				if d > diff {
					diff = d
				}
			}
		}
		p.Copy(&next)
		if diff < riccatiTol {
			k := mat.NewDense(m, n, nil)
			k.Copy(&gain)
			return &LQR{K: k, Target: xEq.Clone()}, nil
		}
	}
	return nil, ErrRiccati
}

func (l *LQR) Compute(x dynamics.State, t float64) dynamics.Control {
	m, n := l.K.Dims()
	d := mat.NewVecDense(n, nil)
	for j := 0; j < n && j < len(x); j++ {
		target := 0.0
		if j < len(l.Target) {
			target = l.Target[j]
		}
		d.SetVec(j, x[j]-target)
	}

	ku := mat.NewVecDense(m, nil)
	ku.MulVec(l.K, d)

	u := make(dynamics.Control, m)
	for i := range u {
		u[i] = -ku.AtVec(i)
	}
	return u
}

func (l *LQR) Reset() {}

package control

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/nn"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// HJB extracts a control law from a learned value function. For
// control-affine dynamics with control input map G and quadratic
// control weight R, the Hamilton-Jacobi-Bellman optimality condition
// gives
//
//	u = -1/2 R^-1 G' dv/dx
//
// The value network sees the encoded observation, with the time
// appended when TimeInput is set.
type HJB struct {
	Net       *nn.MLP
	Enc       task.Encoder
	G         *mat.Dense
	TimeInput bool

	rInv *mat.Dense
}

func NewHJB(net *nn.MLP, enc task.Encoder, r, g *mat.Dense, timeInput bool) (*HJB, error) {
	m, _ := r.Dims()
	rInv := mat.NewDense(m, m, nil)
	if err := rInv.Inverse(r); err != nil {
		return nil, fmt.Errorf("control: inverting control weight: %w", err)
	}
	return &HJB{Net: net, Enc: enc, G: g, TimeInput: timeInput, rInv: rInv}, nil
}

func (h *HJB) Compute(x dynamics.State, t float64) dynamics.Control {
	in := h.Enc.Encode(x)
	if h.TimeInput {
		in = append(in, t)
	}
	gIn := h.Net.InputGrad(in)

	// dv/dx = E' dv/dobs, dropping the time component if present.
	ej := h.Enc.Jacobian(x)
	n := len(x)
	obsDim := h.Enc.Dim()
	dvdx := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		s := 0.0
		for i := 0; i < obsDim; i++ {
			s += ej.At(i, j) * gIn[i]
		}
		dvdx.SetVec(j, s)
	}

	_, m := h.G.Dims()
	gv := mat.NewVecDense(m, nil)
	gv.MulVec(h.G.T(), dvdx)
	ru := mat.NewVecDense(m, nil)
	ru.MulVec(h.rInv, gv)

	u := make(dynamics.Control, m)
	for i := range u {
		u[i] = -0.5 * ru.AtVec(i)
	}
	return u
}

func (h *HJB) Reset() {}

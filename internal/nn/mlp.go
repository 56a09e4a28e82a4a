// Package nn implements the small multilayer perceptrons used as
// policies and value functions. Hidden layers share one activation,
// the output layer is linear.
package nn

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

type MLP struct {
	sizes   []int
	act     Activation
	weights []*mat.Dense
	biases  []*mat.VecDense
}

// New builds an MLP with the given layer sizes, e.g. [3, 64, 64, 1].
// Weights use He-style init scaled to the fan-in.
func New(sizes []int, act Activation, rng *rand.Rand) *MLP {
	if len(sizes) < 2 {
		panic("nn: need at least input and output sizes")
	}

	m := &MLP{
		sizes: append([]int(nil), sizes...),
		act:   act,
	}

	gain := 2.0
	if act != ReLU {
		gain = 1.0
	}

	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := math.Sqrt(gain / float64(in))

		w := mat.NewDense(out, in, nil)
		for i := 0; i < out; i++ {
			for j := 0; j < in; j++ {
				w.Set(i, j, rng.NormFloat64()*scale)
			}
		}
		m.weights = append(m.weights, w)
		m.biases = append(m.biases, mat.NewVecDense(out, nil))
	}
	return m
}

func (m *MLP) Sizes() []int {
	return append([]int(nil), m.sizes...)
}

func (m *MLP) InDim() int  { return m.sizes[0] }
func (m *MLP) OutDim() int { return m.sizes[len(m.sizes)-1] }

// Forward evaluates the network.
func (m *MLP) Forward(x []float64) []float64 {
	out, _ := m.forward(x, false)
	return out
}

// Trace keeps the per-layer inputs and preactivations needed by Backward.
type Trace struct {
	inputs [][]float64
	pre    [][]float64
}

// ForwardTrace evaluates the network and records the intermediate values.
func (m *MLP) ForwardTrace(x []float64) ([]float64, *Trace) {
	return m.forward(x, true)
}

func (m *MLP) forward(x []float64, record bool) ([]float64, *Trace) {
	if len(x) != m.sizes[0] {
		panic(fmt.Sprintf("nn: input size %d, want %d", len(x), m.sizes[0]))
	}

	var tr *Trace
	if record {
		tr = &Trace{}
	}

	a := append([]float64(nil), x...)
	last := len(m.weights) - 1
	for l, w := range m.weights {
		if record {
			tr.inputs = append(tr.inputs, a)
		}

		out := m.sizes[l+1]
		z := make([]float64, out)
		zv := mat.NewVecDense(out, z)
		zv.MulVec(w, mat.NewVecDense(len(a), a))
		zv.AddVec(zv, m.biases[l])

		if record {
			tr.pre = append(tr.pre, append([]float64(nil), z...))
		}

		if l == last {
			a = z
		} else {
			act := make([]float64, out)
			for i, v := range z {
				act[i] = m.act.apply(v)
			}
			a = act
		}
	}
	return a, tr
}

// Grads mirrors the parameter tree.
type Grads struct {
	W []*mat.Dense
	B []*mat.VecDense
}

func (m *MLP) NewGrads() *Grads {
	g := &Grads{}
	for l := range m.weights {
		r, c := m.weights[l].Dims()
		g.W = append(g.W, mat.NewDense(r, c, nil))
		g.B = append(g.B, mat.NewVecDense(m.biases[l].Len(), nil))
	}
	return g
}

func (g *Grads) Zero() {
	for l := range g.W {
		g.W[l].Zero()
		g.B[l].Zero()
	}
}

func (g *Grads) Scale(k float64) {
	for l := range g.W {
		g.W[l].Scale(k, g.W[l])
		g.B[l].ScaleVec(k, g.B[l])
	}
}

func (g *Grads) Add(o *Grads) {
	for l := range g.W {
		g.W[l].Add(g.W[l], o.W[l])
		g.B[l].AddVec(g.B[l], o.B[l])
	}
}

// Backward runs backpropagation from an output cotangent. Parameter
// gradients accumulate into g (which may be nil when only the input
// gradient is wanted); the return value is dLoss/dInput.
func (m *MLP) Backward(tr *Trace, outGrad []float64, g *Grads) []float64 {
	last := len(m.weights) - 1
	delta := mat.NewVecDense(len(outGrad), append([]float64(nil), outGrad...))

	for l := last; l >= 0; l-- {
		if l != last {
			// Through the hidden activation.
			pre := tr.pre[l]
			for i := 0; i < delta.Len(); i++ {
				delta.SetVec(i, delta.AtVec(i)*m.act.deriv(pre[i]))
			}
		}

		if g != nil {
			input := mat.NewVecDense(len(tr.inputs[l]), tr.inputs[l])
			g.W[l].RankOne(g.W[l], 1, delta, input)
			g.B[l].AddVec(g.B[l], delta)
		}

		prev := mat.NewVecDense(len(tr.inputs[l]), nil)
		prev.MulVec(m.weights[l].T(), delta)
		delta = prev
	}

	return delta.RawVector().Data
}

// InputGrad is Backward for a scalar-output network with cotangent 1,
// the shape the HJB control rule needs.
func (m *MLP) InputGrad(x []float64) []float64 {
	_, tr := m.ForwardTrace(x)
	return m.Backward(tr, []float64{1}, nil)
}

// NumParams counts all weights and biases.
func (m *MLP) NumParams() int {
	n := 0
	for l := range m.weights {
		r, c := m.weights[l].Dims()
		n += r*c + m.biases[l].Len()
	}
	return n
}

// ParamsVector flattens all parameters into one vector (weights
// row-major then bias, layer by layer).
func (m *MLP) ParamsVector() []float64 {
	out := make([]float64, 0, m.NumParams())
	for l := range m.weights {
		out = append(out, m.weights[l].RawMatrix().Data...)
		out = append(out, m.biases[l].RawVector().Data...)
	}
	return out
}

// SetParamsVector is the inverse of ParamsVector.
func (m *MLP) SetParamsVector(v []float64) {
	if len(v) != m.NumParams() {
		panic(fmt.Sprintf("nn: params vector size %d, want %d", len(v), m.NumParams()))
	}
	off := 0
	for l := range m.weights {
		wd := m.weights[l].RawMatrix().Data
		off += copy(wd, v[off:off+len(wd)])
		bd := m.biases[l].RawVector().Data
		off += copy(bd, v[off:off+len(bd)])
	}
}

// Vector flattens gradients in ParamsVector order.
func (g *Grads) Vector() []float64 {
	var out []float64
	for l := range g.W {
		out = append(out, g.W[l].RawMatrix().Data...)
		out = append(out, g.B[l].RawVector().Data...)
	}
	return out
}

type mlpJSON struct {
	Sizes      []int       `json:"sizes"`
	Activation string      `json:"activation"`
	Weights    [][]float64 `json:"weights"`
	Biases     [][]float64 `json:"biases"`
}

func (m *MLP) MarshalJSON() ([]byte, error) {
	enc := mlpJSON{
		Sizes:      m.sizes,
		Activation: m.act.String(),
	}
	for l := range m.weights {
		enc.Weights = append(enc.Weights, append([]float64(nil), m.weights[l].RawMatrix().Data...))
		enc.Biases = append(enc.Biases, append([]float64(nil), m.biases[l].RawVector().Data...))
	}
	return json.Marshal(enc)
}

func (m *MLP) UnmarshalJSON(data []byte) error {
	var dec mlpJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}

	act, err := ParseActivation(dec.Activation)
	if err != nil {
		return err
	}
	if len(dec.Sizes) < 2 || len(dec.Weights) != len(dec.Sizes)-1 || len(dec.Biases) != len(dec.Sizes)-1 {
		return fmt.Errorf("nn: malformed network encoding")
	}

	m.sizes = dec.Sizes
	m.act = act
	m.weights = nil
	m.biases = nil
	for l := 0; l < len(dec.Sizes)-1; l++ {
		in, out := dec.Sizes[l], dec.Sizes[l+1]
		if len(dec.Weights[l]) != in*out || len(dec.Biases[l]) != out {
			return fmt.Errorf("nn: layer %d has wrong parameter count", l)
		}
		m.weights = append(m.weights, mat.NewDense(out, in, dec.Weights[l]))
		m.biases = append(m.biases, mat.NewVecDense(out, dec.Biases[l]))
	}
	return nil
}

package optimize

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Optimizer updates a flat parameter vector in place from a gradient
// of the same length.
type Optimizer interface {
	Step(params, grad []float64)
	Reset()
}

// SGD is plain gradient descent with a fixed learning rate.
type SGD struct {
	LR float64
}

func NewSGD(lr float64) *SGD { return &SGD{LR: lr} }

func (s *SGD) Step(params, grad []float64) {
	floats.AddScaled(params, -s.LR, grad)
}

func (s *SGD) Reset() {}

// Adam keeps exponential moving averages of the gradient and its
// square with bias correction.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	m []float64
	v []float64
	t int
}

func NewAdam(lr float64) *Adam {
	return &Adam{LR: lr, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}
}

func (a *Adam) Step(params, grad []float64) {
	if len(a.m) != len(params) {
		a.m = make([]float64, len(params))
		a.v = make([]float64, len(params))
		a.t = 0
	}
	a.t++
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))
	for i, g := range grad {
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g
		params[i] -= a.LR * (a.m[i] / c1) / (math.Sqrt(a.v[i]/c2) + a.Eps)
	}
}

func (a *Adam) Reset() {
	a.m = nil
	a.v = nil
	a.t = 0
}

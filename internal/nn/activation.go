package nn

import (
	"fmt"
	"math"
)

type Activation int

const (
	ReLU Activation = iota
	Tanh
	Softplus
	Linear
)

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Tanh:
		return "tanh"
	case Softplus:
		return "softplus"
	case Linear:
		return "linear"
	}
	return "unknown"
}

func ParseActivation(s string) (Activation, error) {
	switch s {
	case "relu":
		return ReLU, nil
	case "tanh":
		return Tanh, nil
	case "softplus":
		return Softplus, nil
	case "linear":
		return Linear, nil
	}
	return 0, fmt.Errorf("unknown activation: %s", s)
}

func (a Activation) apply(z float64) float64 {
	switch a {
	case ReLU:
		if z > 0 {
			return z
		}
		return 0
	case Tanh:
		return math.Tanh(z)
	case Softplus:
		if z > 30 {
			return z
		}
		return math.Log1p(math.Exp(z))
	}
	return z
}

// deriv is the activation derivative at preactivation z.
func (a Activation) deriv(z float64) float64 {
	switch a {
	case ReLU:
		if z > 0 {
			return 1
		}
		return 0
	case Tanh:
		th := math.Tanh(z)
		return 1 - th*th
	case Softplus:
		return 1 / (1 + math.Exp(-z))
	}
	return 1
}

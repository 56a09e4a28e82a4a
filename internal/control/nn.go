package control

import (
	"math"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/nn"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// NN wraps a trained network as a state-feedback policy. The state is
// passed through the observation encoder before the network; when Limit
// is positive the raw outputs are squashed to [-Limit, Limit] with tanh.
type NN struct {
	Net   *nn.MLP
	Enc   task.Encoder
	Limit float64
}

func NewNN(net *nn.MLP, enc task.Encoder, limit float64) *NN {
	return &NN{Net: net, Enc: enc, Limit: limit}
}

func (c *NN) Compute(x dynamics.State, t float64) dynamics.Control {
	out := c.Net.Forward(c.Enc.Encode(x))
	u := make(dynamics.Control, len(out))
	if c.Limit > 0 {
		for i, v := range out {
			u[i] = c.Limit * math.Tanh(v)
		}
		return u
	}
	copy(u, out)
	return u
}

func (c *NN) Reset() {}

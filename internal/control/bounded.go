package control

import "github.com/githubhash01/Honours-Project/internal/dynamics"

// Bounded clamps another controller's output to [-limit, limit] per
// actuator. Classical controllers compute unbounded commands; wrapping
// them keeps rollouts comparable with bounded learned policies.
type Bounded struct {
	inner dynamics.Controller
	limit float64
}

// NewBounded wraps inner. A zero limit passes commands through.
func NewBounded(inner dynamics.Controller, limit float64) *Bounded {
	return &Bounded{inner: inner, limit: limit}
}

func (b *Bounded) Compute(x dynamics.State, t float64) dynamics.Control {
	u := b.inner.Compute(x, t)
	if b.limit <= 0 {
		return u
	}
	out := make(dynamics.Control, len(u))
	for i, v := range u {
		if v > b.limit {
			v = b.limit
		} else if v < -b.limit {
			v = -b.limit
		}
		out[i] = v
	}
	return out
}

func (b *Bounded) Reset() { b.inner.Reset() }

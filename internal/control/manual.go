package control

import (
	"math"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// Manual plays back a fixed control sequence, one entry per step of
// width Dt, holding the final entry past the end. Used to replay
// optimized open-loop sequences and stored rollouts.
type Manual struct {
	Sequence []dynamics.Control
	Dt       float64
}

func NewManual(seq []dynamics.Control, dt float64) *Manual {
	return &Manual{Sequence: seq, Dt: dt}
}

func (m *Manual) Compute(x dynamics.State, t float64) dynamics.Control {
	if len(m.Sequence) == 0 {
		return dynamics.Control{}
	}
	// Round to the nearest step so accumulated float error in t does
	// not shift the sequence.
	idx := int(math.Floor(t/m.Dt + 0.5))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.Sequence) {
		idx = len(m.Sequence) - 1
	}
	return m.Sequence[idx].Clone()
}

func (m *Manual) Reset() {}

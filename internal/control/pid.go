package control

import (
	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// PID regulates a single state coordinate toward a setpoint. Index
// selects the tracked coordinate (default 0).
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	Index  int

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

func (p *PID) Compute(x dynamics.State, t float64) dynamics.Control {
	if p.Index >= len(x) {
		return dynamics.Control{0}
	}

	err := p.Target - x[p.Index]

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return dynamics.Control{p.Kp * err}
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt

		u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevErr = err
		p.prevT = t

		return dynamics.Control{u}
	}
	return dynamics.Control{p.Kp * err}
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

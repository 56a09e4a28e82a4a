package metrics

import (
	"math"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// Energy reports the mean total energy along a trajectory for systems
// that expose a Hamiltonian. For other systems it stays zero.
type Energy struct {
	name    string
	sys     dynamics.System
	sum     float64
	samples int
}

func NewEnergy(sys dynamics.System) *Energy {
	return &Energy{
		name: "energy",
		sys:  sys,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamics.State, u dynamics.Control, t float64) {
	h, ok := e.sys.(dynamics.Hamiltonian)
	if !ok {
		return
	}
	e.sum += h.Energy(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *Energy) Reset() {
	e.sum = 0
	e.samples = 0
}

// EnergyDrift tracks the maximum relative deviation from the initial
// energy, a proxy for integrator quality on conservative systems.
type EnergyDrift struct {
	name          string
	sys           dynamics.System
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(sys dynamics.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		sys:  sys,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamics.State, u dynamics.Control, t float64) {
	h, ok := e.sys.(dynamics.Hamiltonian)
	if !ok {
		return
	}

	energy := h.Energy(x)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

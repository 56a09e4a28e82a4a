package metrics

import (
	"math"
	"testing"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/physics"
	"github.com/githubhash01/Honours-Project/internal/task"
)

func TestEnergyPendulum(t *testing.T) {
	p := physics.NewPendulum()
	m := NewEnergy(p)

	theta := math.Pi / 4
	x := dynamics.State{theta, 0}

	m.Observe(x, dynamics.Control{}, 0)
	got := m.Value()
	want := p.Energy(x)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("energy = %v, want %v", got, want)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	p := physics.NewPendulum()
	m := NewEnergyDrift(p)

	m.Observe(dynamics.State{1, 0}, dynamics.Control{}, 0)
	if m.Value() != 0 {
		t.Errorf("drift after one sample = %v, want 0", m.Value())
	}

	// Same energy again: still no drift.
	m.Observe(dynamics.State{1, 0}, dynamics.Control{}, 1)
	if m.Value() != 0 {
		t.Errorf("drift = %v, want 0", m.Value())
	}

	// A different energy registers as drift.
	m.Observe(dynamics.State{2, 1}, dynamics.Control{}, 2)
	if m.Value() == 0 {
		t.Error("expected non-zero drift")
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	m.Observe(dynamics.State{0}, dynamics.Control{2}, 0)
	m.Observe(dynamics.State{0}, dynamics.Control{-4}, 0)

	if m.Value() != 3 {
		t.Errorf("mean effort = %v, want 3", m.Value())
	}
}

func TestStability(t *testing.T) {
	m := NewStability(10)
	m.Observe(dynamics.State{1, 2}, nil, 0)
	m.Observe(dynamics.State{100, 0}, nil, 0)

	if m.Value() != 0.5 {
		t.Errorf("stability = %v, want 0.5", m.Value())
	}
}

func TestCostMatchesTask(t *testing.T) {
	tk, err := task.New("di")
	if err != nil {
		t.Fatal(err)
	}
	m := NewCost(tk)

	x := dynamics.State{1, 0}
	u := dynamics.Control{0.5}
	m.Observe(x, u, 0)
	m.Observe(x, u, 0.01)

	want := 2 * tk.StepCost(x, u)
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("cost = %v, want %v", m.Value(), want)
	}
}

func TestDefaults(t *testing.T) {
	set := Defaults(physics.NewPendulum())
	if len(set) != 4 {
		t.Fatalf("got %d default metrics, want 4", len(set))
	}
	names := map[string]bool{}
	for _, m := range set {
		names[m.Name()] = true
	}
	for _, want := range []string{"energy", "energy_drift", "control_effort", "stability"} {
		if !names[want] {
			t.Errorf("missing default metric %s", want)
		}
	}
}

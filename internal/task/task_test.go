package task

import (
	"math"
	"math/rand"
	"testing"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		tk, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if tk.Name != name {
			t.Errorf("task name = %q, want %q", tk.Name, name)
		}
		if tk.Horizon <= 0 || tk.Dt <= 0 {
			t.Errorf("%s: bad horizon/dt: %d, %v", name, tk.Horizon, tk.Dt)
		}
		if tk.ObsDim() <= 0 {
			t.Errorf("%s: bad obs dim", name)
		}
	}

	if _, err := New("humanoid"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestTasksAreIndependent(t *testing.T) {
	a, _ := New("pendulum")
	b, _ := New("pendulum")

	cfg := a.System.(dynamics.Configurable)
	if err := cfg.SetParam("mass", 3.0); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}

	if b.System.(dynamics.Configurable).GetParams()["mass"] == 3.0 {
		t.Error("tasks share a system instance")
	}
}

func TestInitRanges(t *testing.T) {
	tk, _ := New("di")
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		x := tk.Init(rng)
		if x[0] < -1 || x[0] > 1 {
			t.Fatalf("position %v outside [-1, 1]", x[0])
		}
		if x[1] < -0.7 || x[1] > 0.7 {
			t.Fatalf("velocity %v outside [-0.7, 0.7]", x[1])
		}
	}
}

func TestTrajectoryCost(t *testing.T) {
	tk, _ := New("di")

	states := []dynamics.State{{1, 0}, {0.5, 0}, {0, 0}}
	controls := []dynamics.Control{{1}, {1}}

	// Step costs: dt*(10*1 + 0.01) and dt*(10*0.25 + 0.01); terminal 0.
	want := 0.01*(10+0.01) + 0.01*(2.5+0.01)
	got := tk.TrajectoryCost(states, controls)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("TrajectoryCost = %v, want %v", got, want)
	}
}

func TestClamp(t *testing.T) {
	tk, _ := New("pendulum")

	u := tk.Clamp(dynamics.Control{100})
	if u[0] != tk.ControlLimit {
		t.Errorf("clamped control = %v, want %v", u[0], tk.ControlLimit)
	}

	free, _ := New("di")
	u = free.Clamp(dynamics.Control{100})
	if u[0] != 100 {
		t.Errorf("unbounded task clamped control to %v", u[0])
	}
}

func TestArmDone(t *testing.T) {
	tk, _ := New("arm")

	tests := []struct {
		name string
		x    dynamics.State
		done bool
	}{
		{"nominal", dynamics.State{0.5, 0.5, 1, 1}, false},
		{"spun out", dynamics.State{7.5, 0, 0, 0}, true},
		{"too fast", dynamics.State{0, 0, 11, 0}, true},
		{"nan", dynamics.State{math.NaN(), 0, 0, 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tk.Done(tt.x, 0); got != tt.done {
				t.Errorf("Done(%v) = %v, want %v", tt.x, got, tt.done)
			}
		})
	}
}

func TestEncoderJacobian(t *testing.T) {
	enc := &Trig{N: 2, Angles: []int{0}}
	x := dynamics.State{1.2, -0.4}

	if enc.Dim() != 3 {
		t.Fatalf("Dim() = %d, want 3", enc.Dim())
	}

	jac := enc.Jacobian(x)
	eps := 1e-6
	for j := 0; j < 2; j++ {
		xp := x.Clone()
		xm := x.Clone()
		xp[j] += eps
		xm[j] -= eps
		op := enc.Encode(xp)
		om := enc.Encode(xm)
		for i := 0; i < enc.Dim(); i++ {
			want := (op[i] - om[i]) / (2 * eps)
			if math.Abs(jac.At(i, j)-want) > 1e-6 {
				t.Errorf("J[%d,%d] = %v, finite difference %v", i, j, jac.At(i, j), want)
			}
		}
	}
}

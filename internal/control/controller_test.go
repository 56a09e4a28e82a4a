package control

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/nn"
	"github.com/githubhash01/Honours-Project/internal/task"
)

func TestNone(t *testing.T) {
	ctrl := NewNone(2)
	u := ctrl.Compute(dynamics.State{1.0, 2.0}, 0.0)

	if len(u) != 2 {
		t.Errorf("expected 2 controls, got %d", len(u))
	}
	for i, v := range u {
		if v != 0 {
			t.Errorf("control[%d] should be 0, got %f", i, v)
		}
	}
}

func TestPID(t *testing.T) {
	ctrl := NewPID(10.0, 0.1, 5.0, 0.0)
	u := ctrl.Compute(dynamics.State{1.0, 0.0}, 0.0)
	if len(u) != 1 {
		t.Fatalf("expected 1 control, got %d", len(u))
	}
	if u[0] >= 0 {
		t.Error("PID should output negative control for positive error")
	}
}

func TestPIDReset(t *testing.T) {
	ctrl := NewPID(1.0, 1.0, 0.0, 0.0)
	ctrl.Compute(dynamics.State{1.0, 0.0}, 0.0)
	ctrl.Compute(dynamics.State{1.0, 0.0}, 0.1)
	if ctrl.integral == 0 {
		t.Fatal("integral should accumulate between calls")
	}

	ctrl.Reset()
	if ctrl.integral != 0 || !ctrl.first {
		t.Error("Reset should clear accumulated state")
	}
}

func TestManualPlayback(t *testing.T) {
	seq := []dynamics.Control{{1}, {2}, {3}}
	ctrl := NewManual(seq, 0.1)

	cases := []struct {
		t    float64
		want float64
	}{
		{0.0, 1},
		{0.1, 2},
		{0.2, 3},
		{0.9, 3}, // held past the end
		{-0.5, 1},
	}
	for _, tc := range cases {
		u := ctrl.Compute(dynamics.State{0}, tc.t)
		if u[0] != tc.want {
			t.Errorf("Compute(t=%v) = %v, want %v", tc.t, u[0], tc.want)
		}
	}
}

// A single linear layer gives a value function v = w0*x0 + w1*x1 + b
// whose HJB control has a closed form to compare against.
func TestHJBLinearValue(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	net := nn.New([]int{2, 1}, nn.ReLU, rng)
	net.SetParamsVector([]float64{2, 3, 0})

	r := mat.NewDense(1, 1, []float64{0.5})
	g := mat.NewDense(2, 1, []float64{0, 1})
	ctrl, err := NewHJB(net, &task.Identity{N: 2}, r, g, false)
	if err != nil {
		t.Fatalf("NewHJB failed: %v", err)
	}

	// u = -1/2 * (1/0.5) * (G' dv/dx) = -1 * 3
	u := ctrl.Compute(dynamics.State{0.4, -0.2}, 0)
	if math.Abs(u[0]-(-3)) > 1e-12 {
		t.Errorf("Compute = %v, want -3", u[0])
	}
}

func TestHJBTimeInput(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	net := nn.New([]int{3, 1}, nn.ReLU, rng)
	net.SetParamsVector([]float64{2, 3, 7, 0})

	r := mat.NewDense(1, 1, []float64{0.5})
	g := mat.NewDense(2, 1, []float64{0, 1})
	ctrl, err := NewHJB(net, &task.Identity{N: 2}, r, g, true)
	if err != nil {
		t.Fatalf("NewHJB failed: %v", err)
	}

	// The time weight must not leak into dv/dx.
	u := ctrl.Compute(dynamics.State{0.4, -0.2}, 5.0)
	if math.Abs(u[0]-(-3)) > 1e-12 {
		t.Errorf("Compute = %v, want -3", u[0])
	}
}

func TestNNBound(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	net := nn.New([]int{2, 8, 1}, nn.ReLU, rng)
	ctrl := NewNN(net, &task.Identity{N: 2}, 2.0)

	for i := 0; i < 20; i++ {
		x := dynamics.State{rng.NormFloat64() * 5, rng.NormFloat64() * 5}
		u := ctrl.Compute(x, 0)
		if math.Abs(u[0]) > 2.0 {
			t.Fatalf("bounded control %v exceeds limit", u[0])
		}
	}
}

func TestBounded(t *testing.T) {
	seq := []dynamics.Control{{5}, {-5}, {0.5}}
	ctrl := NewBounded(NewManual(seq, 0.1), 2.0)

	cases := []struct {
		t    float64
		want float64
	}{
		{0.0, 2},
		{0.1, -2},
		{0.2, 0.5},
	}
	for _, tc := range cases {
		if u := ctrl.Compute(dynamics.State{0}, tc.t); u[0] != tc.want {
			t.Errorf("Compute(t=%v) = %v, want %v", tc.t, u[0], tc.want)
		}
	}

	// The wrapped sequence itself must stay untouched.
	if seq[0][0] != 5 {
		t.Fatalf("clamping mutated the underlying sequence: %v", seq[0])
	}

	// Zero limit passes through.
	open := NewBounded(NewManual(seq, 0.1), 0)
	if u := open.Compute(dynamics.State{0}, 0); u[0] != 5 {
		t.Errorf("unbounded Compute = %v, want 5", u[0])
	}
}

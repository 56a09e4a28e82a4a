package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/integrators"
	"github.com/githubhash01/Honours-Project/internal/physics"
)

// growthSystem has the exact exponent rate: dx/dt = rate*x.
type growthSystem struct{ rate float64 }

func (g growthSystem) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	return dynamics.State{g.rate * x[0]}
}
func (growthSystem) StateDim() int   { return 1 }
func (growthSystem) ControlDim() int { return 1 }

// oscSystem is an undamped unit oscillator.
type oscSystem struct{}

func (oscSystem) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	return dynamics.State{x[1], -x[0]}
}
func (oscSystem) StateDim() int   { return 2 }
func (oscSystem) ControlDim() int { return 1 }

func TestLyapunovExpanding(t *testing.T) {
	lambda := LyapunovExponent(growthSystem{rate: 1}, integrators.NewEuler(), nil,
		dynamics.State{0.1}, 0.001, 2, 1e-8)
	// Euler on dx/dt = x multiplies separation by (1+dt) each step.
	want := math.Log(1.001) / 0.001
	if math.Abs(lambda-want) > 0.01 {
		t.Errorf("lambda = %g, want %g", lambda, want)
	}
}

func TestLyapunovContracting(t *testing.T) {
	lambda := LyapunovExponent(growthSystem{rate: -1}, integrators.NewEuler(), nil,
		dynamics.State{0.1}, 0.001, 2, 1e-8)
	if math.Abs(lambda+1) > 0.01 {
		t.Errorf("lambda = %g, want -1", lambda)
	}
}

func TestLyapunovNeutral(t *testing.T) {
	// An unforced point mass neither grows nor damps a position offset.
	lambda := LyapunovExponent(physics.NewDoubleIntegrator(), integrators.NewEuler(), nil,
		dynamics.State{0.5, 0.2}, 0.01, 20, 1e-8)
	if math.Abs(lambda) > 1e-9 {
		t.Errorf("lambda = %g, want 0", lambda)
	}
}

func TestLyapunovClosedLoop(t *testing.T) {
	// u = -2x - 3v places the closed-loop poles at -1 and -2, so the
	// dominant exponent is -1.
	feedback := ControlFunc(func(x dynamics.State, _ float64) dynamics.Control {
		return dynamics.Control{-2*x[0] - 3*x[1]}
	})
	lambda := LyapunovExponent(physics.NewDoubleIntegrator(), integrators.NewRK4(), feedback,
		dynamics.State{1, 0}, 0.01, 20, 1e-8)
	if lambda > -0.5 || lambda < -2.5 {
		t.Errorf("lambda = %g, want near -1", lambda)
	}
}

func TestLyapunovDegenerate(t *testing.T) {
	if l := LyapunovExponent(oscSystem{}, integrators.NewEuler(), nil, dynamics.State{}, 0.01, 1, 1e-8); l != 0 {
		t.Errorf("empty state: lambda = %g", l)
	}
	if l := LyapunovExponent(oscSystem{}, integrators.NewEuler(), nil, dynamics.State{1, 0}, 0, 1, 1e-8); l != 0 {
		t.Errorf("zero dt: lambda = %g", l)
	}
}

func TestPhasePortraitOscillator(t *testing.T) {
	portrait, err := PhasePortrait(oscSystem{}, integrators.NewRK4(), nil,
		dynamics.State{1, 0}, 0, 1, 0.01, 2*math.Pi)
	if err != nil {
		t.Fatalf("PhasePortrait: %v", err)
	}

	wantPoints := int(math.Trunc(2*math.Pi/0.01)) + 1
	if len(portrait.Points) != wantPoints {
		t.Errorf("points = %d, want %d", len(portrait.Points), wantPoints)
	}
	if portrait.XIndex != 0 || portrait.YIndex != 1 {
		t.Errorf("indices = %d,%d, want 0,1", portrait.XIndex, portrait.YIndex)
	}

	// The orbit is the unit circle.
	minX, maxX, minY, maxY := portrait.Bounds()
	for name, v := range map[string]float64{"minX": -minX, "maxX": maxX, "minY": -minY, "maxY": maxY} {
		if math.Abs(v-1) > 0.01 {
			t.Errorf("%s = %g, want magnitude 1", name, v)
		}
	}
}

func TestPhasePortraitBadIndex(t *testing.T) {
	_, err := PhasePortrait(oscSystem{}, integrators.NewEuler(), nil, dynamics.State{1, 0}, 0, 5, 0.01, 1)
	if !errors.Is(err, dynamics.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestPortraitFromStates(t *testing.T) {
	states := []dynamics.State{{1, 2}, {3, 4}, {5, 6}}
	portrait, err := PortraitFromStates(states, 1, 0)
	if err != nil {
		t.Fatalf("PortraitFromStates: %v", err)
	}
	if len(portrait.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(portrait.Points))
	}
	if portrait.Points[1] != (Point{X: 4, Y: 3}) {
		t.Errorf("point[1] = %+v, want {4 3}", portrait.Points[1])
	}

	if _, err := PortraitFromStates(nil, 0, 1); err == nil {
		t.Error("expected error for empty states")
	}
}

func TestBoundsDegenerate(t *testing.T) {
	portrait := &PhasePortrait2D{Points: []Point{{X: 2, Y: 3}}}
	minX, maxX, minY, maxY := portrait.Bounds()
	if maxX-minX <= 0 || maxY-minY <= 0 {
		t.Errorf("degenerate bounds: x [%g,%g] y [%g,%g]", minX, maxX, minY, maxY)
	}
}

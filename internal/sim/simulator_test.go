package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/githubhash01/Honours-Project/internal/compute"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/integrators"
)

// decaySystem is dX/dt = -x, with closed-form solution x0*exp(-t).
type decaySystem struct{}

func (decaySystem) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	return dynamics.State{-x[0]}
}
func (decaySystem) StateDim() int   { return 1 }
func (decaySystem) ControlDim() int { return 0 }

// blowupSystem produces NaN after the state grows past a threshold.
type blowupSystem struct{}

func (blowupSystem) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	if x[0] > 2 {
		return dynamics.State{math.NaN()}
	}
	return dynamics.State{x[0] * x[0]}
}
func (blowupSystem) StateDim() int   { return 1 }
func (blowupSystem) ControlDim() int { return 0 }

func TestSimulatorRun(t *testing.T) {
	s := New(decaySystem{}, integrators.NewEuler(), nil)

	cfg := dynamics.DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 1.0

	result, err := s.Run(context.Background(), dynamics.State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}

	finalState := result.States[len(result.States)-1][0]
	expected := math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	s := New(decaySystem{}, integrators.NewEuler(), nil)

	tests := []struct {
		name string
		cfg  dynamics.Config
	}{
		{"zero dt", dynamics.Config{Dt: 0, Duration: 1.0}},
		{"negative dt", dynamics.Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", dynamics.Config{Dt: 0.1, Duration: 0}},
		{"negative duration", dynamics.Config{Dt: 0.1, Duration: -1.0}},
		{"adaptive without tolerance", dynamics.Config{Dt: 0.1, Duration: 1.0, Adaptive: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Run(context.Background(), dynamics.State{1.0}, tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

type countMetric struct {
	count int
	sum   float64
}

func (c *countMetric) Name() string { return "count" }
func (c *countMetric) Observe(x dynamics.State, u dynamics.Control, t float64) {
	c.count++
	c.sum += x[0]
}
func (c *countMetric) Value() float64 { return float64(c.count) }
func (c *countMetric) Reset()         { c.count = 0; c.sum = 0 }

func TestSimulatorMetrics(t *testing.T) {
	s := New(decaySystem{}, integrators.NewEuler(), nil)
	metric := &countMetric{}
	s.AddMetric(metric)

	cfg := dynamics.DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 1.0

	result, err := s.Run(context.Background(), dynamics.State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Metrics["count"] != 10 {
		t.Errorf("metric observed %v steps, want 10", result.Metrics["count"])
	}

	// A second run must reset the metric, not accumulate.
	result, err = s.Run(context.Background(), dynamics.State{1.0}, cfg)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.Metrics["count"] != 10 {
		t.Errorf("metric not reset between runs: %v", result.Metrics["count"])
	}
}

func TestSimulatorInvalidStateStops(t *testing.T) {
	s := New(blowupSystem{}, integrators.NewEuler(), nil)

	cfg := dynamics.DefaultConfig()
	cfg.Dt = 0.5
	cfg.Duration = 100

	result, err := s.Run(context.Background(), dynamics.State{1.5}, cfg)
	if err == nil {
		t.Fatal("expected error from invalid state")
	}
	if !errors.Is(err, dynamics.ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
	var simErr *dynamics.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatal("error should be a SimulationError")
	}
	if result == nil || len(result.States) == 0 {
		t.Error("partial result should be returned")
	}
}

func TestSimulatorCancellation(t *testing.T) {
	s := New(decaySystem{}, integrators.NewEuler(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := dynamics.DefaultConfig()
	_, err := s.Run(ctx, dynamics.State{1.0}, cfg)
	if !errors.Is(err, dynamics.ErrContextCanceled) {
		t.Errorf("error = %v, want ErrContextCanceled", err)
	}
}

func TestSimulatorAdaptive(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamics.Integrator
	}{
		{"step doubling fallback", integrators.NewEuler()},
		{"embedded pair", integrators.NewRK45()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(decaySystem{}, tt.integ, nil)

			cfg := dynamics.DefaultConfig()
			cfg.Dt = 0.1
			cfg.Duration = 1.0
			cfg.Adaptive = true
			cfg.Tolerance = 1e-3

			result, err := s.Run(context.Background(), dynamics.State{1.0}, cfg)
			if err != nil {
				t.Fatalf("adaptive run failed: %v", err)
			}
			if len(result.States) < 2 {
				t.Errorf("got %d states, want at least 2", len(result.States))
			}
		})
	}
}

func TestSimulatorAdaptiveStepFloor(t *testing.T) {
	s := New(decaySystem{}, integrators.NewEuler(), nil)

	cfg := dynamics.DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 1.0
	cfg.Adaptive = true
	cfg.Tolerance = 1e-9
	cfg.MinDt = 0.05

	_, err := s.Run(context.Background(), dynamics.State{1.0}, cfg)
	if !errors.Is(err, dynamics.ErrStepTooSmall) {
		t.Errorf("error = %v, want ErrStepTooSmall", err)
	}
}

func TestSimulatorEnergyDrift(t *testing.T) {
	s := New(oscillator{}, integrators.NewRK4(), nil)

	cfg := dynamics.DefaultConfig()
	cfg.Dt = 0.01
	cfg.Duration = 10

	result, err := s.Run(context.Background(), dynamics.State{1, 0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.EnergyDrift > 1e-6 {
		t.Errorf("energy drift = %v, want < 1e-6 for RK4", result.EnergyDrift)
	}
}

// oscillator is a unit harmonic oscillator with known energy.
type oscillator struct{}

func (oscillator) Derive(x dynamics.State, u dynamics.Control, t float64) dynamics.State {
	return dynamics.State{x[1], -x[0]}
}
func (oscillator) StateDim() int   { return 2 }
func (oscillator) ControlDim() int { return 0 }
func (oscillator) Energy(x dynamics.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRunWithCallback(t *testing.T) {
	s := New(decaySystem{}, integrators.NewEuler(), nil)

	cfg := dynamics.DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 1.0

	calls := 0
	err := s.RunWithCallback(context.Background(), dynamics.State{1.0}, cfg, func(x dynamics.State, u dynamics.Control, tm float64) bool {
		calls++
		return calls < 5
	})
	if err != nil {
		t.Fatalf("callback run failed: %v", err)
	}
	if calls != 5 {
		t.Errorf("callback called %d times, want 5", calls)
	}
}

func TestEnsembleRunsAllInits(t *testing.T) {
	build := func() *Simulator {
		return New(decaySystem{}, integrators.NewEuler(), nil)
	}
	ens := NewEnsemble(build, compute.NewParallel(2))

	inits := []dynamics.State{{1}, {2}, {3}, {4}}
	cfg := dynamics.DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 0.5

	results, err := ens.Run(context.Background(), inits, cfg)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("result %d is nil", i)
		}
		// Larger initial states stay larger under linear decay.
		if i > 0 && results[i].States[5][0] <= results[i-1].States[5][0] {
			t.Errorf("result ordering broken at %d", i)
		}
	}
}

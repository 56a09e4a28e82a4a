package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

// Simulator orchestrates a single rollout of a system under a
// controller, collecting states, controls, and metric values.
// Simulator instances are not safe for concurrent use; see [Ensemble]
// for parallel runs.
type Simulator struct {
	sys        dynamics.System
	integrator dynamics.Integrator
	controller dynamics.Controller
	metrics    []dynamics.Metric
}

func New(sys dynamics.System, integrator dynamics.Integrator, controller dynamics.Controller) *Simulator {
	if controller == nil {
		controller = zeroController{dim: sys.ControlDim()}
	}
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		controller: controller,
	}
}

type zeroController struct{ dim int }

func (z zeroController) Compute(x dynamics.State, t float64) dynamics.Control {
	return make(dynamics.Control, z.dim)
}
func (z zeroController) Reset() {}

func (s *Simulator) AddMetric(m dynamics.Metric) { s.metrics = append(s.metrics, m) }

func (s *Simulator) Run(ctx context.Context, x0 dynamics.State, cfg dynamics.Config) (*dynamics.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &dynamics.Result{
		States:   make([]dynamics.State, 0, steps+1),
		Controls: make([]dynamics.Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.controller.Reset()

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.computeEnergy(x)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %v", dynamics.ErrContextCanceled, ctx.Err())
		default:
		}

		u := s.controller.Compute(x, t)

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}

		var newX dynamics.State
		var stepErr error

		if cfg.Adaptive {
			newX, dt, stepErr = s.adaptiveStep(x, u, t, dt, cfg)
		} else {
			newX = s.integrator.Step(s.sys, x, u, t, dt)
		}
		if stepErr != nil {
			s.finishMetrics(result)
			return result, &dynamics.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: stepErr}
		}

		if cfg.ValidateState && !newX.IsValid() {
			s.finishMetrics(result)
			return result, &dynamics.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: dynamics.ErrInvalidState}
		}

		x = newX
		t += dt
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	finalEnergy := s.computeEnergy(x)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	s.finishMetrics(result)
	return result, nil
}

func (s *Simulator) finishMetrics(result *dynamics.Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) computeEnergy(x dynamics.State) float64 {
	if h, ok := s.sys.(dynamics.Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

// adaptiveStep delegates to the integrator's own adaptive path when it
// has one, and otherwise falls back to step doubling. Either way the
// step size is kept inside [cfg.MinDt, cfg.MaxDt].
func (s *Simulator) adaptiveStep(x dynamics.State, u dynamics.Control, t, dt float64, cfg dynamics.Config) (dynamics.State, float64, error) {
	if adaptive, ok := s.integrator.(dynamics.AdaptiveIntegrator); ok {
		newX, dtNew, err := adaptive.StepAdaptive(s.sys, x, u, t, dt, cfg.Tolerance)
		if err != nil {
			return newX, dtNew, err
		}
		if dtNew < cfg.MinDt {
			return newX, dtNew, fmt.Errorf("%w: proposed dt %g below %g", dynamics.ErrStepTooSmall, dtNew, cfg.MinDt)
		}
		return newX, math.Min(dtNew, cfg.MaxDt), nil
	}

	x1 := s.integrator.Step(s.sys, x, u, t, dt)
	xHalf := s.integrator.Step(s.sys, x, u, t, dt/2)
	x2 := s.integrator.Step(s.sys, xHalf, u, t+dt/2, dt/2)

	err := x1.Sub(x2).Norm()

	if err > cfg.Tolerance {
		if dt > cfg.MinDt {
			return s.adaptiveStep(x, u, t, dt/2, cfg)
		}
		return x2, dt, fmt.Errorf("%w: error %.3g at dt %g", dynamics.ErrStepTooSmall, err, dt)
	}

	if err < cfg.Tolerance/10 && dt < cfg.MaxDt {
		dt = math.Min(dt*2, cfg.MaxDt)
	}

	return x2, dt, nil
}

// RunWithCallback steps the simulation without buffering, invoking the
// callback before each step. Returning false from the callback stops
// the run.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 dynamics.State, cfg dynamics.Config, callback func(dynamics.State, dynamics.Control, float64) bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.controller.Reset()
	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", dynamics.ErrContextCanceled, ctx.Err())
		default:
		}

		u := s.controller.Compute(x, t)

		if !callback(x, u, t) {
			return nil
		}

		x = s.integrator.Step(s.sys, x, u, t, dt)
		t += dt

		if cfg.ValidateState && !x.IsValid() {
			return &dynamics.SimulationError{Time: t, State: x.Clone(), Wrapped: dynamics.ErrInvalidState}
		}
	}

	return nil
}

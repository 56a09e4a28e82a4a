package experiment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/githubhash01/Honours-Project/internal/analysis"
	"github.com/githubhash01/Honours-Project/internal/config"
	"github.com/githubhash01/Honours-Project/internal/control"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/integrators"
	"github.com/githubhash01/Honours-Project/internal/metrics"
	"github.com/githubhash01/Honours-Project/internal/sim"
	"github.com/githubhash01/Honours-Project/internal/store"
	"github.com/githubhash01/Honours-Project/internal/task"
)

const defaultEvalEpisodes = 10

// Summary reports one finished experiment.
type Summary struct {
	RunID      string
	Task       string
	Method     string
	Integrator string
	Seed       int64

	// FinalCost is the mean evaluation cost over fresh initial
	// states, EvalStd its spread, Diverged the episodes that left
	// the valid state region.
	FinalCost float64
	EvalStd   float64
	Diverged  int

	// Effort is the mean absolute actuation along one traced
	// episode, Smoothness its spectral smoothness in [0, 1].
	Effort     float64
	Smoothness float64

	Curve    []float64
	Steps    int64
	WallTime time.Duration
}

// Experiment resolves a run config against the registries, trains the
// configured method and evaluates the result.
type Experiment struct {
	run *config.Run
	st  *store.Store
	log *zap.SugaredLogger

	progress func(step int, value float64)

	task  *task.Task
	integ dynamics.Integrator
	build buildFunc
	ctrl  dynamics.Controller
}

// New wires an experiment. The store may be nil to skip persistence
// and the logger may be nil for silence.
func New(run *config.Run, st *store.Store, log *zap.SugaredLogger) *Experiment {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Experiment{run: run, st: st, log: log}
}

// OnProgress registers a callback invoked after every training epoch
// or iteration with the current loss. Must be set before Run.
func (e *Experiment) OnProgress(fn func(step int, value float64)) {
	e.progress = fn
}

// TaskFor resolves a run's task and applies its dt and horizon
// overrides, so evaluations and replays use the geometry the run was
// trained with.
func TaskFor(run *config.Run) (*task.Task, error) {
	tk, err := task.New(run.Task)
	if err != nil {
		return nil, err
	}
	if run.Dt > 0 {
		tk.Dt = run.Dt
	}
	if run.Horizon > 0 {
		tk.Horizon = run.Horizon
	}
	return tk, nil
}

// Setup validates the config and resolves the task, integrator and
// method. Run calls it when needed; calling it twice is a no-op.
func (e *Experiment) Setup() error {
	if e.task != nil {
		return nil
	}
	if err := e.run.Validate(); err != nil {
		return err
	}
	tk, err := TaskFor(e.run)
	if err != nil {
		return err
	}
	name := e.run.Integrator
	if name == "" {
		name = "euler"
	}
	integ, err := integrators.New(name)
	if err != nil {
		return err
	}
	build, err := methodFor(e.run.Method)
	if err != nil {
		return err
	}
	e.task, e.integ, e.build = tk, integ, build
	return nil
}

// Task returns the resolved task, nil before Setup.
func (e *Experiment) Task() *task.Task { return e.task }

// Integrator returns the resolved integrator, nil before Setup.
func (e *Experiment) Integrator() dynamics.Integrator { return e.integ }

// Controller returns the trained controller, nil before Run.
func (e *Experiment) Controller() dynamics.Controller { return e.ctrl }

// Run trains, evaluates and records one experiment. The returned
// summary is valid even without an attached store; with one, the run
// row is marked failed when training errors out.
func (e *Experiment) Run(ctx context.Context) (*Summary, error) {
	if err := e.Setup(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamics.ErrContextCanceled, err)
	}

	sum := &Summary{
		Task:       e.run.Task,
		Method:     e.run.Method,
		Integrator: e.integ.Name(),
		Seed:       e.run.Seed,
	}

	runID, err := e.saveStart(ctx)
	if err != nil {
		return nil, err
	}
	sum.RunID = runID

	start := time.Now()
	built, err := e.build(ctx, e)
	if err != nil {
		e.markFailed(runID, time.Since(start))
		return nil, err
	}
	e.ctrl = built.ctrl
	sum.Curve = built.curve
	sum.Steps = built.steps

	episodes := e.run.EvalEpisodes
	if episodes <= 0 {
		episodes = defaultEvalEpisodes
	}
	// The +1 keeps evaluation initial states off the training
	// stream.
	sum.FinalCost, sum.EvalStd, sum.Diverged = analysis.Evaluate(e.task, e.integ, built.ctrl, episodes, e.run.Seed+1)

	traj, err := e.trace(ctx, built.ctrl)
	if err != nil {
		e.log.Warnw("trace rollout failed",
			"task", sum.Task, "method", sum.Method, "err", err)
	} else {
		sum.Effort = traj.Metrics["control_effort"]
		sum.Smoothness = controlSmoothness(traj.Controls)
	}
	sum.WallTime = time.Since(start)

	if err := e.saveFinish(ctx, runID, sum, built, traj); err != nil {
		return nil, err
	}

	e.log.Infow("experiment done",
		"task", sum.Task,
		"method", sum.Method,
		"seed", sum.Seed,
		"cost", sum.FinalCost,
		"std", sum.EvalStd,
		"diverged", sum.Diverged,
		"wall", sum.WallTime)
	return sum, nil
}

// trace replays one closed-loop episode with the cost and effort
// metrics attached, for the stored trajectory and the control-signal
// statistics.
func (e *Experiment) trace(ctx context.Context, ctrl dynamics.Controller) (*dynamics.Result, error) {
	if e.task.Init == nil {
		return nil, fmt.Errorf("task %s has no initial state sampler", e.task.Name)
	}
	rng := rand.New(rand.NewSource(e.run.Seed + 1))
	x0 := e.task.Init(rng)

	s := sim.New(e.task.System, e.integ, control.NewBounded(ctrl, e.task.ControlLimit))
	s.AddMetric(metrics.NewCost(e.task))
	s.AddMetric(metrics.NewControlEffort())

	cfg := dynamics.DefaultConfig()
	cfg.Dt = e.task.Dt
	cfg.Duration = float64(e.task.Horizon) * e.task.Dt
	return s.Run(ctx, x0, cfg)
}

// controlSmoothness averages the spectral smoothness over the
// actuator channels.
func controlSmoothness(controls []dynamics.Control) float64 {
	if len(controls) == 0 || len(controls[0]) == 0 {
		return 0
	}
	m := len(controls[0])
	total := 0.0
	for j := 0; j < m; j++ {
		series := make([]float64, len(controls))
		for i, u := range controls {
			if j < len(u) {
				series[i] = u[j]
			}
		}
		total += analysis.Smoothness(series)
	}
	return total / float64(m)
}

// saveStart opens the run row. Empty id without a store.
func (e *Experiment) saveStart(ctx context.Context) (string, error) {
	if e.st == nil {
		return "", nil
	}
	data, err := yaml.Marshal(e.run)
	if err != nil {
		return "", fmt.Errorf("encode run config: %w", err)
	}
	rec := &store.Run{
		Task:       e.run.Task,
		Method:     e.run.Method,
		Integrator: e.integ.Name(),
		Seed:       e.run.Seed,
		Config:     string(data),
	}
	if err := e.st.SaveRun(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// markFailed closes the run row after a training error. Best effort:
// the training error is the one worth reporting.
func (e *Experiment) markFailed(runID string, wall time.Duration) {
	if e.st == nil || runID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.st.FinishRun(ctx, runID, store.StatusFailed, 0, wall, 0); err != nil {
		e.log.Warnw("mark run failed", "run", runID, "err", err)
	}
}

func (e *Experiment) saveFinish(ctx context.Context, runID string, sum *Summary, built *buildResult, traj *dynamics.Result) error {
	if e.st == nil || runID == "" {
		return nil
	}
	if len(built.curve) > 0 {
		if err := e.st.AppendCurve(ctx, runID, store.CurveTrain, 0, built.curve); err != nil {
			return err
		}
	}
	if built.policy != nil {
		if err := e.st.SavePolicy(ctx, runID, built.policy); err != nil {
			return err
		}
	}
	if traj != nil {
		if err := e.st.SaveTrajectory(ctx, runID, traj); err != nil {
			return err
		}
	}
	status := store.StatusDone
	final := sum.FinalCost
	if math.IsNaN(final) {
		// Every evaluation episode diverged.
		status, final = store.StatusFailed, 0
	}
	return e.st.FinishRun(ctx, runID, status, final, sum.WallTime, sum.Steps)
}

package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/config"
	"github.com/githubhash01/Honours-Project/internal/control"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/nn"
	"github.com/githubhash01/Honours-Project/internal/optimize"
	"github.com/githubhash01/Honours-Project/internal/rl"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// Default PID gains for the classical baseline, used when the config
// leaves all three at zero.
const (
	defaultKp = 10.0
	defaultKi = 0.1
	defaultKd = 5.0
)

// buildResult is what a method hands back: the controller plus
// whatever training artifacts it produced.
type buildResult struct {
	ctrl   dynamics.Controller
	curve  []float64
	steps  int64
	policy []byte
}

type buildFunc func(ctx context.Context, e *Experiment) (*buildResult, error)

var methods = map[string]buildFunc{
	"policy":  buildPolicy,
	"td":      buildPolicy,
	"fvi":     buildPolicy,
	"trajopt": buildTrajOpt,
	"ppo":     buildPPO,
	"lqr":     buildLQR,
	"pid":     buildPID,
}

// MethodNames returns the registered method names in sorted order.
func MethodNames() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func methodFor(name string) (buildFunc, error) {
	fn, ok := methods[name]
	if !ok {
		return nil, fmt.Errorf("unknown method: %s", name)
	}
	return fn, nil
}

// buildPolicy covers the three differentiable-simulation losses. The
// method name doubles as the loss selector.
func buildPolicy(ctx context.Context, e *Experiment) (*buildResult, error) {
	kind, err := optimize.ParseLossKind(e.run.Method)
	if err != nil {
		return nil, err
	}
	opts := optimize.PolicyOptions{
		Loss:      kind,
		Epochs:    e.run.Epochs,
		Batch:     e.run.Batch,
		LR:        e.run.LR,
		Samples:   e.run.Samples,
		NoiseStd:  e.run.Sigma,
		Hidden:    e.run.Hidden,
		ValueTime: e.run.ValueTime,
		Eps:       e.run.Eps,
		Seed:      e.run.Seed,
		Log:       e.log,
		Progress:  e.progress,
	}
	if e.run.Activation != "" {
		act, err := nn.ParseActivation(e.run.Activation)
		if err != nil {
			return nil, err
		}
		opts.Activation = act
	}
	trainer, err := optimize.NewPolicyTrainer(e.task, e.integ, opts)
	if err != nil {
		return nil, err
	}
	res, err := trainer.Train(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(trainer.Net())
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	return &buildResult{
		ctrl:   trainer.Controller(),
		curve:  res.Curve,
		steps:  res.Steps,
		policy: data,
	}, nil
}

// buildTrajOpt optimizes an open-loop sequence from one sampled
// initial state and wraps it as a replay controller.
func buildTrajOpt(ctx context.Context, e *Experiment) (*buildResult, error) {
	if e.task.Init == nil {
		return nil, fmt.Errorf("task %s has no initial state sampler", e.task.Name)
	}
	rng := rand.New(rand.NewSource(e.run.Seed))
	x0 := e.task.Init(rng)

	opts := optimize.TrajOptOptions{
		Iters:    e.run.Iterations,
		LR:       e.run.LR,
		InitStd:  e.run.InitStd,
		Eps:      e.run.Eps,
		Seed:     e.run.Seed,
		Log:      e.log,
		Progress: e.progress,
	}
	res, err := optimize.TrajOpt(ctx, e.task, e.integ, x0, opts)
	if err != nil {
		return nil, err
	}
	return &buildResult{
		ctrl:  control.NewManual(res.Controls, e.task.Dt),
		curve: res.Curve,
		steps: int64(res.Iters) * int64(e.task.Horizon),
	}, nil
}

func buildPPO(ctx context.Context, e *Experiment) (*buildResult, error) {
	agent, err := rl.New(e.task, e.integ, e.ppoConfig(), e.log)
	if err != nil {
		return nil, err
	}
	res, err := agent.Train(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(agent.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	return &buildResult{
		ctrl:   agent.Controller(),
		curve:  res.Curve,
		steps:  res.Steps,
		policy: data,
	}, nil
}

// ppoConfig overlays the non-zero config fields on the rl defaults.
func (e *Experiment) ppoConfig() rl.Config {
	cfg := rl.DefaultConfig()
	p := e.run.PPO
	if p.TotalSteps > 0 {
		cfg.TotalSteps = p.TotalSteps
	}
	if p.NumEnvs > 0 {
		cfg.NumEnvs = p.NumEnvs
	}
	if p.Gamma > 0 {
		cfg.Gamma = p.Gamma
	}
	if p.Lambda > 0 {
		cfg.Lambda = p.Lambda
	}
	if p.Clip > 0 {
		cfg.Clip = p.Clip
	}
	if p.LR > 0 {
		cfg.LR = p.LR
	}
	if p.Entropy > 0 {
		cfg.EntropyCoeff = p.Entropy
	}
	if p.ValueCoeff > 0 {
		cfg.ValueCoeff = p.ValueCoeff
	}
	if p.Minibatches > 0 {
		cfg.Minibatches = p.Minibatches
	}
	if p.UpdateEpochs > 0 {
		cfg.UpdateEpochs = p.UpdateEpochs
	}
	if p.RewardScale > 0 {
		cfg.RewardScale = p.RewardScale
	}
	if p.Normalize != nil {
		cfg.Normalize = *p.Normalize
	}
	if len(e.run.Hidden) > 0 {
		cfg.Hidden = e.run.Hidden
	}
	cfg.Seed = e.run.Seed
	cfg.Progress = e.progress
	return cfg
}

// buildLQR synthesizes the linear-quadratic regulator around the
// origin, taking the quadratic matrices from the task weights.
func buildLQR(_ context.Context, e *Experiment) (*buildResult, error) {
	ctrl, err := synthesizeLQR(e.task)
	if err != nil {
		return nil, err
	}
	return &buildResult{ctrl: ctrl}, nil
}

// synthesizeLQR regulates toward the origin. Tasks with a zero running
// weight fall back to the terminal weight.
func synthesizeLQR(tk *task.Task) (dynamics.Controller, error) {
	n := tk.System.StateDim()
	m := tk.System.ControlDim()

	qw := quadWeights(tk.Running, n)
	if !anyNonZero(qw) {
		qw = quadWeights(tk.Terminal, n)
	}
	rw := quadWeights(tk.Control, m)
	if !anyNonZero(qw) || !anyNonZero(rw) {
		return nil, fmt.Errorf("lqr needs quadratic state and control costs, task %s has none", tk.Name)
	}

	q := mat.NewDense(n, n, nil)
	for i, w := range qw {
		q.Set(i, i, w)
	}
	r := mat.NewDense(m, m, nil)
	for i, w := range rw {
		r.Set(i, i, w)
	}

	xEq := make(dynamics.State, n)
	uEq := make(dynamics.Control, m)
	return control.Synthesize(tk.System, xEq, uEq, q, r, tk.Dt)
}

func buildPID(_ context.Context, e *Experiment) (*buildResult, error) {
	kp, ki, kd := pidGains(e.run)
	return &buildResult{ctrl: control.NewPID(kp, ki, kd, 0)}, nil
}

func pidGains(run *config.Run) (kp, ki, kd float64) {
	kp, ki, kd = run.Kp, run.Ki, run.Kd
	if kp == 0 && ki == 0 && kd == 0 {
		kp, ki, kd = defaultKp, defaultKi, defaultKd
	}
	return kp, ki, kd
}

// RestoreController rebuilds a run's trained controller from its stored
// policy bytes, mirroring what the method handed back at training time.
func RestoreController(run *config.Run, tk *task.Task, policy []byte) (dynamics.Controller, error) {
	switch run.Method {
	case "policy", "td", "fvi", "ppo":
		if len(policy) == 0 {
			return nil, fmt.Errorf("method %s needs stored policy bytes, found none", run.Method)
		}
	}
	switch run.Method {
	case "policy":
		net := &nn.MLP{}
		if err := json.Unmarshal(policy, net); err != nil {
			return nil, fmt.Errorf("decode policy: %w", err)
		}
		return control.NewNN(net, tk.Encoder, tk.ControlLimit), nil
	case "td", "fvi":
		net := &nn.MLP{}
		if err := json.Unmarshal(policy, net); err != nil {
			return nil, fmt.Errorf("decode value net: %w", err)
		}
		return control.NewHJB(net, tk.Encoder, tk.R, tk.G, run.ValueTime)
	case "ppo":
		snap := &rl.Snapshot{}
		if err := json.Unmarshal(policy, snap); err != nil {
			return nil, fmt.Errorf("decode policy: %w", err)
		}
		return snap.Controller(tk), nil
	case "lqr":
		return synthesizeLQR(tk)
	case "pid":
		kp, ki, kd := pidGains(run)
		return control.NewPID(kp, ki, kd, 0), nil
	case "trajopt":
		return nil, fmt.Errorf("method trajopt stores no reloadable policy, replay its trajectory instead")
	default:
		return nil, fmt.Errorf("unknown method: %s", run.Method)
	}
}

// quadWeights extracts the diagonal weights of a quadratic cost,
// padded to n entries. Nil when the cost is not quadratic.
func quadWeights(c task.Cost, n int) []float64 {
	q, ok := c.(*task.Quadratic)
	if !ok {
		return nil
	}
	out := make([]float64, n)
	copy(out, q.Diagonal())
	return out
}

func anyNonZero(w []float64) bool {
	for _, v := range w {
		if v != 0 {
			return true
		}
	}
	return false
}

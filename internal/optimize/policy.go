package optimize

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/githubhash01/Honours-Project/internal/control"
	"github.com/githubhash01/Honours-Project/internal/diff"
	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/nn"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// LossKind selects what the trained network represents and which loss
// drives it.
type LossKind int

const (
	// LossTrajectory trains the network as a feedback policy by
	// backpropagating the total rollout cost through the simulator.
	LossTrajectory LossKind = iota

	// LossTD trains the network as a value function on squared
	// temporal-difference residuals along rollouts driven by the
	// HJB controller derived from it.
	LossTD

	// LossFittedValue trains the network as a value function
	// against the realized cost-to-go along HJB-driven rollouts.
	LossFittedValue
)

func (k LossKind) String() string {
	switch k {
	case LossTrajectory:
		return "trajectory"
	case LossTD:
		return "td"
	case LossFittedValue:
		return "fvi"
	}
	return fmt.Sprintf("LossKind(%d)", int(k))
}

func ParseLossKind(s string) (LossKind, error) {
	switch s {
	case "trajectory", "policy":
		return LossTrajectory, nil
	case "td":
		return LossTD, nil
	case "fvi", "fitted-value":
		return LossFittedValue, nil
	}
	return 0, fmt.Errorf("optimize: unknown loss kind: %s", s)
}

// PolicyOptions configures a PolicyTrainer. Zero fields fall back to
// defaults.
type PolicyOptions struct {
	Loss   LossKind
	Epochs int     // default 100
	Batch  int     // rollouts per epoch, default 50
	LR     float64 // Adam learning rate, default 1e-3

	// Samples draws this many noisy rollouts per initial state when
	// greater than one, turning the trajectory loss stochastic.
	Samples  int
	NoiseStd float64 // exploration noise scale, default 0.1

	// Hidden sets the hidden layer widths, default [64 64].
	Hidden []int

	// Activation selects the hidden nonlinearity (default ReLU).
	Activation nn.Activation

	// ValueTime appends the rollout time to the value-net input.
	// Only meaningful for the value losses.
	ValueTime bool

	// Eps overrides the finite-difference perturbation size.
	Eps float64

	Seed int64

	Log *zap.SugaredLogger

	// Progress is invoked after every epoch when set.
	Progress func(epoch int, loss float64)
}

// PolicyTrainer fits a network to a task with one of the
// differentiable-simulation losses.
type PolicyTrainer struct {
	task  *task.Task
	integ dynamics.Integrator
	opts  PolicyOptions

	net *nn.MLP
	rng *rand.Rand
	log *zap.SugaredLogger
	fd  diff.Options

	// hjb drives value-loss rollouts; nil for the trajectory loss.
	hjb dynamics.Controller
}

func NewPolicyTrainer(tk *task.Task, integ dynamics.Integrator, opts PolicyOptions) (*PolicyTrainer, error) {
	if tk.Init == nil {
		return nil, fmt.Errorf("optimize: task %s has no initial-state sampler", tk.Name)
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 100
	}
	if opts.Batch <= 0 {
		opts.Batch = 50
	}
	if opts.LR <= 0 {
		opts.LR = 1e-3
	}
	if opts.Samples <= 0 {
		opts.Samples = 1
	}
	if opts.NoiseStd <= 0 {
		opts.NoiseStd = 0.1
	}
	if len(opts.Hidden) == 0 {
		opts.Hidden = []int{64, 64}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}

	in, out := tk.ObsDim(), tk.System.ControlDim()
	if opts.Loss != LossTrajectory {
		if tk.R == nil || tk.G == nil {
			return nil, fmt.Errorf("optimize: task %s has no control-affine matrices for value-based training", tk.Name)
		}
		out = 1
		if opts.ValueTime {
			in++
		}
	}
	sizes := append([]int{in}, opts.Hidden...)
	sizes = append(sizes, out)

	rng := rand.New(rand.NewSource(opts.Seed))
	fd := diff.DefaultOptions()
	if opts.Eps > 0 {
		fd.Eps = opts.Eps
	}

	p := &PolicyTrainer{
		task:  tk,
		integ: integ,
		opts:  opts,
		net:   nn.New(sizes, opts.Activation, rng),
		rng:   rng,
		log:   opts.Log,
		fd:    fd,
	}
	if opts.Loss != LossTrajectory {
		hjb, err := control.NewHJB(p.net, tk.Encoder, tk.R, tk.G, opts.ValueTime)
		if err != nil {
			return nil, err
		}
		p.hjb = hjb
	}
	return p, nil
}

// Net exposes the network being trained.
func (p *PolicyTrainer) Net() *nn.MLP { return p.net }

// Controller wraps the trained network as a feedback controller: the
// network directly for the trajectory loss, the HJB rule for the value
// losses.
func (p *PolicyTrainer) Controller() dynamics.Controller {
	if p.opts.Loss == LossTrajectory {
		return control.NewNN(p.net, p.task.Encoder, p.task.ControlLimit)
	}
	return p.hjb
}

// Train runs the epoch loop until completion or context cancellation.
// On cancellation the partial result is returned along with the error.
func (p *PolicyTrainer) Train(ctx context.Context) (*TrainResult, error) {
	start := time.Now()
	opt := NewAdam(p.opts.LR)
	params := p.net.ParamsVector()
	grads := p.net.NewGrads()
	res := &TrainResult{Best: math.Inf(1)}

	p.log.Infow("training started",
		"task", p.task.Name,
		"loss", p.opts.Loss.String(),
		"epochs", p.opts.Epochs,
		"batch", p.opts.Batch,
		"lr", p.opts.LR,
	)

	for epoch := 0; epoch < p.opts.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			res.WallTime = time.Since(start)
			res.Params = p.net.ParamsVector()
			return res, fmt.Errorf("optimize: training canceled: %w", ctx.Err())
		default:
		}

		grads.Zero()
		var loss float64
		switch p.opts.Loss {
		case LossTrajectory:
			loss = p.epochTrajectory(grads, res)
		default:
			loss = p.epochValue(grads, res)
		}

		opt.Step(params, grads.Vector())
		p.net.SetParamsVector(params)

		res.Curve = append(res.Curve, loss)
		res.Epochs++
		if loss < res.Best {
			res.Best = loss
		}
		if p.opts.Progress != nil {
			p.opts.Progress(epoch, loss)
		}
		if epoch == 0 || (epoch+1)%10 == 0 {
			p.log.Infow("epoch", "n", epoch+1, "loss", loss, "best", res.Best)
		}
	}

	res.WallTime = time.Since(start)
	res.Params = p.net.ParamsVector()
	p.log.Infow("training finished", "best", res.Best, "wall", res.WallTime)
	return res, nil
}

// policyTape records one closed-loop rollout for the reverse pass.
type policyTape struct {
	states   []dynamics.State
	controls []dynamics.Control
	raws     [][]float64 // network output plus noise, before bounding
	traces   []*nn.Trace
	jacs     []diff.StepJac
	cost     float64
}

// rolloutPolicy rolls the task out under the current network, recording
// everything the reverse pass needs. The rollout truncates early if the
// state leaves the representable range.
func (p *PolicyTrainer) rolloutPolicy(x0 dynamics.State, noise [][]float64) *policyTape {
	tk := p.task
	rec := &policyTape{}
	x := x0.Clone()
	tm := 0.0

	for step := 0; step < tk.Horizon; step++ {
		if !x.IsValid() {
			break
		}
		obs := tk.Encoder.Encode(x)
		out, tr := p.net.ForwardTrace(obs)
		raw := out
		if noise != nil {
			raw = append([]float64(nil), out...)
			for i := range raw {
				raw[i] += noise[step][i]
			}
		}
		u := boundControl(raw, tk.ControlLimit)

		rec.states = append(rec.states, x.Clone())
		rec.controls = append(rec.controls, u)
		rec.raws = append(rec.raws, raw)
		rec.traces = append(rec.traces, tr)
		rec.jacs = append(rec.jacs, diff.StepJacobians(tk.System, p.integ, x, u, tm, tk.Dt, p.fd))
		rec.cost += tk.StepCost(x, u)

		x = p.integ.Step(tk.System, x, u, tm, tk.Dt)
		tm += tk.Dt
	}
	rec.states = append(rec.states, x.Clone())
	if x.IsValid() {
		rec.cost += tk.Terminal.Eval(x)
	}
	return rec
}

// backwardPolicy runs the closed-loop adjoint pass over one recorded
// rollout. The control cotangent at each step feeds the network
// parameter gradients, and flows back into the state cotangent through
// the network input Jacobian and the encoder Jacobian.
func (p *PolicyTrainer) backwardPolicy(rec *policyTape, g *nn.Grads) {
	tk := p.task
	h := len(rec.controls)
	n := len(rec.states[0])

	lambda := make([]float64, n)
	last := rec.states[h]
	if last.IsValid() {
		copy(lambda, tk.Terminal.Grad(last))
	}

	for step := h - 1; step >= 0; step-- {
		jac := rec.jacs[step]

		gu := matTMul(jac.B, lambda)
		cg := tk.Control.Grad(rec.controls[step])
		for i := range gu {
			gu[i] += tk.Dt * cg[i]
		}

		// Through the tanh bound into the network.
		d := boundDeriv(rec.raws[step], tk.ControlLimit)
		outGrad := make([]float64, len(gu))
		for i := range gu {
			outGrad[i] = gu[i] * d[i]
		}
		gObs := p.net.Backward(rec.traces[step], outGrad, g)

		next := matTMul(jac.A, lambda)
		rg := tk.Running.Grad(rec.states[step])
		for i := range next {
			next[i] += tk.Dt * rg[i]
		}
		// Policy feedback path: du/dx through encoder and network.
		ej := tk.Encoder.Jacobian(rec.states[step])
		for j := 0; j < n; j++ {
			s := 0.0
			for i := range gObs {
				s += ej.At(i, j) * gObs[i]
			}
			next[j] += s
		}
		lambda = next
	}
}

func (p *PolicyTrainer) epochTrajectory(g *nn.Grads, res *TrainResult) float64 {
	total := 0.0
	count := 0
	for b := 0; b < p.opts.Batch; b++ {
		x0 := p.task.Init(p.rng)
		for s := 0; s < p.opts.Samples; s++ {
			var noise [][]float64
			if p.opts.Samples > 1 {
				noise = p.sampleNoise()
			}
			rec := p.rolloutPolicy(x0, noise)
			p.backwardPolicy(rec, g)
			total += rec.cost
			count++
			res.Steps += int64(len(rec.controls))
		}
	}
	g.Scale(1 / float64(count))
	return total / float64(count)
}

func (p *PolicyTrainer) sampleNoise() [][]float64 {
	m := p.task.System.ControlDim()
	noise := make([][]float64, p.task.Horizon)
	for t := range noise {
		row := make([]float64, m)
		for i := range row {
			row[i] = p.rng.NormFloat64() * p.opts.NoiseStd
		}
		noise[t] = row
	}
	return noise
}

// valueInput builds the value-net input for a state at rollout time t.
func (p *PolicyTrainer) valueInput(x dynamics.State, t float64) []float64 {
	in := p.task.Encoder.Encode(x)
	if p.opts.ValueTime {
		in = append(in, t)
	}
	return in
}

// rolloutValue drives the task with the HJB controller derived from the
// current value net and records states, times, and realized costs. The
// network parameters are data here: gradients flow only through the
// value-net evaluations in the loss, not through the rollout itself.
func (p *PolicyTrainer) rolloutValue(ctrl dynamics.Controller) (states []dynamics.State, times, costs []float64) {
	tk := p.task
	x := tk.Init(p.rng)
	tm := 0.0
	for step := 0; step < tk.Horizon; step++ {
		if !x.IsValid() {
			break
		}
		u := tk.Clamp(ctrl.Compute(x, tm))
		states = append(states, x.Clone())
		times = append(times, tm)
		costs = append(costs, tk.StepCost(x, u))
		x = p.integ.Step(tk.System, x, u, tm, tk.Dt)
		tm += tk.Dt
	}
	states = append(states, x.Clone())
	times = append(times, tm)
	if x.IsValid() {
		costs = append(costs, tk.Terminal.Eval(x))
	} else {
		costs = append(costs, 0)
	}
	return states, times, costs
}

// epochValue runs one epoch of TD or fitted-value training.
func (p *PolicyTrainer) epochValue(g *nn.Grads, res *TrainResult) float64 {
	total := 0.0
	for b := 0; b < p.opts.Batch; b++ {
		states, times, costs := p.rolloutValue(p.hjb)
		res.Steps += int64(len(states) - 1)

		// Forward all states through the net, keeping traces.
		values := make([]float64, len(states))
		traces := make([]*nn.Trace, len(states))
		for i, x := range states {
			out, tr := p.net.ForwardTrace(p.valueInput(x, times[i]))
			values[i] = out[0]
			traces[i] = tr
		}

		var outGrads []float64
		var loss float64
		if p.opts.Loss == LossTD {
			loss, outGrads = tdResiduals(values, costs)
		} else {
			loss, outGrads = fittedValueResiduals(values, costs)
		}
		total += loss

		for i, tr := range traces {
			if outGrads[i] == 0 {
				continue
			}
			p.net.Backward(tr, []float64{outGrads[i]}, g)
		}
	}
	g.Scale(1 / float64(p.opts.Batch))
	return total / float64(p.opts.Batch)
}

// tdResiduals computes the squared temporal-difference loss
//
//	sum_t (v_t - v_{t+1} - c_t)^2 + (v_T - c_T)^2
//
// over one trajectory and the loss gradient with respect to each value.
func tdResiduals(values, costs []float64) (loss float64, outGrads []float64) {
	last := len(values) - 1
	outGrads = make([]float64, len(values))
	for t := 0; t < last; t++ {
		r := values[t] - values[t+1] - costs[t]
		loss += r * r
		outGrads[t] += 2 * r
		outGrads[t+1] -= 2 * r
	}
	r := values[last] - costs[last]
	loss += r * r
	outGrads[last] += 2 * r
	return loss, outGrads
}

// fittedValueResiduals targets the realized cost-to-go, the reversed
// cumulative sum of step costs including the terminal cost.
func fittedValueResiduals(values, costs []float64) (loss float64, outGrads []float64) {
	togo := costToGo(costs)
	outGrads = make([]float64, len(values))
	for t := range values {
		r := values[t] - togo[t]
		loss += r * r
		outGrads[t] = 2 * r
	}
	return loss, outGrads
}

// costToGo computes suffix sums: togo[t] = sum_{k>=t} costs[k].
func costToGo(costs []float64) []float64 {
	togo := make([]float64, len(costs))
	acc := 0.0
	for t := len(costs) - 1; t >= 0; t-- {
		acc += costs[t]
		togo[t] = acc
	}
	return togo
}

func boundControl(raw []float64, limit float64) dynamics.Control {
	u := make(dynamics.Control, len(raw))
	if limit <= 0 {
		copy(u, raw)
		return u
	}
	for i, r := range raw {
		u[i] = limit * math.Tanh(r)
	}
	return u
}

func boundDeriv(raw []float64, limit float64) []float64 {
	d := make([]float64, len(raw))
	if limit <= 0 {
		for i := range d {
			d[i] = 1
		}
		return d
	}
	for i, r := range raw {
		th := math.Tanh(r)
		d[i] = limit * (1 - th*th)
	}
	return d
}

// matTMul computes transpose(m) * v.
func matTMul(m *mat.Dense, v []float64) []float64 {
	_, c := m.Dims()
	out := mat.NewVecDense(c, nil)
	out.MulVec(m.T(), mat.NewVecDense(len(v), v))
	return out.RawVector().Data
}

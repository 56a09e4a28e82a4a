package rl

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	xrand "golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/nn"
	"github.com/githubhash01/Honours-Project/internal/optimize"
	"github.com/githubhash01/Honours-Project/internal/task"
)

// Config holds PPO hyperparameters. DefaultConfig gives values scaled
// to the analytic benchmark tasks.
type Config struct {
	TotalSteps   int
	NumEnvs      int
	Gamma        float64
	Lambda       float64
	Clip         float64
	LR           float64
	EntropyCoeff float64
	ValueCoeff   float64
	Minibatches  int
	UpdateEpochs int
	RewardScale  float64
	Hidden       []int
	Normalize    bool
	EvalEvery    int
	EvalEpisodes int
	Seed         int64

	// Progress is invoked after every iteration with the mean
	// episode cost of the collected batch.
	Progress func(iter int, cost float64) `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		TotalSteps:   500_000,
		NumEnvs:      64,
		Gamma:        0.97,
		Lambda:       0.95,
		Clip:         0.2,
		LR:           3e-4,
		EntropyCoeff: 1e-3,
		ValueCoeff:   0.5,
		Minibatches:  8,
		UpdateEpochs: 8,
		RewardScale:  0.1,
		Hidden:       []int{64, 64},
		Normalize:    true,
		EvalEvery:    10,
		EvalEpisodes: 10,
	}
}

// Result summarizes a PPO run. Curve holds the mean episode cost per
// iteration, directly comparable with the gradient-based training
// curves.
type Result struct {
	Curve    []float64
	EvalIter []int
	EvalMean []float64
	EvalStd  []float64
	Best     float64
	Steps    int64
	Iters    int
	WallTime time.Duration
}

// PPO trains a Gaussian policy on a task with the clipped surrogate
// objective.
type PPO struct {
	task  *task.Task
	integ dynamics.Integrator
	cfg   Config
	log   *zap.SugaredLogger

	policy *GaussianPolicy
	value  *nn.MLP
	stats  *RunningStat

	envs []*envWorker
	rng  *rand.Rand
}

// envWorker owns the per-environment random state so parallel rollouts
// stay deterministic under a fixed seed.
type envWorker struct {
	rng  *rand.Rand
	unit distuv.Normal
}

func New(tk *task.Task, integ dynamics.Integrator, cfg Config, log *zap.SugaredLogger) (*PPO, error) {
	if tk.Init == nil {
		return nil, fmt.Errorf("rl: task %s has no initial-state sampler", tk.Name)
	}
	if cfg.TotalSteps <= 0 || cfg.NumEnvs <= 0 {
		return nil, fmt.Errorf("rl: config needs positive TotalSteps and NumEnvs")
	}
	if len(cfg.Hidden) == 0 {
		cfg.Hidden = []int{64, 64}
	}
	if cfg.Minibatches <= 0 {
		cfg.Minibatches = 1
	}
	if cfg.UpdateEpochs <= 0 {
		cfg.UpdateEpochs = 1
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	obsDim := tk.ObsDim()
	valueSizes := append([]int{obsDim}, cfg.Hidden...)
	valueSizes = append(valueSizes, 1)

	p := &PPO{
		task:   tk,
		integ:  integ,
		cfg:    cfg,
		log:    log,
		policy: NewGaussianPolicy(obsDim, tk.System.ControlDim(), cfg.Hidden, rng),
		value:  nn.New(valueSizes, nn.ReLU, rng),
		stats:  NewRunningStat(obsDim),
		rng:    rng,
	}
	p.envs = make([]*envWorker, cfg.NumEnvs)
	for i := range p.envs {
		seed := cfg.Seed + int64(i) + 1
		p.envs[i] = &envWorker{
			rng:  rand.New(rand.NewSource(seed)),
			unit: distuv.Normal{Mu: 0, Sigma: 1, Src: xrand.NewSource(uint64(seed))},
		}
	}
	return p, nil
}

// Policy exposes the Gaussian policy being trained.
func (p *PPO) Policy() *GaussianPolicy { return p.policy }

// Controller wraps the trained mean policy as a deterministic feedback
// controller with observation normalization and task bounds applied.
func (p *PPO) Controller() dynamics.Controller { return &rlController{p: p} }

type rlController struct{ p *PPO }

func (c *rlController) Compute(x dynamics.State, t float64) dynamics.Control {
	obs := c.p.task.Encoder.Encode(x)
	if c.p.cfg.Normalize {
		obs = c.p.stats.Normalize(obs)
	}
	return c.p.task.Clamp(dynamics.Control(c.p.policy.MeanAction(obs)))
}

func (c *rlController) Reset() {}

// Train runs rollout-update iterations until the step budget is spent
// or the context is canceled.
func (p *PPO) Train(ctx context.Context) (*Result, error) {
	start := time.Now()
	stepsPerIter := p.cfg.NumEnvs * p.task.Horizon
	iters := p.cfg.TotalSteps / stepsPerIter
	if iters < 1 {
		iters = 1
	}

	optPolicy := optimize.NewAdam(p.cfg.LR)
	optLogStd := optimize.NewAdam(p.cfg.LR)
	optValue := optimize.NewAdam(p.cfg.LR)

	res := &Result{Best: math.Inf(1)}

	p.log.Infow("ppo started",
		"task", p.task.Name,
		"iters", iters,
		"envs", p.cfg.NumEnvs,
		"steps_per_iter", stepsPerIter,
	)

	for iter := 0; iter < iters; iter++ {
		select {
		case <-ctx.Done():
			res.WallTime = time.Since(start)
			return res, fmt.Errorf("rl: training canceled: %w", ctx.Err())
		default:
		}

		trajs, err := p.collect(ctx)
		if err != nil {
			res.WallTime = time.Since(start)
			return res, err
		}

		if p.cfg.Normalize {
			for _, tr := range trajs {
				for _, o := range tr.rawObs {
					p.stats.Push(o)
				}
			}
		}

		meanCost := 0.0
		for _, tr := range trajs {
			meanCost += tr.cost
			res.Steps += int64(tr.steps)
		}
		meanCost /= float64(len(trajs))
		res.Curve = append(res.Curve, meanCost)
		res.Iters++
		if meanCost < res.Best {
			res.Best = meanCost
		}

		loss := p.update(trajs, optPolicy, optLogStd, optValue)

		if p.cfg.Progress != nil {
			p.cfg.Progress(iter, meanCost)
		}
		if iter == 0 || (iter+1)%10 == 0 {
			p.log.Infow("iteration", "n", iter+1, "cost", meanCost, "loss", loss)
		}

		if p.cfg.EvalEvery > 0 && (iter+1)%p.cfg.EvalEvery == 0 {
			m, s := p.Evaluate(p.cfg.EvalEpisodes)
			res.EvalIter = append(res.EvalIter, iter+1)
			res.EvalMean = append(res.EvalMean, m)
			res.EvalStd = append(res.EvalStd, s)
			p.log.Infow("eval", "iter", iter+1, "cost", m, "std", s)
		}
	}

	res.WallTime = time.Since(start)
	p.log.Infow("ppo finished", "best", res.Best, "steps", res.Steps, "wall", res.WallTime)
	return res, nil
}

// trajectory buffers one episode from one environment.
type trajectory struct {
	rawObs    [][]float64
	obs       [][]float64
	acts      [][]float64
	logps     []float64
	rewards   []float64
	values    []float64
	bootstrap float64
	cost      float64
	steps     int
}

func (p *PPO) collect(ctx context.Context) ([]*trajectory, error) {
	trajs := make([]*trajectory, p.cfg.NumEnvs)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.NumEnvs; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trajs[i] = p.rolloutEnv(p.envs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rl: rollout collection: %w", err)
	}
	return trajs, nil
}

// rolloutEnv runs one episode. Episodes end at the task horizon with a
// bootstrapped value, or earlier on task failure with no bootstrap.
func (p *PPO) rolloutEnv(env *envWorker) *trajectory {
	tk := p.task
	tr := &trajectory{}
	x := tk.Init(env.rng)
	tm := 0.0
	terminal := false

	for step := 0; step < tk.Horizon; step++ {
		raw := tk.Encoder.Encode(x)
		obs := raw
		if p.cfg.Normalize {
			obs = p.stats.Normalize(raw)
		}
		act, logp := p.policy.Sample(obs, &env.unit)
		v := p.value.Forward(obs)[0]

		u := tk.Clamp(dynamics.Control(append([]float64(nil), act...)))
		cost := tk.StepCost(x, u)
		next := p.integ.Step(tk.System, x, u, tm, tk.Dt)
		tm += tk.Dt

		done := !next.IsValid() || (tk.Done != nil && tk.Done(next, step+1))
		if step == tk.Horizon-1 && !done {
			cost += tk.Terminal.Eval(next)
		}

		tr.rawObs = append(tr.rawObs, raw)
		tr.obs = append(tr.obs, obs)
		tr.acts = append(tr.acts, act)
		tr.logps = append(tr.logps, logp)
		tr.values = append(tr.values, v)
		tr.rewards = append(tr.rewards, -cost*p.cfg.RewardScale)
		tr.cost += cost
		tr.steps++

		x = next
		if done {
			terminal = true
			break
		}
	}

	if !terminal {
		obs := tk.Encoder.Encode(x)
		if p.cfg.Normalize {
			obs = p.stats.Normalize(obs)
		}
		tr.bootstrap = p.value.Forward(obs)[0]
	}
	return tr
}

// update runs the minibatched clipped-surrogate epochs over the batch
// and returns the mean loss.
func (p *PPO) update(trajs []*trajectory, optPolicy, optLogStd, optValue *optimize.Adam) float64 {
	type sample struct {
		obs, act    []float64
		logpOld     float64
		adv, target float64
	}
	var samples []sample
	for _, tr := range trajs {
		adv, targets := GAE(tr.rewards, tr.values, tr.bootstrap, p.cfg.Gamma, p.cfg.Lambda)
		for i := range adv {
			samples = append(samples, sample{tr.obs[i], tr.acts[i], tr.logps[i], adv[i], targets[i]})
		}
	}

	advs := make([]float64, len(samples))
	for i := range samples {
		advs[i] = samples[i].adv
	}
	mean, std := stat.MeanStdDev(advs, nil)
	if std < 1e-8 {
		std = 1
	}
	for i := range samples {
		samples[i].adv = (samples[i].adv - mean) / std
	}

	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	mbSize := (len(samples) + p.cfg.Minibatches - 1) / p.cfg.Minibatches

	gPolicy := p.policy.Mean.NewGrads()
	gValue := p.value.NewGrads()
	gLogStd := make([]float64, len(p.policy.LogStd))
	policyParams := p.policy.Mean.ParamsVector()
	valueParams := p.value.ParamsVector()

	totalLoss := 0.0
	batches := 0
	for e := 0; e < p.cfg.UpdateEpochs; e++ {
		p.rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for lo := 0; lo < len(idx); lo += mbSize {
			hi := lo + mbSize
			if hi > len(idx) {
				hi = len(idx)
			}
			mb := idx[lo:hi]

			gPolicy.Zero()
			gValue.Zero()
			for i := range gLogStd {
				gLogStd[i] = 0
			}

			loss := 0.0
			for _, si := range mb {
				s := samples[si]
				loss += p.accumulate(s.obs, s.act, s.logpOld, s.adv, s.target, gPolicy, gValue, gLogStd)
			}
			inv := 1 / float64(len(mb))
			gPolicy.Scale(inv)
			gValue.Scale(inv)
			for i := range gLogStd {
				gLogStd[i] *= inv
			}

			optPolicy.Step(policyParams, gPolicy.Vector())
			p.policy.Mean.SetParamsVector(policyParams)
			optValue.Step(valueParams, gValue.Vector())
			p.value.SetParamsVector(valueParams)
			optLogStd.Step(p.policy.LogStd, gLogStd)

			totalLoss += loss * inv
			batches++
		}
	}
	return totalLoss / float64(batches)
}

// accumulate adds one sample's gradient contributions and returns its
// loss value.
func (p *PPO) accumulate(obs, act []float64, logpOld, adv, target float64, gPolicy, gValue *nn.Grads, gLogStd []float64) float64 {
	mu, trace := p.policy.Mean.ForwardTrace(obs)
	logp := p.policy.logProbMu(mu, act)
	ratio := math.Exp(logp - logpOld)

	clipped := ratio
	if clipped > 1+p.cfg.Clip {
		clipped = 1 + p.cfg.Clip
	} else if clipped < 1-p.cfg.Clip {
		clipped = 1 - p.cfg.Clip
	}
	s1 := ratio * adv
	s2 := clipped * adv
	surr := math.Min(s1, s2)

	// The surrogate gradient flows only through the unclipped branch.
	dlogp := 0.0
	if s1 <= s2 {
		dlogp = -adv * ratio
	}

	outGrad := make([]float64, len(mu))
	for i := range mu {
		sigma := math.Exp(p.policy.LogStd[i])
		diff := act[i] - mu[i]
		outGrad[i] = dlogp * diff / (sigma * sigma)
		gLogStd[i] += dlogp * (diff*diff/(sigma*sigma) - 1)
		gLogStd[i] -= p.cfg.EntropyCoeff
	}
	p.policy.Mean.Backward(trace, outGrad, gPolicy)

	v, vtrace := p.value.ForwardTrace(obs)
	verr := v[0] - target
	p.value.Backward(vtrace, []float64{2 * p.cfg.ValueCoeff * verr}, gValue)

	return -surr + p.cfg.ValueCoeff*verr*verr - p.cfg.EntropyCoeff*p.policy.Entropy()
}

// Evaluate runs deterministic episodes with the mean policy and returns
// the mean and standard deviation of the episode cost.
func (p *PPO) Evaluate(episodes int) (mean, std float64) {
	costs := make([]float64, episodes)
	for e := range costs {
		costs[e] = p.episodeCost()
	}
	mean = stat.Mean(costs, nil)
	if episodes > 1 {
		std = stat.StdDev(costs, nil)
	}
	return mean, std
}

func (p *PPO) episodeCost() float64 {
	tk := p.task
	ctrl := p.Controller()
	x := tk.Init(p.rng)
	tm := 0.0
	total := 0.0
	for step := 0; step < tk.Horizon; step++ {
		u := ctrl.Compute(x, tm)
		total += tk.StepCost(x, u)
		x = p.integ.Step(tk.System, x, u, tm, tk.Dt)
		tm += tk.Dt
		if !x.IsValid() || (tk.Done != nil && tk.Done(x, step+1)) {
			return total
		}
	}
	return total + tk.Terminal.Eval(x)
}

package rl

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/githubhash01/Honours-Project/internal/nn"
)

// initLogStd starts exploration at a moderate scale (std about 0.6).
const initLogStd = -0.5

// GaussianPolicy is a diagonal Gaussian over actions: the mean comes
// from a network, the log standard deviations are free parameters
// shared across states.
type GaussianPolicy struct {
	Mean   *nn.MLP
	LogStd []float64
}

func NewGaussianPolicy(obsDim, actDim int, hidden []int, rng *rand.Rand) *GaussianPolicy {
	sizes := append([]int{obsDim}, hidden...)
	sizes = append(sizes, actDim)
	logStd := make([]float64, actDim)
	for i := range logStd {
		logStd[i] = initLogStd
	}
	return &GaussianPolicy{
		Mean:   nn.New(sizes, nn.ReLU, rng),
		LogStd: logStd,
	}
}

// MeanAction returns the deterministic action for evaluation.
func (g *GaussianPolicy) MeanAction(obs []float64) []float64 {
	return g.Mean.Forward(obs)
}

// Sample draws an action using the caller's unit-normal source and
// returns it with its log probability.
func (g *GaussianPolicy) Sample(obs []float64, unit *distuv.Normal) (act []float64, logp float64) {
	mu := g.Mean.Forward(obs)
	act = make([]float64, len(mu))
	for i := range mu {
		sigma := math.Exp(g.LogStd[i])
		act[i] = mu[i] + sigma*unit.Rand()
		logp += distuv.Normal{Mu: mu[i], Sigma: sigma}.LogProb(act[i])
	}
	return act, logp
}

// LogProb evaluates the log density of act under the policy at obs.
func (g *GaussianPolicy) LogProb(obs, act []float64) float64 {
	mu := g.Mean.Forward(obs)
	return g.logProbMu(mu, act)
}

func (g *GaussianPolicy) logProbMu(mu, act []float64) float64 {
	logp := 0.0
	for i := range mu {
		logp += distuv.Normal{Mu: mu[i], Sigma: math.Exp(g.LogStd[i])}.LogProb(act[i])
	}
	return logp
}

// Entropy of the diagonal Gaussian; independent of the state.
func (g *GaussianPolicy) Entropy() float64 {
	h := 0.0
	for _, ls := range g.LogStd {
		h += distuv.Normal{Mu: 0, Sigma: math.Exp(ls)}.Entropy()
	}
	return h
}

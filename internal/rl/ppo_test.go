package rl

import (
	"context"
	"math"
	"math/rand"
	"testing"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/githubhash01/Honours-Project/internal/integrators"
	"github.com/githubhash01/Honours-Project/internal/task"
)

func TestGaussianPolicyLogProb(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pol := NewGaussianPolicy(2, 1, []int{4}, rng)
	pol.LogStd[0] = 0 // sigma = 1

	obs := []float64{0.3, -0.1}
	mu := pol.MeanAction(obs)

	// Log density at the mean of a unit Gaussian.
	got := pol.LogProb(obs, mu)
	want := -0.5 * math.Log(2*math.Pi)
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("LogProb at mean = %v, want %v", got, want)
	}

	// One sigma away drops the log density by 0.5.
	got = pol.LogProb(obs, []float64{mu[0] + 1})
	if math.Abs(got-(want-0.5)) > 1e-10 {
		t.Errorf("LogProb one sigma out = %v, want %v", got, want-0.5)
	}
}

func TestGaussianPolicySampleDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	pol := NewGaussianPolicy(2, 2, []int{4}, rng)
	obs := []float64{0.5, 0.5}

	u1 := distuv.Normal{Mu: 0, Sigma: 1, Src: xrand.NewSource(7)}
	u2 := distuv.Normal{Mu: 0, Sigma: 1, Src: xrand.NewSource(7)}

	a1, lp1 := pol.Sample(obs, &u1)
	a2, lp2 := pol.Sample(obs, &u2)
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("same source produced different samples: %v vs %v", a1, a2)
		}
	}
	if lp1 != lp2 {
		t.Errorf("log probs differ: %v vs %v", lp1, lp2)
	}
}

func TestPPOTrainShortRun(t *testing.T) {
	tk, err := task.New("di")
	if err != nil {
		t.Fatal(err)
	}
	tk.Horizon = 20

	cfg := DefaultConfig()
	cfg.NumEnvs = 4
	cfg.TotalSteps = 4 * 20 * 3 // three iterations
	cfg.Minibatches = 2
	cfg.UpdateEpochs = 2
	cfg.EvalEvery = 2
	cfg.EvalEpisodes = 3
	cfg.Seed = 5

	p, err := New(tk, integrators.NewRK4(), cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	res, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if res.Iters != 3 {
		t.Errorf("iterations = %d, want 3", res.Iters)
	}
	if len(res.Curve) != 3 {
		t.Errorf("curve length = %d, want 3", len(res.Curve))
	}
	for i, c := range res.Curve {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Fatalf("curve[%d] = %v", i, c)
		}
	}
	if res.Steps != int64(4*20*3) {
		t.Errorf("steps = %d, want %d", res.Steps, 4*20*3)
	}
	if len(res.EvalMean) != 1 {
		t.Errorf("eval passes = %d, want 1", len(res.EvalMean))
	}

	ctrl := p.Controller()
	u := ctrl.Compute([]float64{0.5, 0}, 0)
	if len(u) != 1 {
		t.Errorf("controller output dim = %d, want 1", len(u))
	}
}

func TestPPOCancellation(t *testing.T) {
	tk, err := task.New("di")
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.NumEnvs = 2
	cfg.TotalSteps = 1000000
	p, err := New(tk, integrators.NewEuler(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Train(ctx); err == nil {
		t.Error("expected cancellation error")
	}
}

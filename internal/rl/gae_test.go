package rl

import (
	"math"
	"testing"
)

func TestGAEHandExample(t *testing.T) {
	rewards := []float64{1, 1}
	values := []float64{0.5, 0.4}
	gamma, lambda := 0.5, 0.5

	adv, targets := GAE(rewards, values, 0.3, gamma, lambda)

	// delta_1 = 1 + 0.5*0.3 - 0.4 = 0.75
	// delta_0 = 1 + 0.5*0.4 - 0.5 = 0.70
	// adv_1 = 0.75, adv_0 = 0.70 + 0.25*0.75 = 0.8875
	if math.Abs(adv[1]-0.75) > 1e-12 {
		t.Errorf("adv[1] = %v, want 0.75", adv[1])
	}
	if math.Abs(adv[0]-0.8875) > 1e-12 {
		t.Errorf("adv[0] = %v, want 0.8875", adv[0])
	}
	if math.Abs(targets[0]-(0.8875+0.5)) > 1e-12 {
		t.Errorf("target[0] = %v, want %v", targets[0], 0.8875+0.5)
	}
}

func TestGAEZeroLambdaIsTD(t *testing.T) {
	rewards := []float64{2, 3}
	values := []float64{1, 1}

	adv, _ := GAE(rewards, values, 0.5, 0.9, 0)

	// With lambda = 0 each advantage is the one-step TD error.
	if math.Abs(adv[0]-(2+0.9*1-1)) > 1e-12 {
		t.Errorf("adv[0] = %v, want %v", adv[0], 2+0.9*1-1)
	}
	if math.Abs(adv[1]-(3+0.9*0.5-1)) > 1e-12 {
		t.Errorf("adv[1] = %v, want %v", adv[1], 3+0.9*0.5-1)
	}
}

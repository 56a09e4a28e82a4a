package rl

import (
	"math"
	"testing"
)

func TestRunningStat(t *testing.T) {
	rs := NewRunningStat(2)
	data := [][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}}
	for _, d := range data {
		rs.Push(d)
	}

	if rs.Count() != 4 {
		t.Fatalf("count = %v, want 4", rs.Count())
	}
	if math.Abs(rs.mean[0]-2.5) > 1e-12 {
		t.Errorf("mean[0] = %v, want 2.5", rs.mean[0])
	}
	// Sample std of 1..4 is sqrt(5/3).
	want := math.Sqrt(5.0 / 3.0)
	if math.Abs(rs.Std(0)-want) > 1e-4 {
		t.Errorf("std[0] = %v, want %v", rs.Std(0), want)
	}
}

func TestNormalizeClips(t *testing.T) {
	rs := NewRunningStat(1)
	for i := 0; i < 100; i++ {
		rs.Push([]float64{float64(i % 3)})
	}
	out := rs.Normalize([]float64{1e9})
	if out[0] != normClip {
		t.Errorf("normalized outlier = %v, want clipped to %v", out[0], normClip)
	}
	out = rs.Normalize([]float64{-1e9})
	if out[0] != -normClip {
		t.Errorf("normalized outlier = %v, want clipped to %v", out[0], -normClip)
	}
}

func TestNormalizeBeforeData(t *testing.T) {
	rs := NewRunningStat(1)
	out := rs.Normalize([]float64{3})
	if out[0] != 3 {
		t.Errorf("with no data Normalize should be identity, got %v", out[0])
	}
}

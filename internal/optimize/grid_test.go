package optimize

import (
	"context"
	"math"
	"testing"
)

func TestGridSearchFindsMinimum(t *testing.T) {
	grid := NewGrid().
		Add("a", 0, 1, 2, 3).
		Add("b", -1, 0, 1)

	if grid.Size() != 12 {
		t.Fatalf("Size = %d, want 12", grid.Size())
	}

	visited := 0
	best, score, err := grid.Search(context.Background(), func(p map[string]float64) (float64, error) {
		visited++
		da := p["a"] - 2
		db := p["b"] - 1
		return da*da + db*db, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if visited != 12 {
		t.Errorf("visited %d combinations, want 12", visited)
	}
	if best["a"] != 2 || best["b"] != 1 {
		t.Errorf("best = %v, want a=2 b=1", best)
	}
	if score != 0 {
		t.Errorf("score = %v, want 0", score)
	}
}

func TestGridSearchSkipsNaN(t *testing.T) {
	grid := NewGrid().Add("k", 1, 2, 3)

	best, score, err := grid.Search(context.Background(), func(p map[string]float64) (float64, error) {
		if p["k"] == 1 {
			return math.NaN(), nil
		}
		return p["k"], nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if best["k"] != 2 || score != 2 {
		t.Errorf("best = %v score = %v, want k=2 score=2", best, score)
	}
}

func TestGridSearchAllInvalid(t *testing.T) {
	grid := NewGrid().Add("k", 1, 2)

	best, score, err := grid.Search(context.Background(), func(p map[string]float64) (float64, error) {
		return math.NaN(), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if best != nil {
		t.Errorf("best = %v, want nil", best)
	}
	if !math.IsNaN(score) {
		t.Errorf("score = %v, want NaN", score)
	}
}

func TestGridSearchCancellation(t *testing.T) {
	grid := NewGrid().Add("k", 1, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := grid.Search(ctx, func(p map[string]float64) (float64, error) {
		return 0, nil
	}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestGridSearchEmpty(t *testing.T) {
	best, _, err := NewGrid().Search(context.Background(), func(p map[string]float64) (float64, error) {
		t.Fatal("score should not run on an empty grid")
		return 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if best != nil {
		t.Errorf("best = %v, want nil", best)
	}
}

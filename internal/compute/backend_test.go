package compute

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestBackendsCoverAllIndices(t *testing.T) {
	for _, b := range []Backend{Serial{}, NewParallel(4)} {
		t.Run(b.Name(), func(t *testing.T) {
			var count int64
			seen := make([]int64, 100)
			err := b.Map(context.Background(), 100, func(i int) error {
				atomic.AddInt64(&count, 1)
				atomic.AddInt64(&seen[i], 1)
				return nil
			})
			if err != nil {
				t.Fatalf("Map failed: %v", err)
			}
			if count != 100 {
				t.Errorf("ran %d items, want 100", count)
			}
			for i, n := range seen {
				if n != 1 {
					t.Errorf("index %d ran %d times", i, n)
				}
			}
		})
	}
}

func TestBackendsPropagateErrors(t *testing.T) {
	boom := errors.New("boom")
	for _, b := range []Backend{Serial{}, NewParallel(2)} {
		t.Run(b.Name(), func(t *testing.T) {
			err := b.Map(context.Background(), 10, func(i int) error {
				if i == 5 {
					return boom
				}
				return nil
			})
			if !errors.Is(err, boom) {
				t.Errorf("Map error = %v, want %v", err, boom)
			}
		})
	}
}

func TestBackendsRespectCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, b := range []Backend{Serial{}, NewParallel(2)} {
		if err := b.Map(ctx, 10, func(i int) error { return nil }); err == nil {
			t.Errorf("%s: expected cancellation error", b.Name())
		}
	}
}

func TestAutoPicksABackend(t *testing.T) {
	if Auto() == nil {
		t.Fatal("Auto returned nil")
	}
}

package escalate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	b := NewBackoff(500*time.Millisecond, 30*time.Second)
	b.jitter = 0 // deterministic for assertions

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{10, 30 * time.Second},
		{100, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)

	for i := 0; i < 100; i++ {
		d := b.Delay(1)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("Delay(1) = %v, want within 20%% of 1s", d)
		}
	}
}

// TestBackoffDelayConcurrent hammers one shared Backoff from several
// goroutines, the way parallel workers do. Run with -race.
func TestBackoffDelayConcurrent(t *testing.T) {
	b := NewBackoff(time.Millisecond, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for attempt := 1; attempt <= 50; attempt++ {
				if d := b.Delay(attempt); d < 0 {
					t.Errorf("Delay(%d) = %v, want non-negative", attempt, d)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestBackoffWaitCancellation(t *testing.T) {
	b := NewBackoff(time.Minute, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Wait(ctx, 1); err != context.Canceled {
		t.Errorf("Wait() on cancelled context = %v, want context.Canceled", err)
	}
}

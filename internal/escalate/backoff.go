package escalate

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// DefaultBackoffBase is the first retry delay.
	DefaultBackoffBase = 500 * time.Millisecond
	// DefaultBackoffCap bounds the exponential growth.
	DefaultBackoffCap = 30 * time.Second
	// defaultJitterFraction spreads delays by up to 20% either way so
	// parallel workers do not retry in lockstep.
	defaultJitterFraction = 0.2
)

// Backoff computes exponential retry delays with jitter.
type Backoff struct {
	// Base is the delay for the first retry.
	Base time.Duration
	// Cap is the maximum delay regardless of attempt count.
	Cap time.Duration
	// jitter is the fraction of the delay randomized in each direction.
	jitter float64
	// mu guards rng; one Backoff is shared by concurrent workers.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBackoff creates a backoff with the given base and cap, falling
// back to the defaults for non-positive values.
func NewBackoff(base, cap time.Duration) *Backoff {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if cap <= 0 {
		cap = DefaultBackoffCap
	}
	return &Backoff{
		Base:   base,
		Cap:    cap,
		jitter: defaultJitterFraction,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay returns the wait before retry number attempt (1-based). The
// raw delay doubles per attempt, is capped, then jittered.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Cap {
			delay = b.Cap
			break
		}
	}
	if delay > b.Cap {
		delay = b.Cap
	}

	if b.jitter > 0 && b.rng != nil {
		b.mu.Lock()
		r := b.rng.Float64()
		b.mu.Unlock()
		spread := float64(delay) * b.jitter
		delta := (r*2 - 1) * spread
		delay = time.Duration(float64(delay) + delta)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// Wait sleeps for the attempt's delay, returning early with the
// context error if the context is cancelled.
func (b *Backoff) Wait(ctx context.Context, attempt int) error {
	select {
	case <-time.After(b.Delay(attempt)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

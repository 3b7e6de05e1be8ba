package conn

import (
	"math"
	"math/rand"
	"time"
)

// Backoff controls how reconnect attempts are spaced after an abnormal
// closure: exponential delay with jitter, capped at MaxDelay, giving up
// after MaxAttempts (0 means retry forever).
type Backoff struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	MaxAttempts  int
	Jitter       float64 // fraction of the delay randomized, 0..1
}

// DefaultBackoff returns a Backoff with sensible defaults:
// 2s initial delay, 2x multiplier, 30s cap, 10 attempts, 20% jitter.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 2 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  10,
		Jitter:       0.2,
	}
}

// ShouldRetry reports whether another attempt is allowed after the given
// number of completed attempts.
func (b *Backoff) ShouldRetry(attempt int) bool {
	return b.MaxAttempts <= 0 || attempt < b.MaxAttempts
}

// NextDelay returns the jittered backoff delay for the given attempt number
// (1-indexed). The base delay is InitialDelay * Multiplier^(attempt-1),
// capped at MaxDelay, then shifted by up to ±Jitter/2 of itself.
func (b *Backoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if b.Jitter > 0 {
		spread := delay * b.Jitter
		delay += spread*rand.Float64() - spread/2
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

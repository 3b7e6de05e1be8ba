package conn

import (
	"testing"
	"time"
)

func TestBackoff_NextDelayGrowsAndCaps(t *testing.T) {
	b := &Backoff{
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		MaxAttempts:  10,
	}

	if got := b.NextDelay(1); got != time.Second {
		t.Errorf("attempt 1: got %v, want 1s", got)
	}
	if got := b.NextDelay(2); got != 2*time.Second {
		t.Errorf("attempt 2: got %v, want 2s", got)
	}
	if got := b.NextDelay(3); got != 4*time.Second {
		t.Errorf("attempt 3: got %v, want 4s", got)
	}
	if got := b.NextDelay(4); got != 5*time.Second {
		t.Errorf("attempt 4: got %v, want cap 5s", got)
	}
	if got := b.NextDelay(20); got != 5*time.Second {
		t.Errorf("attempt 20: got %v, want cap 5s", got)
	}
}

func TestBackoff_JitterStaysInBand(t *testing.T) {
	b := &Backoff{
		InitialDelay: time.Second,
		Multiplier:   1.0,
		MaxDelay:     time.Second,
		Jitter:       0.5,
	}
	low := 750 * time.Millisecond
	high := 1250 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := b.NextDelay(1)
		if d < low || d > high {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, low, high)
		}
	}
}

func TestBackoff_ShouldRetry(t *testing.T) {
	b := &Backoff{MaxAttempts: 3}
	for attempt, want := range map[int]bool{0: true, 2: true, 3: false, 5: false} {
		if got := b.ShouldRetry(attempt); got != want {
			t.Errorf("ShouldRetry(%d) = %v, want %v", attempt, got, want)
		}
	}

	forever := &Backoff{MaxAttempts: 0}
	if !forever.ShouldRetry(1000) {
		t.Error("MaxAttempts 0 should retry forever")
	}
}

func TestBackoff_ZeroAttemptClamped(t *testing.T) {
	b := &Backoff{InitialDelay: time.Second, Multiplier: 2.0, MaxDelay: time.Minute}
	if got := b.NextDelay(0); got != time.Second {
		t.Errorf("attempt 0 should clamp to initial delay, got %v", got)
	}
}

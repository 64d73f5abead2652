package retry

import (
	"testing"
	"time"
)

func zeroJitter() float64 { return 0 }

func TestCalculateDelayBounds(t *testing.T) {
	cfg := APIPreset

	for attempt := 1; attempt <= 20; attempt++ {
		delay := CalculateDelay(attempt, cfg)
		if delay < 0 {
			t.Errorf("attempt %d: delay %v is negative", attempt, delay)
		}
		upper := time.Duration(float64(cfg.MaxDelay) * 1.25)
		if delay > upper {
			t.Errorf("attempt %d: delay %v exceeds max+jitter bound %v", attempt, delay, upper)
		}
	}
}

func TestCalculateDelayGrowth(t *testing.T) {
	cfg := Config{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Factor:      2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{8, 10 * time.Second}, // 12.8s capped to max
		{9, 10 * time.Second},
	}

	for _, tt := range tests {
		got := CalculateDelayWithJitter(tt.attempt, cfg, zeroJitter)
		if got != tt.want {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCalculateDelayMonotonic(t *testing.T) {
	cfg := APIPreset

	prev := time.Duration(-1)
	for attempt := 1; attempt <= 15; attempt++ {
		delay := CalculateDelayWithJitter(attempt, cfg, zeroJitter)
		if delay < prev {
			t.Errorf("attempt %d: delay %v decreased from %v", attempt, delay, prev)
		}
		prev = delay
	}
}

func TestCalculateDelayNegativeJitterClamp(t *testing.T) {
	cfg := Config{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Millisecond,
		MaxDelay:    time.Second,
		Factor:      2.0,
	}

	// Full negative jitter can only shrink the delay by 25%, never below zero
	delay := CalculateDelayWithJitter(1, cfg, func() float64 { return -1 })
	if delay < 0 {
		t.Errorf("delay %v is negative", delay)
	}
}

func TestCalculateDelayInvalidAttempt(t *testing.T) {
	// Attempt numbers below 1 are treated as the first attempt
	got := CalculateDelayWithJitter(0, APIPreset, zeroJitter)
	want := CalculateDelayWithJitter(1, APIPreset, zeroJitter)
	if got != want {
		t.Errorf("attempt 0: got %v, want %v", got, want)
	}
}

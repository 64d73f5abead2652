// Package retry provides exponential backoff with jitter and a bounded
// retry executor for calls to external services.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64 // Backoff multiplier, >= 1
}

// Presets per external-call category. Image generation gets fewer attempts
// because each call costs money.
var (
	// APIPreset covers general HTTP API calls
	APIPreset = Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Factor:      2.0,
	}

	// StoragePreset covers local database operations
	StoragePreset = Config{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Factor:      2.0,
	}

	// ImageGenPreset covers image generation calls
	ImageGenPreset = Config{
		MaxAttempts: 2,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Factor:      2.0,
	}
)

// JitterSource returns a uniform random value in [-1, 1). Tests inject a
// fixed source; production uses math/rand.
type JitterSource func() float64

// DefaultJitter returns a uniform random value in [-1, 1)
func DefaultJitter() float64 {
	return rand.Float64()*2 - 1
}

// CalculateDelay computes the backoff delay for a 1-based attempt number:
// min(base * factor^(attempt-1), max) with ±25% uniform jitter, clamped to
// >= 0 and rounded to the nearest millisecond.
func CalculateDelay(attempt int, cfg Config) time.Duration {
	return CalculateDelayWithJitter(attempt, cfg, DefaultJitter)
}

// CalculateDelayWithJitter is CalculateDelay with an injectable jitter source
func CalculateDelayWithJitter(attempt int, cfg Config, jitter JitterSource) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Factor, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	delay += delay * 0.25 * jitter()

	if delay < 0 {
		delay = 0
	}

	ms := math.Round(delay / float64(time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}

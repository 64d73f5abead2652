package scheduling

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
)

const (
	// maxSearchIterations bounds the slot search before the next-day fallback
	maxSearchIterations = 50

	// conflictWindow is the fixed exclusion window around a candidate slot.
	// It is deliberately independent of the configured minimum gap: a hard
	// "one post per hour" cap on top of whatever gap is configured.
	conflictWindow = time.Hour

	// scheduledLookupLimit bounds how many scheduled timestamps are fetched
	// per conflict check
	scheduledLookupLimit = 100
)

// ScheduledLookup fetches the currently scheduled timestamps, newest first,
// capped at limit.
type ScheduledLookup func(ctx context.Context, limit int) ([]time.Time, error)

// Allocator finds the next free posting slot among the configured optimal
// hours. The read-decide-write sequence around it is not atomic; callers are
// expected to allocate from a single goroutine (the pipeline runs items
// sequentially under the scheduler's run mutex).
type Allocator struct {
	hours         []int
	minGapMinutes int // Reported in stats; slot conflicts use the fixed hour window
	lookup        ScheduledLookup
	logger        arbor.ILogger
}

// NewAllocator creates a slot allocator. hours must be a valid ParseHours
// result; when empty, DefaultOptimalHours is used.
func NewAllocator(hours []int, minGapMinutes int, lookup ScheduledLookup, logger arbor.ILogger) *Allocator {
	if len(hours) == 0 {
		hours = DefaultOptimalHours
	}
	return &Allocator{
		hours:         hours,
		minGapMinutes: minGapMinutes,
		lookup:        lookup,
		logger:        logger,
	}
}

// Hours returns the configured optimal hours
func (a *Allocator) Hours() []int {
	return a.hours
}

// MinGapMinutes returns the configured minimum gap between posts
func (a *Allocator) MinGapMinutes() int {
	return a.minGapMinutes
}

// FindPostingTime returns the next optimal-hour slot at or after now that has
// no scheduled post within the conflict window. A lookup failure counts as
// "slot unavailable" and the search moves on rather than aborting; when the
// search bound is exhausted the deterministic fallback is tomorrow at the
// first configured hour, conflicts or not.
func (a *Allocator) FindPostingTime(ctx context.Context, now time.Time) (time.Time, error) {
	candidate := NextOptimalTime(now, a.hours)

	for i := 0; i < maxSearchIterations; i++ {
		free, err := a.slotFree(ctx, candidate)
		if err != nil {
			// Conservative: treat an unverifiable slot as taken and keep
			// searching, favoring delay over a possible double-booking.
			a.logger.Warn().
				Err(err).
				Str("candidate", candidate.Format(time.RFC3339)).
				Msg("Schedule lookup failed, treating slot as unavailable")
		} else if free {
			return candidate, nil
		}

		candidate = NextOptimalTime(candidate.Add(time.Hour), a.hours)
	}

	tomorrow := now.AddDate(0, 0, 1)
	fallback := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), a.hours[0], 0, 0, 0, now.Location())
	a.logger.Warn().
		Str("fallback", fallback.Format(time.RFC3339)).
		Int("iterations", maxSearchIterations).
		Msg("Slot search bound exhausted, falling back to next-day first hour")

	return fallback, nil
}

// slotFree reports whether no scheduled post falls within the conflict
// window of the candidate
func (a *Allocator) slotFree(ctx context.Context, candidate time.Time) (bool, error) {
	scheduled, err := a.lookup(ctx, scheduledLookupLimit)
	if err != nil {
		return false, err
	}

	for _, ts := range scheduled {
		diff := candidate.Sub(ts)
		if diff < 0 {
			diff = -diff
		}
		if diff < conflictWindow {
			return false, nil
		}
	}

	return true, nil
}

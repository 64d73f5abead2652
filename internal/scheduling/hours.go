// Package scheduling picks posting time slots from a configured set of
// optimal hours and aggregates schedule statistics.
package scheduling

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultOptimalHours is used when no hours are configured
var DefaultOptimalHours = []int{9, 12, 15, 18, 21}

// ParseHours parses a comma-separated hour list ("9,12,15,18,21") into an
// ordered hour-of-day set. Each value must be in [0,23] and the set must be
// non-empty.
func ParseHours(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("optimal hours list is empty")
	}

	parts := strings.Split(s, ",")
	hours := make([]int, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		hour, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid hour %q: %w", trimmed, err)
		}
		if hour < 0 || hour > 23 {
			return nil, fmt.Errorf("hour %d out of range [0,23]", hour)
		}
		hours = append(hours, hour)
	}

	if len(hours) == 0 {
		return nil, fmt.Errorf("optimal hours list is empty")
	}

	sort.Ints(hours)
	return hours, nil
}

// NextOptimalTime returns the earliest instant >= now whose hour-of-day is in
// hours, with minutes and seconds zeroed. When no hour remains today, the
// first configured hour of the following day is used. hours must be sorted
// ascending (ParseHours guarantees this).
func NextOptimalTime(now time.Time, hours []int) time.Time {
	for _, hour := range hours {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		if !candidate.Before(now) {
			return candidate
		}
	}

	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hours[0], 0, 0, 0, now.Location())
}

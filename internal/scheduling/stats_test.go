package scheduling

import (
	"math"
	"testing"
	"time"
)

func TestComputeStatsEmpty(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	stats := ComputeStats(nil, now)

	if stats.TotalScheduled != 0 {
		t.Errorf("TotalScheduled = %d, want 0", stats.TotalScheduled)
	}
	if stats.AverageGapHours != 0 {
		t.Errorf("AverageGapHours = %v, want 0", stats.AverageGapHours)
	}
}

func TestComputeStatsSingleInstant(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	stats := ComputeStats([]time.Time{now.Add(2 * time.Hour)}, now)

	if stats.TotalScheduled != 1 {
		t.Errorf("TotalScheduled = %d, want 1", stats.TotalScheduled)
	}
	if stats.AverageGapHours != 0 {
		t.Errorf("AverageGapHours = %v, want 0 for a single instant", stats.AverageGapHours)
	}
}

func TestComputeStatsAverageGap(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	scheduled := []time.Time{
		time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
	}

	stats := ComputeStats(scheduled, now)

	// Gaps of 3h and 6h average to 4.5h
	if math.Abs(stats.AverageGapHours-4.5) > 1e-9 {
		t.Errorf("AverageGapHours = %v, want 4.5", stats.AverageGapHours)
	}
}

func TestComputeStatsUnsortedInput(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	scheduled := []time.Time{
		time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	stats := ComputeStats(scheduled, now)

	if math.Abs(stats.AverageGapHours-4.5) > 1e-9 {
		t.Errorf("AverageGapHours = %v, want 4.5 regardless of input order", stats.AverageGapHours)
	}
}

func TestComputeStatsDayAndWeekCounts(t *testing.T) {
	// Wednesday 2025-03-12; week starts Sunday 2025-03-09
	now := time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)

	scheduled := []time.Time{
		time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),  // today
		time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC), // today
		time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), // this week (Monday)
		time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC),   // this week (Sunday, week start)
		time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC),  // last week
		time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),  // later this week
	}

	stats := ComputeStats(scheduled, now)

	if stats.TotalScheduled != 6 {
		t.Errorf("TotalScheduled = %d, want 6", stats.TotalScheduled)
	}
	if stats.PostsToday != 2 {
		t.Errorf("PostsToday = %d, want 2", stats.PostsToday)
	}
	if stats.PostsThisWeek != 5 {
		t.Errorf("PostsThisWeek = %d, want 5", stats.PostsThisWeek)
	}
}

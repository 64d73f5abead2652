package scheduling

import (
	"sort"
	"time"
)

// Stats aggregates scheduled timestamps, read-only
type Stats struct {
	TotalScheduled  int     `json:"total_scheduled"`
	PostsToday      int     `json:"posts_today"`
	PostsThisWeek   int     `json:"posts_this_week"`
	AverageGapHours float64 `json:"average_gap_hours"`
}

// ComputeStats derives day/week counts and the mean inter-post gap from a set
// of scheduled instants. The week starts on Sunday. With fewer than two
// instants the average gap is 0.
func ComputeStats(scheduled []time.Time, now time.Time) Stats {
	stats := Stats{TotalScheduled: len(scheduled)}

	year, month, day := now.Date()
	startOfDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	startOfWeek := startOfDay.AddDate(0, 0, -int(now.Weekday()))

	for _, ts := range scheduled {
		tsYear, tsMonth, tsDay := ts.Date()
		if tsYear == year && tsMonth == month && tsDay == day {
			stats.PostsToday++
		}
		if !ts.Before(startOfWeek) {
			stats.PostsThisWeek++
		}
	}

	if len(scheduled) < 2 {
		return stats
	}

	sorted := make([]time.Time, len(scheduled))
	copy(sorted, scheduled)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var totalGap float64
	for i := 1; i < len(sorted); i++ {
		totalGap += sorted[i].Sub(sorted[i-1]).Hours()
	}
	stats.AverageGapHours = totalGap / float64(len(sorted)-1)

	return stats
}

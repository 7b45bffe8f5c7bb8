package usagestats

import (
	"sort"
	"strings"
	"time"
)

// Patterns is the result of a full recomputation over a character's entry
// history. CurrentStreak is display-only and never persisted.
type Patterns struct {
	CurrentStreak  int
	LongestStreak  int
	MostActiveDay  string
	MostActiveHour int
}

// weekdayOrder fixes the tie-break for MostActiveDay: the earliest weekday
// in Monday-first order wins when counts are equal.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// CountWords counts whitespace-delimited non-empty tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// localDay collapses an instant to the user's calendar day, expressed as
// days since the Unix epoch so consecutive days differ by exactly 1.
func localDay(at time.Time, loc *time.Location) int {
	local := at.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return int(midnight.Unix() / 86400)
}

// RecalculateStreaksAndPatterns recomputes streaks and activity patterns
// from the complete entry timestamp list. It is pure: callers decide when
// to persist the result. Streaks are counted in the user's local calendar,
// so "today" must already carry the right instant for that user.
func RecalculateStreaksAndPatterns(timestamps []time.Time, loc *time.Location, today time.Time) Patterns {
	result := Patterns{MostActiveHour: -1}
	if len(timestamps) == 0 {
		return result
	}

	daySet := make(map[int]struct{}, len(timestamps))
	weekdayCounts := make(map[time.Weekday]int)
	hourCounts := make(map[int]int)
	for _, ts := range timestamps {
		local := ts.In(loc)
		daySet[localDay(ts, loc)] = struct{}{}
		weekdayCounts[local.Weekday()]++
		hourCounts[local.Hour()]++
	}

	// Current streak: walk backward from today, stop at the first day
	// without an entry. A day without an entry today means streak zero.
	day := localDay(today, loc)
	for {
		if _, ok := daySet[day]; !ok {
			break
		}
		result.CurrentStreak++
		day--
	}

	// Longest streak: longest run of consecutive calendar days across the
	// whole history, including the still-open current run.
	days := make([]int, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Ints(days)
	run := 1
	result.LongestStreak = 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > result.LongestStreak {
			result.LongestStreak = run
		}
	}

	best := -1
	for _, wd := range weekdayOrder {
		if weekdayCounts[wd] > best {
			best = weekdayCounts[wd]
			result.MostActiveDay = wd.String()
		}
	}

	best = -1
	for hour := 0; hour < 24; hour++ {
		if hourCounts[hour] > best {
			best = hourCounts[hour]
			result.MostActiveHour = hour
		}
	}

	return result
}

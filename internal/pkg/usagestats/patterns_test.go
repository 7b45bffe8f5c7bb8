package usagestats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, dayOfMonth, hour int) time.Time {
	return time.Date(year, month, dayOfMonth, hour, 0, 0, 0, time.UTC)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \n\t "))
	assert.Equal(t, 5, CountWords("I walked the long\nroad"))
	assert.Equal(t, 2, CountWords("  two   words  "))
}

func TestRecalculateEmptyHistory(t *testing.T) {
	p := RecalculateStreaksAndPatterns(nil, time.UTC, day(2026, time.March, 10, 12))
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 0, p.LongestStreak)
	assert.Equal(t, "", p.MostActiveDay)
	assert.Equal(t, -1, p.MostActiveHour)
}

func TestRecalculateCurrentStreak(t *testing.T) {
	today := day(2026, time.March, 10, 15)
	timestamps := []time.Time{
		day(2026, time.March, 10, 8),
		day(2026, time.March, 9, 20),
		day(2026, time.March, 8, 7),
		// gap on the 7th
		day(2026, time.March, 6, 9),
	}

	p := RecalculateStreaksAndPatterns(timestamps, time.UTC, today)
	assert.Equal(t, 3, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)
}

func TestRecalculateStreakBrokenToday(t *testing.T) {
	today := day(2026, time.March, 10, 15)
	timestamps := []time.Time{
		day(2026, time.March, 9, 8),
		day(2026, time.March, 8, 8),
	}

	// No entry today means the current streak is zero, but the historical
	// run still counts toward the longest streak.
	p := RecalculateStreaksAndPatterns(timestamps, time.UTC, today)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)
}

func TestRecalculateLongestStreakInHistory(t *testing.T) {
	today := day(2026, time.June, 1, 10)
	timestamps := []time.Time{
		day(2026, time.June, 1, 9),
		// five-day run back in May
		day(2026, time.May, 10, 9),
		day(2026, time.May, 9, 9),
		day(2026, time.May, 8, 22),
		day(2026, time.May, 8, 6), // same day twice
		day(2026, time.May, 7, 9),
		day(2026, time.May, 6, 9),
	}

	p := RecalculateStreaksAndPatterns(timestamps, time.UTC, today)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 5, p.LongestStreak)
}

func TestRecalculateActivityPatterns(t *testing.T) {
	today := day(2026, time.March, 10, 15)
	timestamps := []time.Time{
		day(2026, time.March, 2, 9),  // Monday 09
		day(2026, time.March, 9, 9),  // Monday 09
		day(2026, time.March, 3, 21), // Tuesday 21
	}

	p := RecalculateStreaksAndPatterns(timestamps, time.UTC, today)
	assert.Equal(t, "Monday", p.MostActiveDay)
	assert.Equal(t, 9, p.MostActiveHour)
}

func TestRecalculateTieBreaks(t *testing.T) {
	today := day(2026, time.March, 10, 15)
	timestamps := []time.Time{
		day(2026, time.March, 8, 23), // Sunday 23
		day(2026, time.March, 4, 5),  // Wednesday 05
	}

	// One entry each: the earlier weekday in Monday-first order and the
	// lower hour win.
	p := RecalculateStreaksAndPatterns(timestamps, time.UTC, today)
	assert.Equal(t, "Wednesday", p.MostActiveDay)
	assert.Equal(t, 5, p.MostActiveHour)
}

func TestRecalculateUsesLocalCalendar(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	// 2026-03-10 03:00 UTC is still 2026-03-09 in New York.
	ts := time.Date(2026, time.March, 10, 3, 0, 0, 0, time.UTC)
	today := time.Date(2026, time.March, 9, 18, 0, 0, 0, ny)

	p := RecalculateStreaksAndPatterns([]time.Time{ts}, ny, today)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 23, p.MostActiveHour)
}

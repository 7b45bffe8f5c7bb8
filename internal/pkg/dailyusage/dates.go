package dailyusage

import "time"

// loadLocation resolves an IANA timezone name, falling back to UTC. The
// fallback keeps a user with a malformed stored timezone functional instead
// of locking them out of entry creation.
func loadLocation(timezone string) *time.Location {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UserDate computes the calendar date in the user's signup timezone at the
// given instant and maps it onto a canonical UTC-midnight marker used as the
// storage key. The key is stable for every call within the same local day and
// rolls over exactly at local midnight, not UTC midnight.
func UserDate(timezone string, now time.Time) time.Time {
	local := now.In(loadLocation(timezone))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// NextResetTime returns the instant the user's daily counters roll over:
// the upcoming local midnight. Used for client-facing countdown display only,
// never for gating.
func NextResetTime(timezone string, now time.Time) time.Time {
	loc := loadLocation(timezone)
	local := now.In(loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	elapsed := local.Sub(startOfDay)
	return now.Add(24*time.Hour - elapsed)
}

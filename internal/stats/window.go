package stats

import (
	"time"

	"github.com/vmsite/collector/internal/filter"
)

// Window is a trailing time range ending at the request's "now", stored as
// a number of seconds.
type Window int64

const (
	Last24h Window = secondsPerDay
	Last7d  Window = 7 * secondsPerDay
	Last30d Window = 30 * secondsPerDay
)

const secondsPerDay = 86400

// MaxDays bounds every day-count parameter. Larger requests are clamped.
const MaxDays = 3650

// ClampDays maps n into 1..MaxDays.
func ClampDays(n int) int {
	return max(1, min(n, MaxDays))
}

// Days returns an n-day window, with n clamped by ClampDays.
func Days(n int) Window {
	return Window(int64(ClampDays(n)) * secondsPerDay)
}

// Start returns the unix second at which the window opens.
func (w Window) Start(now time.Time) int64 {
	return now.Unix() - int64(w)
}

// Since returns the predicate selecting events inside the window.
func (w Window) Since(now time.Time) filter.Predicate {
	return filter.Since{Unix: w.Start(now)}
}

// dayOf returns the UTC day number of a unix timestamp.
func dayOf(ts int64) int64 {
	d := ts / secondsPerDay
	if ts%secondsPerDay < 0 {
		d--
	}
	return d
}

// dayLabel formats a UTC day number as YYYY-MM-DD.
func dayLabel(day int64) string {
	return time.Unix(day*secondsPerDay, 0).UTC().Format(time.DateOnly)
}

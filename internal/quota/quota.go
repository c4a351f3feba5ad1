// Package quota implements the per-user daily AI request counter.
package quota

import "time"

// DefaultCeiling is the number of AI-backed requests a user may make per UTC day.
const DefaultCeiling = 100

// DateLayout is the calendar-day key format.
const DateLayout = "2006-01-02"

// Today returns the UTC calendar-day key for t.
func Today(t time.Time) string { return t.UTC().Format(DateLayout) }

// Window is the persisted counter state of one user.
type Window struct {
	Date    string
	Count   int
	Ceiling int
}

// TryConsume applies one request for day today.
// A new day resets the counter to 1. Within the same day the counter
// increments while below the ceiling; at the ceiling the request is refused
// and the window is returned unchanged.
func (w Window) TryConsume(today string) (Window, bool) {
	ceiling := w.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if w.Date != today {
		return Window{Date: today, Count: 1, Ceiling: w.Ceiling}, true
	}
	if w.Count >= ceiling {
		return w, false
	}
	w.Count++
	return w, true
}

// Remaining reports how many requests are still available on day today.
func (w Window) Remaining(today string) int {
	ceiling := w.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if w.Date != today {
		return ceiling
	}
	if w.Count >= ceiling {
		return 0
	}
	return ceiling - w.Count
}

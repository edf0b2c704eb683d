package export

import "time"

// Window is the half-open export interval [Start, End). The same window
// drives both the read phase and the reconciliation delete, so an event
// is in scope for one exactly when it is in scope for the other.
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow computes the window from the run instant: midnight at
// the start of the current day in loc, minus daysBehind days, through
// midnight plus daysAhead days (exclusive).
func ResolveWindow(now time.Time, daysBehind, daysAhead int, loc *time.Location) Window {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{
		Start: midnight.AddDate(0, 0, -daysBehind),
		End:   midnight.AddDate(0, 0, daysAhead),
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

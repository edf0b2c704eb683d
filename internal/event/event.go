package event

import (
	"time"
)

// Event is a single normalized calendar entry. Events are built fresh on
// every run and are not mutated after normalization.
type Event struct {
	ID           string    `json:"id"`
	CalendarName string    `json:"calendar_name"`
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	AllDay       bool      `json:"all_day"`
	Location     string    `json:"location,omitempty"`
	Description  string    `json:"description,omitempty"`
	URL          string    `json:"url,omitempty"`
}

// Raw is an event record as produced by the calendar bridge. Dates are
// strings because the bridge serializes them in a handful of layouts.
type Raw struct {
	EventID      string `json:"event_id"`
	CalendarName string `json:"calendar_name"`
	Title        string `json:"title"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	AllDay       bool   `json:"all_day"`
	Location     string `json:"location,omitempty"`
	Description  string `json:"description,omitempty"`
	URL          string `json:"url,omitempty"`
}

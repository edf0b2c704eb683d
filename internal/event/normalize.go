package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingStart   = errors.New("missing start date")
	ErrMissingEnd     = errors.New("missing end date")
	ErrInvalidDate    = errors.New("invalid date value")
	ErrEndBeforeStart = errors.New("end date before start date")
)

// ellipsis terminates truncated titles.
const ellipsis = '…'

// Layouts emitted by bridge implementations, tried in order.
var dateLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Options controls normalization of raw bridge records.
type Options struct {
	// IncludeDetails keeps location, description and URL. When false
	// those fields are dropped from every event.
	IncludeDetails bool

	// TitleLengthLimit is the maximum title length in runes. Longer
	// titles are cut to the limit and terminated with an ellipsis.
	// Zero or negative disables truncation.
	TitleLengthLimit int

	// Location resolves bridge date strings that carry no offset.
	// Defaults to time.Local.
	Location *time.Location
}

// Normalize converts raw bridge records into canonical events. Records
// that cannot be normalized are skipped and reported as warnings; the
// input order is preserved for the records that survive.
func Normalize(raws []Raw, opts Options) ([]Event, []string) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	events := make([]Event, 0, len(raws))
	var warnings []string

	for _, raw := range raws {
		ev, err := normalizeOne(raw, opts, loc)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping event %q in calendar %q: %v", raw.Title, raw.CalendarName, err))
			continue
		}
		events = append(events, ev)
	}

	return events, warnings
}

func normalizeOne(raw Raw, opts Options, loc *time.Location) (Event, error) {
	if raw.StartDate == "" {
		return Event{}, ErrMissingStart
	}
	if raw.EndDate == "" {
		return Event{}, ErrMissingEnd
	}

	start, err := parseDate(raw.StartDate, raw.AllDay, loc)
	if err != nil {
		return Event{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseDate(raw.EndDate, raw.AllDay, loc)
	if err != nil {
		return Event{}, fmt.Errorf("end: %w", err)
	}
	if end.Before(start) {
		return Event{}, ErrEndBeforeStart
	}

	id := raw.EventID
	if id == "" {
		id = uuid.New().String()
	}

	ev := Event{
		ID:           id,
		CalendarName: raw.CalendarName,
		Title:        TruncateTitle(raw.Title, opts.TitleLengthLimit),
		Start:        start,
		End:          end,
		AllDay:       raw.AllDay,
	}

	if opts.IncludeDetails {
		ev.Location = raw.Location
		ev.Description = raw.Description
		ev.URL = raw.URL
	}

	return ev, nil
}

// parseDate parses a bridge date string. All-day dates are anchored to
// midnight UTC so they stay date-only regardless of the host zone.
func parseDate(value string, allDay bool, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err != nil {
			continue
		}
		if allDay {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// TruncateTitle cuts a title to limit runes plus a trailing ellipsis.
// Titles at or under the limit come back unchanged.
func TruncateTitle(title string, limit int) string {
	if limit <= 0 {
		return title
	}
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit]) + string(ellipsis)
}

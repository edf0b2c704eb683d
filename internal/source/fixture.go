package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"calexport/internal/event"
)

const (
	fixtureWorkCalendar     = "Work"
	fixturePersonalCalendar = "Personal"
)

const (
	timedRawLayout  = "2006-01-02 15:04:05 -0700"
	allDayRawLayout = "2006-01-02"
)

// Fixture is a deterministic in-memory calendar store. The same window
// always yields the same generated events; creates and windowed deletes
// are tracked so reconciliation behaves like a real store.
type Fixture struct {
	loc *time.Location

	mu      sync.Mutex
	created map[string][]event.Event
	cleared map[string][]clearedWindow
}

type clearedWindow struct {
	start, end time.Time
}

// NewFixture returns a fixture store generating events in loc
// (time.Local when nil).
func NewFixture(loc *time.Location) *Fixture {
	if loc == nil {
		loc = time.Local
	}
	return &Fixture{
		loc:     loc,
		created: make(map[string][]event.Event),
		cleared: make(map[string][]clearedWindow),
	}
}

func (f *Fixture) RequestAccess(ctx context.Context) error {
	return ctx.Err()
}

func (f *Fixture) ListCalendars(ctx context.Context) ([]Calendar, error) {
	return []Calendar{
		{Title: fixtureWorkCalendar, ID: "fixture-work", Type: "local", Source: "fixture"},
		{Title: fixturePersonalCalendar, ID: "fixture-personal", Type: "local", Source: "fixture"},
	}, nil
}

func (f *Fixture) ListEvents(ctx context.Context, calendars []string, start, end time.Time) ([]event.Raw, error) {
	requested := make(map[string]bool, len(calendars))
	var missing []string
	for _, name := range calendars {
		if name != fixtureWorkCalendar && name != fixturePersonalCalendar {
			missing = append(missing, name)
			continue
		}
		requested[name] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var raws []event.Raw
	for _, raw := range f.generate(start, end) {
		if !requested[raw.CalendarName] || f.suppressed(raw.CalendarName, f.rawStart(raw)) {
			continue
		}
		raws = append(raws, raw)
	}
	for name := range requested {
		for _, ev := range f.created[name] {
			if ev.Start.Before(start) || !ev.Start.Before(end) {
				continue
			}
			raws = append(raws, rawFromEvent(ev))
		}
	}

	if len(missing) > 0 {
		return raws, &CalendarNotFoundError{Names: missing}
	}
	return raws, nil
}

func (f *Fixture) DeleteEvents(ctx context.Context, calendar string, start, end time.Time) (DeleteResult, error) {
	if calendar != fixtureWorkCalendar && calendar != fixturePersonalCalendar {
		return DeleteResult{}, &CalendarNotFoundError{Names: []string{calendar}}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	deleted := 0
	for _, raw := range f.generate(start, end) {
		if raw.CalendarName == calendar && !f.suppressed(calendar, f.rawStart(raw)) {
			deleted++
		}
	}

	var kept []event.Event
	for _, ev := range f.created[calendar] {
		if !ev.Start.Before(start) && ev.Start.Before(end) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	f.created[calendar] = kept
	f.cleared[calendar] = append(f.cleared[calendar], clearedWindow{start: start, end: end})

	return DeleteResult{Deleted: deleted}, nil
}

func (f *Fixture) CreateEvents(ctx context.Context, calendar string, events []event.Event) (CreateResult, error) {
	if calendar != fixtureWorkCalendar && calendar != fixturePersonalCalendar {
		return CreateResult{}, &CalendarNotFoundError{Names: []string{calendar}}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.created[calendar] = append(f.created[calendar], events...)
	return CreateResult{Created: len(events)}, nil
}

// generate produces the fixture dataset for [start, end). Identifiers
// are positional so a given window always maps to the same ids.
func (f *Fixture) generate(start, end time.Time) []event.Raw {
	var raws []event.Raw
	n := 0

	addTimed := func(calendar, title, location, description string, s, e time.Time) {
		n++
		if s.Before(start) || !s.Before(end) {
			return
		}
		raws = append(raws, event.Raw{
			EventID:      fmt.Sprintf("event-%d", n),
			CalendarName: calendar,
			Title:        title,
			StartDate:    s.Format(timedRawLayout),
			EndDate:      e.Format(timedRawLayout),
			Location:     location,
			Description:  description,
		})
	}
	addAllDay := func(calendar, title, location string, day time.Time) {
		n++
		if day.Before(start) || !day.Before(end) {
			return
		}
		raws = append(raws, event.Raw{
			EventID:      fmt.Sprintf("event-%d", n),
			CalendarName: calendar,
			Title:        title,
			StartDate:    day.Format(allDayRawLayout),
			EndDate:      day.Format(allDayRawLayout),
			AllDay:       true,
			Location:     location,
		})
	}

	first := start.In(f.loc)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, f.loc)
	for day.Before(end) {
		at := func(hour int) time.Time {
			return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, f.loc)
		}

		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			addTimed(fixtureWorkCalendar, "Morning Team Meeting", "Conference Room", "Daily team sync-up", at(9), at(10))
		}
		addTimed(fixturePersonalCalendar, "Lunch Break", "", "", at(12), at(13))
		if day.Weekday() == time.Friday {
			addTimed(fixtureWorkCalendar, "Weekly Review", "", "", at(15), at(16))
		}
		if day.Weekday() == time.Saturday {
			addAllDay(fixturePersonalCalendar, "Weekend Brunch", "Cafe Central", day)
		}
		if day.Month() == time.May && day.Day() == 1 {
			addAllDay(fixturePersonalCalendar, "Labor Day", "", day)
		}

		day = day.AddDate(0, 0, 1)
	}

	return raws
}

func (f *Fixture) suppressed(calendar string, start time.Time) bool {
	for _, w := range f.cleared[calendar] {
		if !start.Before(w.start) && start.Before(w.end) {
			return true
		}
	}
	return false
}

func (f *Fixture) rawStart(raw event.Raw) time.Time {
	layout := timedRawLayout
	if raw.AllDay {
		layout = allDayRawLayout
	}
	t, err := time.ParseInLocation(layout, raw.StartDate, f.loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func rawFromEvent(ev event.Event) event.Raw {
	raw := event.Raw{
		EventID:      ev.ID,
		CalendarName: ev.CalendarName,
		Title:        ev.Title,
		AllDay:       ev.AllDay,
		Location:     ev.Location,
		Description:  ev.Description,
		URL:          ev.URL,
	}
	if ev.AllDay {
		raw.StartDate = ev.Start.UTC().Format(allDayRawLayout)
		raw.EndDate = ev.End.UTC().Format(allDayRawLayout)
	} else {
		raw.StartDate = ev.Start.Format(timedRawLayout)
		raw.EndDate = ev.End.Format(timedRawLayout)
	}
	return raw
}

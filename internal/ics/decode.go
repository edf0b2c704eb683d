package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"calexport/internal/event"
)

// Decode reads the VEVENT components out of an artifact. It understands
// exactly what Encode produces (plus trailing-Z UTC stamps) and ignores
// everything else; components with unusable dates are skipped and
// reported as warnings.
func Decode(text string, loc *time.Location) ([]event.Event, []string, error) {
	if loc == nil {
		loc = time.Local
	}

	dec := ical.NewDecoder(strings.NewReader(text))

	var events []event.Event
	var warnings []string

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, warnings, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
		}

		for _, child := range cal.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			ev, err := decodeEvent(child, loc)
			if err != nil {
				uid, _ := child.Props.Text(ical.PropUID)
				warnings = append(warnings, fmt.Sprintf("skipping component %q: %v", uid, err))
				continue
			}
			events = append(events, ev)
		}
	}

	return events, warnings, nil
}

func decodeEvent(comp *ical.Component, loc *time.Location) (event.Event, error) {
	start, allDay, err := decodeDate(comp, ical.PropDateTimeStart, loc)
	if err != nil {
		return event.Event{}, fmt.Errorf("DTSTART: %w", err)
	}
	end, _, err := decodeDate(comp, ical.PropDateTimeEnd, loc)
	if err != nil {
		return event.Event{}, fmt.Errorf("DTEND: %w", err)
	}

	ev := event.Event{
		Start:  start,
		End:    end,
		AllDay: allDay,
	}

	ev.ID, _ = comp.Props.Text(ical.PropUID)
	ev.Title, _ = comp.Props.Text(ical.PropSummary)
	ev.CalendarName, _ = comp.Props.Text(ical.PropCategories)
	ev.Location, _ = comp.Props.Text(ical.PropLocation)
	ev.Description, _ = comp.Props.Text(ical.PropDescription)
	if url := comp.Props.Get(ical.PropURL); url != nil {
		ev.URL = url.Value
	}

	return ev, nil
}

func decodeDate(comp *ical.Component, name string, loc *time.Location) (time.Time, bool, error) {
	prop := comp.Props.Get(name)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property")
	}

	if prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
		t, err := time.Parse(dateLayout, prop.Value)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}

	if strings.HasSuffix(prop.Value, "Z") {
		t, err := time.Parse(dateTimeUTCLayout, prop.Value)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, false, nil
	}

	if tzid := prop.Params.Get(ical.ParamTimezoneID); tzid != "" {
		if tzLoc, err := time.LoadLocation(tzid); err == nil {
			loc = tzLoc
		}
	}
	t, err := time.ParseInLocation(dateTimeLayout, prop.Value, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, false, nil
}

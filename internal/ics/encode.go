// Package ics renders normalized events as iCalendar artifacts and reads
// them back for reconciliation into a target calendar.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"calexport/internal/event"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone identifier")
	ErrEncodeFailed    = errors.New("ics encoding failed")
	ErrDecodeFailed    = errors.New("ics decoding failed")
)

const prodID = "-//calexport//calexport 1.0//EN"

const (
	dateTimeLayout    = "20060102T150405"
	dateTimeUTCLayout = "20060102T150405Z"
	dateLayout        = "20060102"
)

// Encode renders events into a single VCALENDAR artifact. Output is
// deterministic: the same events in the same order produce byte-identical
// text, so encoding never consults the wall clock.
func Encode(events []event.Event, calendarName, timezoneID string) (string, error) {
	loc, err := time.LoadLocation(timezoneID)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidTimezone, timezoneID, err)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")
	cal.Props.SetText("X-WR-CALNAME", calendarName)
	cal.Props.SetText("X-WR-TIMEZONE", timezoneID)

	cal.Children = append(cal.Children, timezoneComponent(timezoneID, loc))

	for _, ev := range events {
		cal.Children = append(cal.Children, eventComponent(ev, timezoneID, loc))
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return buf.String(), nil
}

func eventComponent(ev event.Event, timezoneID string, loc *time.Location) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)

	// One UID per occurrence: the source identifier alone repeats for
	// recurring events, so the start instant is folded in.
	comp.Props.SetText(ical.PropUID, ev.ID+"-"+ev.Start.UTC().Format(dateTimeLayout))

	// DTSTAMP is derived from the event start rather than the clock to
	// keep repeated runs byte-identical.
	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.Value = ev.Start.UTC().Format(dateTimeUTCLayout)
	comp.Props.Set(stamp)

	comp.Props.SetText(ical.PropSummary, ev.Title)
	if ev.CalendarName != "" {
		comp.Props.SetText(ical.PropCategories, ev.CalendarName)
	}
	if ev.Location != "" {
		comp.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Description != "" {
		comp.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.URL != "" {
		url := ical.NewProp(ical.PropURL)
		url.Value = ev.URL
		comp.Props.Set(url)
	}

	comp.Props.Set(dateProp(ical.PropDateTimeStart, ev.Start, ev.AllDay, timezoneID, loc))
	comp.Props.Set(dateProp(ical.PropDateTimeEnd, ev.End, ev.AllDay, timezoneID, loc))

	return comp
}

// dateProp builds DTSTART/DTEND. Timed events carry local civil time
// qualified by TZID; all-day events carry a bare date.
func dateProp(name string, t time.Time, allDay bool, timezoneID string, loc *time.Location) *ical.Prop {
	prop := ical.NewProp(name)
	if allDay {
		prop.Value = t.UTC().Format(dateLayout)
		prop.Params.Set(ical.ParamValue, string(ical.ValueDate))
		return prop
	}
	prop.Value = t.In(loc).Format(dateTimeLayout)
	prop.Params.Set(ical.ParamTimezoneID, timezoneID)
	return prop
}

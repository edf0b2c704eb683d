package ics

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

// Reference year used to sample a zone's standard and daylight offsets.
// Fixed so artifact output never depends on the run date.
const sampleYear = 2025

// timezoneComponent builds the VTIMEZONE definition referenced by timed
// events. Zones observing DST get STANDARD and DAYLIGHT blocks with
// last-Sunday transition rules; fixed-offset zones get a single STANDARD
// block.
func timezoneComponent(timezoneID string, loc *time.Location) *ical.Component {
	tz := ical.NewComponent(ical.CompTimezone)
	tz.Props.SetText(ical.PropTimezoneID, timezoneID)

	jan := time.Date(sampleYear, time.January, 15, 12, 0, 0, 0, loc)
	jul := time.Date(sampleYear, time.July, 15, 12, 0, 0, 0, loc)
	janName, janOffset := jan.Zone()
	julName, julOffset := jul.Zone()

	if janOffset == julOffset {
		std := subZone(ical.CompTimezoneStandard, "19700101T000000", janOffset, janOffset, janName, "")
		tz.Children = append(tz.Children, std)
		return tz
	}

	stdName, stdOffset := janName, janOffset
	dstName, dstOffset := julName, julOffset
	if stdOffset > dstOffset {
		stdName, stdOffset, dstName, dstOffset = dstName, dstOffset, stdName, stdOffset
	}

	std := subZone(ical.CompTimezoneStandard, "19701025T030000", dstOffset, stdOffset, stdName,
		"FREQ=YEARLY;BYMONTH=10;BYDAY=-1SU")
	dst := subZone(ical.CompTimezoneDaylight, "19700329T020000", stdOffset, dstOffset, dstName,
		"FREQ=YEARLY;BYMONTH=3;BYDAY=-1SU")
	tz.Children = append(tz.Children, std, dst)
	return tz
}

func subZone(name, start string, offsetFrom, offsetTo int, zoneName, rrule string) *ical.Component {
	comp := ical.NewComponent(name)

	dtstart := ical.NewProp(ical.PropDateTimeStart)
	dtstart.Value = start
	comp.Props.Set(dtstart)

	from := ical.NewProp(ical.PropTimezoneOffsetFrom)
	from.Value = formatUTCOffset(offsetFrom)
	comp.Props.Set(from)

	to := ical.NewProp(ical.PropTimezoneOffsetTo)
	to.Value = formatUTCOffset(offsetTo)
	comp.Props.Set(to)

	if zoneName != "" {
		comp.Props.SetText(ical.PropTimezoneName, zoneName)
	}
	if rrule != "" {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = rrule
		comp.Props.Set(rule)
	}

	return comp
}

// formatUTCOffset renders seconds east of UTC as ±HHMM.
func formatUTCOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d%02d", sign, seconds/3600, (seconds%3600)/60)
}

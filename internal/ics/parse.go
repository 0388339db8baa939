package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	goical "github.com/emersion/go-ical"

	appLog "alldaycal/internal/log"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"
)

// ParsedEvent is one VEVENT, normalized but not yet expanded.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	// All-day events carry floating dates at UTC midnight; End is exclusive.
	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time

	// RecurrenceID is set on overrides of a single recurring instance.
	RecurrenceID *time.Time
}

// IsOverride reports whether the event replaces one instance of a
// recurring event.
func (e ParsedEvent) IsOverride() bool {
	return e.RecurrenceID != nil
}

// Duration is End minus Start.
func (e ParsedEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// ParseICS parses an ICS payload. Floating date-times (no TZID, no Z) are
// read in floating; nil means time.Local. Malformed events are logged and
// skipped.
func ParseICS(src Source, body []byte, floating *time.Location) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if floating == nil {
		floating = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp, floating)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, floating *time.Location) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, fmt.Errorf("uid %s: missing DTSTART", out.UID)
	}
	start, allDay, err := propTime(startProp, floating)
	if err != nil {
		return out, fmt.Errorf("uid %s: DTSTART: %w", out.UID, err)
	}
	out.Start = start
	out.AllDay = allDay

	switch endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case endProp != nil:
		end, _, err := propTime(endProp, floating)
		if err != nil {
			return out, fmt.Errorf("uid %s: DTEND: %w", out.UID, err)
		}
		out.End = end
	case ve.GetProperty(goical.PropDuration) != nil:
		d, err := durationValue(ve.GetProperty(goical.PropDuration).Value)
		if err != nil {
			return out, fmt.Errorf("uid %s: DURATION: %w", out.UID, err)
		}
		out.End = out.Start.Add(d)
	case allDay:
		out.End = out.Start.AddDate(0, 0, 1)
	default:
		out.End = out.Start
	}
	if out.End.Before(out.Start) {
		return out, fmt.Errorf("uid %s: DTEND before DTSTART", out.UID)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = strings.TrimPrefix(p.Value, "RRULE:")
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := paramLocation(p.ICalParameters, floating)
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, _, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, _, err := propTime(p, floating); err == nil {
			out.RecurrenceID = &t
		}
	}

	return out, nil
}

// propTime parses a date or date-time property honoring its TZID and VALUE
// parameters. The bool result reports a date-only value.
func propTime(p *ical.IANAProperty, floating *time.Location) (time.Time, bool, error) {
	t, dateOnly, err := parseICSTime(p.Value, paramLocation(p.ICalParameters, floating))
	if err != nil {
		return t, false, err
	}
	if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		dateOnly = true
	}
	return t, dateOnly, nil
}

func paramLocation(params map[string][]string, floating *time.Location) *time.Location {
	tzs := params["TZID"]
	if len(tzs) == 0 || tzs[0] == "" {
		return floating
	}
	loc, err := time.LoadLocation(strings.Trim(tzs[0], `"`))
	if err != nil {
		appLog.Warn("unknown TZID, using floating time", "tzid", tzs[0])
		return floating
	}
	return loc
}

// parseICSTime parses DATE, DATE-TIME and UTC DATE-TIME values. Dates are
// returned at UTC midnight regardless of loc.
func parseICSTime(v string, loc *time.Location) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, false, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse(utcLayout, v)
		return t, false, err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation(dateTimeLayout, v, loc)
		return t, false, err
	default:
		t, err := time.Parse(dateLayout, v)
		return t, true, err
	}
}

// durationValue parses an RFC 5545 dur-value such as "P1D" or "-PT15M".
func durationValue(v string) (time.Duration, error) {
	prop := goical.NewProp(goical.PropDuration)
	prop.Value = strings.TrimSpace(v)
	return prop.Duration()
}

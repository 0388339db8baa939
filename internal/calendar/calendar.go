// Package calendar arranges expanded occurrences into day sections and
// serves them to the layout engine.
package calendar

import (
	"sort"
	"time"

	"alldaycal/internal/layout"
	"alldaycal/internal/model"
)

// Options configures a Calendar.
type Options struct {
	// Start is the date of day 0; only its calendar date in Location counts.
	Start time.Time
	// Days is the number of day sections.
	Days int
	// Window is the visible day range; it is clamped into [0, Days).
	Window layout.DayRange
	// Location is the display timezone. Nil means time.Local.
	Location *time.Location
	// IncludeMultiDay adds timed occurrences that cross midnight.
	IncludeMultiDay bool
}

type entry struct {
	occ  model.Occurrence
	span layout.DayRange // unclipped, relative to day 0
}

// Calendar implements layout.Host and layout.InsetProvider. It is not safe
// for concurrent use.
type Calendar struct {
	start    time.Time
	days     int
	window   layout.DayRange
	loc      *time.Location
	entries  []entry
	sections [][]int // indices into entries, per day
}

// New builds the day sections from occs.
func New(occs []model.Occurrence, opts Options) *Calendar {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	s := opts.Start.In(loc)
	c := &Calendar{
		start:  time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc),
		days:   max(opts.Days, 0),
		window: opts.Window,
		loc:    loc,
	}

	for _, o := range occs {
		span := c.spanOf(o)
		if !o.AllDay && !(opts.IncludeMultiDay && span.Length > 1) {
			continue
		}
		if !span.Intersects(layout.NewDayRange(0, c.days)) {
			continue
		}
		c.entries = append(c.entries, entry{occ: o, span: span})
	}

	sort.SliceStable(c.entries, func(i, j int) bool {
		a, b := c.entries[i], c.entries[j]
		switch {
		case !a.occ.Start.Equal(b.occ.Start):
			return a.occ.Start.Before(b.occ.Start)
		case a.span.Length != b.span.Length:
			return a.span.Length > b.span.Length
		case a.occ.Summary != b.occ.Summary:
			return a.occ.Summary < b.occ.Summary
		case a.occ.UID != b.occ.UID:
			return a.occ.UID < b.occ.UID
		}
		return a.occ.InstanceKey < b.occ.InstanceKey
	})

	c.sections = make([][]int, c.days)
	for i, e := range c.entries {
		clipped := e.span.Intersect(layout.NewDayRange(0, c.days))
		for d := clipped.Start; d < clipped.End(); d++ {
			c.sections[d] = append(c.sections[d], i)
		}
	}
	return c
}

// DayIndex returns the section index of t's calendar date, which may fall
// outside [0, Days).
func (c *Calendar) DayIndex(t time.Time) int {
	t = t.In(c.loc)
	a := time.Date(c.start.Year(), c.start.Month(), c.start.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

// spanOf returns the days an occurrence touches. An end at local midnight
// does not touch the following day.
func (c *Calendar) spanOf(o model.Occurrence) layout.DayRange {
	first := c.DayIndex(o.Start)
	last := c.DayIndex(o.End)
	end := o.End.In(c.loc)
	if end.Hour() != 0 || end.Minute() != 0 || end.Second() != 0 || end.Nanosecond() != 0 {
		last++
	}
	if last <= first {
		last = first + 1
	}
	return layout.NewDayRange(first, last-first)
}

// DateOf returns midnight of day in the display location.
func (c *Calendar) DateOf(day int) time.Time {
	return c.start.AddDate(0, 0, day)
}

// Days returns the number of day sections.
func (c *Calendar) Days() int { return c.days }

// Location returns the display timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// DayLabels returns a short label per day section, e.g. "Mon 3".
func (c *Calendar) DayLabels() []string {
	labels := make([]string, c.days)
	for d := range labels {
		labels[d] = c.DateOf(d).Format("Mon 2")
	}
	return labels
}

// Occurrence returns the occurrence behind id.
func (c *Calendar) Occurrence(id layout.EventID) (model.Occurrence, bool) {
	e, ok := c.entry(id)
	return e.occ, ok
}

func (c *Calendar) entry(id layout.EventID) (entry, bool) {
	if id.Day < 0 || id.Day >= c.days || id.Item < 0 || id.Item >= len(c.sections[id.Day]) {
		return entry{}, false
	}
	return c.entries[c.sections[id.Day][id.Item]], true
}

// NumberOfDaySections implements layout.DataSource.
func (c *Calendar) NumberOfDaySections() int { return c.days }

// NumberOfEventsInDaySection implements layout.DataSource.
func (c *Calendar) NumberOfEventsInDaySection(day int) int {
	if day < 0 || day >= c.days {
		return 0
	}
	return len(c.sections[day])
}

// DayRangeForEvent implements layout.Delegate. The span is clipped to the
// day sections; unknown IDs get an empty range.
func (c *Calendar) DayRangeForEvent(id layout.EventID) layout.DayRange {
	e, ok := c.entry(id)
	if !ok {
		return layout.DayRange{}
	}
	return e.span.Intersect(layout.NewDayRange(0, c.days))
}

// VisibleDayRange implements layout.Delegate.
func (c *Calendar) VisibleDayRange() layout.DayRange {
	start := min(max(c.window.Start, 0), c.days)
	end := min(max(c.window.End(), start), c.days)
	return layout.NewDayRange(start, end-start)
}

// InsetsForEvent implements layout.InsetProvider.
func (c *Calendar) InsetsForEvent(id layout.EventID) layout.Inset {
	e, ok := c.entry(id)
	if !ok {
		return layout.InsetNone
	}
	w := c.VisibleDayRange()
	switch {
	case e.span.Start < w.Start:
		return layout.InsetLeft
	case e.span.End() > w.End():
		return layout.InsetRight
	}
	return layout.InsetNone
}

// SetWindow replaces the visible window.
func (c *Calendar) SetWindow(w layout.DayRange) {
	c.window = w
}

// Scroll moves the visible window by delta days, keeping it inside the day
// sections. It returns the new window.
func (c *Calendar) Scroll(delta int) layout.DayRange {
	w := c.VisibleDayRange()
	start := min(max(w.Start+delta, 0), c.days-w.Length)
	c.window = layout.NewDayRange(start, w.Length)
	return c.window
}

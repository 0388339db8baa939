package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "alldaycal/internal/log"
	"alldaycal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation receives every occurrence. Nil means time.Local.
	DisplayLocation *time.Location

	// Occurrences overlapping [RangeStart, RangeEnd) are returned.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero means
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// ExpandResult holds the expanded occurrences sorted by start.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// TruncatedEvents lists UIDs that hit MaxOccurrencesPerEvent.
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed events into concrete occurrences within the
// configured range. RRULE, EXDATE and RECURRENCE-ID overrides are applied;
// all-day occurrences are rebuilt at midnight in the display location.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	type key struct{ source, uid string }
	var order []key
	bases := make(map[key][]ParsedEvent)
	overrides := make(map[key][]ParsedEvent)
	for _, ev := range events {
		k := key{ev.Source.ID, ev.UID}
		if ev.IsOverride() {
			overrides[k] = append(overrides[k], ev)
			continue
		}
		if _, seen := bases[k]; !seen {
			order = append(order, k)
		}
		bases[k] = append(bases[k], ev)
	}

	for _, k := range order {
		used := make(map[int]bool)
		truncated := false
		for _, ev := range bases[k] {
			occ, hitCap := expandEvent(ev, overrides[k], used, cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, k.uid)
			appLog.Warn("expand: occurrences truncated", "uid", k.uid, "cap", cfg.MaxOccurrencesPerEvent)
		}

		// Overrides moved into the range from an instance outside of it.
		for i, ov := range overrides[k] {
			if used[i] {
				continue
			}
			if o, ok := makeOccurrence(ov, ov.Start, ov.End, cfg); ok {
				result.Occurrences = append(result.Occurrences, o)
			}
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, used map[int]bool, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if ev.RRule == "" {
		start, end := ev.Start, ev.End
		if i, ok := findOverride(overrides, start); ok {
			used[i] = true
			ev, start, end = overrides[i], overrides[i].Start, overrides[i].End
		}
		if o, ok := makeOccurrence(ev, start, end, cfg); ok {
			return []model.Occurrence{o}, false
		}
		return nil, false
	}
	return expandRecurringEvent(ev, overrides, used, cfg)
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, used map[int]bool, cfg ExpandConfig) ([]model.Occurrence, bool) {
	opt, err := rrule.StrToROption(ev.RRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	opt.Dtstart = ev.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Error("expand: invalid RRULE", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Instances starting before the range can still overlap it.
	dur := ev.Duration()
	loc := ev.Start.Location()
	from := cfg.RangeStart.Add(-dur)
	to := cfg.RangeEnd
	if ev.AllDay {
		from = floatingDate(cfg.RangeStart.In(cfg.DisplayLocation)).Add(-dur)
		to = floatingDate(cfg.RangeEnd.In(cfg.DisplayLocation)).AddDate(0, 0, 1)
	}
	starts := set.Between(from.In(loc), to.In(loc), true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		src, start, end := ev, s, s.Add(dur)
		if i, ok := findOverride(overrides, s); ok {
			used[i] = true
			src, start, end = overrides[i], overrides[i].Start, overrides[i].End
		}
		if o, ok := makeOccurrence(src, start, end, cfg); ok {
			out = append(out, o)
		}
	}
	return out, hitCap
}

// findOverride returns the index of the override whose RECURRENCE-ID is the
// instance start.
func findOverride(overrides []ParsedEvent, start time.Time) (int, bool) {
	for i, ov := range overrides {
		if ov.RecurrenceID != nil && ov.RecurrenceID.Equal(start) {
			return i, true
		}
	}
	return 0, false
}

// makeOccurrence converts an instance to the display location and drops it
// when it misses the range.
func makeOccurrence(ev ParsedEvent, start, end time.Time, cfg ExpandConfig) (model.Occurrence, bool) {
	loc := cfg.DisplayLocation
	if ev.AllDay {
		days := civilDays(start, end)
		if days < 1 {
			days = 1
		}
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, days)
	} else {
		start, end = start.In(loc), end.In(loc)
	}

	occ := model.Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: start.Format(time.RFC3339),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}

	if end.Equal(start) {
		// Zero-length events still mark the instant they sit on.
		return occ, !start.Before(cfg.RangeStart) && start.Before(cfg.RangeEnd)
	}
	return occ, occ.Overlaps(cfg.RangeStart, cfg.RangeEnd)
}

// floatingDate returns t's calendar date at UTC midnight.
func floatingDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// civilDays counts calendar days between two floating dates.
func civilDays(start, end time.Time) int {
	return int(floatingDate(end).Sub(floatingDate(start)).Hours()+12) / 24
}

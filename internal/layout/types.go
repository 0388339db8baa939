package layout

import (
	"cmp"
	"fmt"
)

// DayRange is the half-open span [Start, Start+Length) over day columns.
type DayRange struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// NewDayRange returns the range [start, start+length).
func NewDayRange(start, length int) DayRange {
	return DayRange{Start: start, Length: length}
}

// End returns the first day after the range.
func (r DayRange) End() int { return r.Start + r.Length }

// Empty reports whether the range covers no day.
func (r DayRange) Empty() bool { return r.Length <= 0 }

// Contains reports whether day lies inside the range.
func (r DayRange) Contains(day int) bool { return day >= r.Start && day < r.End() }

// Intersect returns the days shared by r and o. Disjoint ranges yield the
// zero DayRange.
func (r DayRange) Intersect(o DayRange) DayRange {
	start := max(r.Start, o.Start)
	end := min(r.End(), o.End())
	if end <= start {
		return DayRange{}
	}
	return DayRange{Start: start, Length: end - start}
}

// Intersects reports whether r and o share at least one day.
func (r DayRange) Intersects(o DayRange) bool {
	return r.Start < o.End() && o.Start < r.End() && !r.Empty() && !o.Empty()
}

func (r DayRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End())
}

// EventID identifies one event within one day section. The engine only
// compares IDs; their meaning belongs to the host.
type EventID struct {
	Day  int `json:"day"`
	Item int `json:"item"`
}

// Compare orders IDs by day, then item.
func (id EventID) Compare(o EventID) int {
	if c := cmp.Compare(id.Day, o.Day); c != 0 {
		return c
	}
	return cmp.Compare(id.Item, o.Item)
}

func (id EventID) String() string {
	return fmt.Sprintf("%d.%d", id.Day, id.Item)
}

// Inset marks which edge of a cell is trimmed because the event continues
// past the visible window on that side.
type Inset int

const (
	InsetNone Inset = iota
	InsetLeft
	InsetRight
)

func (i Inset) String() string {
	switch i {
	case InsetLeft:
		return "left"
	case InsetRight:
		return "right"
	default:
		return "none"
	}
}

// MarshalText encodes the inset by name.
func (i Inset) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText decodes an inset name; unknown names are rejected.
func (i *Inset) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*i = InsetNone
	case "left":
		*i = InsetLeft
	case "right":
		*i = InsetRight
	default:
		return fmt.Errorf("layout: unknown inset %q", string(b))
	}
	return nil
}

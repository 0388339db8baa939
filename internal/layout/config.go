package layout

import (
	"fmt"
	"math"
)

// Default geometry, in points.
const (
	DefaultColumnWidth = 60.0
	DefaultCellHeight  = 20.0
	DefaultCellSpacing = 2.0
	DefaultCellInset   = 4.0
)

// UnlimitedLines is what MaxVisibleLines reports when no height budget is set.
const UnlimitedLines = math.MaxInt32

// CarryRule decides whether an event found in a later day section of the
// window is collected even though it started on an earlier day.
type CarryRule int

const (
	// CarryAfterAnyEvents keeps every event of a day once an earlier day of
	// the window contributed events. Hosts that list a multi-day event in
	// each section it touches get one interval per section under this rule.
	CarryAfterAnyEvents CarryRule = iota
	// CarryFirstDayOnly keeps earlier-started events only while no earlier
	// day of the window contributed events.
	CarryFirstDayOnly
)

func (c CarryRule) String() string {
	switch c {
	case CarryFirstDayOnly:
		return "first_day_only"
	default:
		return "after_any_events"
	}
}

// ParseCarryRule maps a config name to a CarryRule. The empty string is the default rule.
func ParseCarryRule(s string) (CarryRule, error) {
	switch s {
	case "", "after_any_events":
		return CarryAfterAnyEvents, nil
	case "first_day_only":
		return CarryFirstDayOnly, nil
	}
	return 0, fmt.Errorf("%w: unknown carry rule %q", ErrInvalidConfig, s)
}

// Config holds the engine-wide geometry shared by every pass.
type Config struct {
	ColumnWidth float64 `json:"column_width"`
	CellHeight  float64 `json:"cell_height"`
	// MaxContentHeight bounds the stacked cells; +Inf disables the budget.
	MaxContentHeight float64   `json:"-"`
	CellSpacing      float64   `json:"cell_spacing"`
	CellInset        float64   `json:"cell_inset"`
	Carry            CarryRule `json:"-"`
}

// DefaultConfig returns the stock geometry with no height budget.
func DefaultConfig() Config {
	return Config{
		ColumnWidth:      DefaultColumnWidth,
		CellHeight:       DefaultCellHeight,
		MaxContentHeight: math.Inf(1),
		CellSpacing:      DefaultCellSpacing,
		CellInset:        DefaultCellInset,
		Carry:            CarryAfterAnyEvents,
	}
}

// Validate rejects geometry the engine cannot divide by or place with.
func (c Config) Validate() error {
	switch {
	case !(c.ColumnWidth > 0):
		return fmt.Errorf("%w: column width %v", ErrInvalidConfig, c.ColumnWidth)
	case !(c.CellHeight > 0):
		return fmt.Errorf("%w: cell height %v", ErrInvalidConfig, c.CellHeight)
	case !(c.CellSpacing >= 0):
		return fmt.Errorf("%w: cell spacing %v", ErrInvalidConfig, c.CellSpacing)
	case !(c.CellInset >= 0):
		return fmt.Errorf("%w: cell inset %v", ErrInvalidConfig, c.CellInset)
	case math.IsNaN(c.MaxContentHeight):
		return fmt.Errorf("%w: max content height is NaN", ErrInvalidConfig)
	}
	return nil
}

// MaxVisibleLines is the number of lines that fit in MaxContentHeight,
// the overflow line included.
func (c Config) MaxVisibleLines() int {
	n := math.Floor((c.MaxContentHeight + c.CellSpacing + 1) / (c.CellHeight + c.CellSpacing))
	switch {
	case math.IsNaN(n) || n <= 0:
		return 0
	case n >= UnlimitedLines:
		return UnlimitedLines
	}
	return int(n)
}

// RectFor returns the frame of a cell spanning r on the given line.
func (c Config) RectFor(r DayRange, line int, inset Inset) Rect {
	x := c.ColumnWidth * float64(r.Start)
	if inset == InsetLeft {
		x += c.CellInset
	}
	width := c.ColumnWidth * float64(r.Length)
	if inset == InsetRight {
		width -= c.CellInset
	}
	rect := Rect{
		X:      x,
		Y:      float64(line) * (c.CellHeight + c.CellSpacing),
		Width:  width,
		Height: c.CellHeight,
	}
	return rect.InsetX(c.CellSpacing)
}

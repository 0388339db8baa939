package layout

import (
	"fmt"
	"slices"
	"sort"

	appLog "alldaycal/internal/log"
)

// DataSource reports how many day sections exist and how many events each holds.
type DataSource interface {
	NumberOfDaySections() int
	NumberOfEventsInDaySection(day int) int
}

// Delegate supplies event spans and the visible day window. DayRangeForEvent
// must be stable for the duration of a pass.
type Delegate interface {
	DayRangeForEvent(id EventID) DayRange
	VisibleDayRange() DayRange
}

// InsetProvider is an optional Delegate capability. Hosts without it get
// InsetNone for every event.
type InsetProvider interface {
	InsetsForEvent(id EventID) Inset
}

// Host is everything the engine consumes.
type Host interface {
	DataSource
	Delegate
}

// CellPlacement is a placed event.
type CellPlacement struct {
	ID    EventID  `json:"id"`
	Range DayRange `json:"range"`
	Line  int      `json:"line"`
	Inset Inset    `json:"inset"`
	Frame Rect     `json:"frame"`
}

// OverflowPlacement is the "+N more" marker of a day.
type OverflowPlacement struct {
	Day    int  `json:"day"`
	Line   int  `json:"line"`
	Hidden int  `json:"hidden"`
	Frame  Rect `json:"frame"`
}

// Result is the immutable output of one pass.
type Result struct {
	Window          DayRange            `json:"window"`
	Sections        int                 `json:"sections"`
	MaxVisibleLines int                 `json:"max_visible_lines"`
	LinesUsed       int                 `json:"lines_used"`
	Cells           []CellPlacement     `json:"cells"`
	Overflows       []OverflowPlacement `json:"overflows"`
	ContentSize     Size                `json:"content_size"`
}

// Cell returns the placement of id, if it was placed.
func (r Result) Cell(id EventID) (CellPlacement, bool) {
	for _, c := range r.Cells {
		if c.ID == id {
			return c, true
		}
	}
	return CellPlacement{}, false
}

// Overflow returns the overflow indicator of day, if any.
func (r Result) Overflow(day int) (OverflowPlacement, bool) {
	i := sort.Search(len(r.Overflows), func(i int) bool { return r.Overflows[i].Day >= day })
	if i < len(r.Overflows) && r.Overflows[i].Day == day {
		return r.Overflows[i], true
	}
	return OverflowPlacement{}, false
}

// HiddenCount returns the number of hidden intervals on day.
func (r Result) HiddenCount(day int) int {
	o, _ := r.Overflow(day)
	return o.Hidden
}

// ElementsInRect returns the cells and overflow indicators whose frames
// overlap rect.
func (r Result) ElementsInRect(rect Rect) ([]CellPlacement, []OverflowPlacement) {
	var cells []CellPlacement
	for _, c := range r.Cells {
		if c.Frame.Intersects(rect) {
			cells = append(cells, c)
		}
	}
	var more []OverflowPlacement
	for _, o := range r.Overflows {
		if o.Frame.Intersects(rect) {
			more = append(more, o)
		}
	}
	return cells, more
}

// Engine lays out the all-day row of one host.
type Engine struct {
	host   Host
	insets InsetProvider
	cfg    Config
	counts *CountCache
	result *Result
}

// New returns an engine for host. No pass is run.
func New(host Host, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		host:   host,
		cfg:    cfg,
		counts: NewCountCache(host),
	}
	if ip, ok := host.(InsetProvider); ok {
		e.insets = ip
	}
	return e, nil
}

// RunLayoutPass recomputes every placement from the host. On error the
// previous result stays in place.
func (e *Engine) RunLayoutPass() error {
	e.counts.Reset()

	sections := e.counts.SectionCount()
	window := e.host.VisibleDayRange()
	if window.Start < 0 || window.Length < 0 || window.End() > sections {
		return fmt.Errorf("%w: %s with %d sections", ErrInvalidWindow, window, sections)
	}

	intervals, err := collectIntervals(e.counts, e.host, window, e.cfg.Carry)
	if err != nil {
		return err
	}

	p := &packer{
		cfg:      e.cfg,
		counts:   e.counts,
		insets:   e.insets,
		maxLines: e.cfg.MaxVisibleLines(),
	}
	cells, used, err := p.pack(intervals)
	if err != nil {
		return err
	}
	more := p.overflows()

	e.result = &Result{
		Window:          window,
		Sections:        sections,
		MaxVisibleLines: p.maxLines,
		LinesUsed:       used,
		Cells:           cells,
		Overflows:       more,
		ContentSize: Size{
			Width:  float64(sections) * e.cfg.ColumnWidth,
			Height: float64(used)*e.cfg.CellHeight + e.cfg.CellSpacing,
		},
	}

	appLog.Debug("layout pass complete",
		"window", window.String(),
		"intervals", len(intervals),
		"cells", len(cells),
		"overflow_days", len(more),
		"lines_used", used,
	)
	return nil
}

// Result returns a copy of the last pass output.
func (e *Engine) Result() (Result, error) {
	if e.result == nil {
		return Result{}, ErrNoLayout
	}
	r := *e.result
	r.Cells = slices.Clone(r.Cells)
	r.Overflows = slices.Clone(r.Overflows)
	return r, nil
}

// Cells returns the placed events of the last pass, in sort order.
func (e *Engine) Cells() ([]CellPlacement, error) {
	if e.result == nil {
		return nil, ErrNoLayout
	}
	return slices.Clone(e.result.Cells), nil
}

// Overflows returns the overflow indicators of the last pass, by day.
func (e *Engine) Overflows() ([]OverflowPlacement, error) {
	if e.result == nil {
		return nil, ErrNoLayout
	}
	return slices.Clone(e.result.Overflows), nil
}

// ContentSize returns the total extent of the last pass.
func (e *Engine) ContentSize() (Size, error) {
	if e.result == nil {
		return Size{}, ErrNoLayout
	}
	return e.result.ContentSize, nil
}

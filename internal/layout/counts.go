package layout

import "fmt"

// CountCache memoizes per-day event counts from a DataSource and tallies the
// events hidden on each day during one pass. Reset must be called at the
// start of every pass; nothing survives it.
type CountCache struct {
	source   DataSource
	sections int
	events   map[int]int
	hidden   map[int]int
}

// NewCountCache returns an empty cache reading from src.
func NewCountCache(src DataSource) *CountCache {
	c := &CountCache{source: src}
	c.Reset()
	return c
}

// Reset drops every cached count, including the section count.
func (c *CountCache) Reset() {
	c.sections = -1
	c.events = make(map[int]int)
	c.hidden = make(map[int]int)
}

// SectionCount returns the number of day sections the source reports.
func (c *CountCache) SectionCount() int {
	if c.sections < 0 {
		c.sections = max(c.source.NumberOfDaySections(), 0)
	}
	return c.sections
}

// EventCount returns the number of events anchored in day's section.
func (c *CountCache) EventCount(day int) (int, error) {
	if n := c.SectionCount(); day < 0 || day >= n {
		return 0, fmt.Errorf("%w: day %d, sections %d", ErrDayOutOfRange, day, n)
	}
	if n, ok := c.events[day]; ok {
		return n, nil
	}
	n := max(c.source.NumberOfEventsInDaySection(day), 0)
	c.events[day] = n
	return n, nil
}

// HiddenCount returns how many intervals were hidden on day this pass.
func (c *CountCache) HiddenCount(day int) int {
	return c.hidden[day]
}

// IncrementHidden records one more hidden interval on day.
func (c *CountCache) IncrementHidden(day int) {
	c.hidden[day]++
}

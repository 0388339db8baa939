package layout

import (
	"slices"
	"sort"
)

// interval is one collected event clipped to the visible window.
type interval struct {
	id   EventID
	span DayRange
}

// collectIntervals walks the window day by day and gathers the events whose
// range should be packed, clipped to the window.
func collectIntervals(counts *CountCache, d Delegate, window DayRange, carry CarryRule) ([]interval, error) {
	var out []interval
	previousDaysWithEvents := false
	for day := window.Start; day < window.End(); day++ {
		n, err := counts.EventCount(day)
		if err != nil {
			return nil, err
		}
		kept := 0
		for item := 0; item < n; item++ {
			id := EventID{Day: day, Item: item}
			span := d.DayRangeForEvent(id)
			if !keepEvent(span, day, window, previousDaysWithEvents, carry) {
				continue
			}
			clipped := span.Intersect(window)
			if clipped.Empty() {
				continue
			}
			out = append(out, interval{id: id, span: clipped})
			kept++
		}
		if kept > 0 {
			previousDaysWithEvents = true
		}
	}
	slices.SortFunc(out, func(a, b interval) int { return a.id.Compare(b.id) })
	return out, nil
}

// keepEvent applies the collection rule: events starting on day and every
// event of the window's first day are kept; earlier-started events found on
// later days depend on the carry rule.
func keepEvent(span DayRange, day int, window DayRange, previousDaysWithEvents bool, carry CarryRule) bool {
	if span.Start == day || day == window.Start {
		return true
	}
	if carry == CarryFirstDayOnly {
		return !previousDaysWithEvents
	}
	return previousDaysWithEvents
}

// line is the occupancy of one row: sorted, pairwise disjoint ranges.
type line []DayRange

func (l line) intersects(r DayRange) bool {
	i := sort.Search(len(l), func(i int) bool { return l[i].End() > r.Start })
	return i < len(l) && l[i].Start < r.End()
}

func (l *line) add(r DayRange) {
	i := sort.Search(len(*l), func(i int) bool { return (*l)[i].Start >= r.Start })
	*l = slices.Insert(*l, i, r)
}

// lines assigns intervals to rows, first fit in row creation order.
type lines []line

// assign places r on the lowest row it does not overlap, opening a new row
// when none fits, and returns the row index.
func (ls *lines) assign(r DayRange) int {
	for i := range *ls {
		if !(*ls)[i].intersects(r) {
			(*ls)[i].add(r)
			return i
		}
	}
	*ls = append(*ls, line{r})
	return len(*ls) - 1
}

// packer holds the state of a single pass.
type packer struct {
	cfg      Config
	counts   *CountCache
	insets   InsetProvider
	maxLines int
}

// visibleLinesFor returns how many lines events over r may occupy. When the
// busiest day of r has more events than fit, one line is kept back for the
// overflow indicator.
func (p *packer) visibleLinesFor(r DayRange) (int, error) {
	count := 0
	for day := r.Start; day < r.End(); day++ {
		n, err := p.counts.EventCount(day)
		if err != nil {
			return 0, err
		}
		count = max(count, n)
	}
	if count > p.maxLines {
		return p.maxLines - 1, nil
	}
	return count, nil
}

// pack assigns lines to the sorted intervals and splits them into placed
// cells and hidden tallies. It returns the cells and the number of lines the
// content needs.
func (p *packer) pack(intervals []interval) ([]CellPlacement, int, error) {
	var (
		rows  lines
		cells []CellPlacement
		used  int
	)
	for _, iv := range intervals {
		ln := rows.assign(iv.span)
		limit, err := p.visibleLinesFor(iv.span)
		if err != nil {
			return nil, 0, err
		}
		if ln < limit {
			inset := InsetNone
			if p.insets != nil {
				inset = p.insets.InsetsForEvent(iv.id)
			}
			cells = append(cells, CellPlacement{
				ID:    iv.id,
				Range: iv.span,
				Line:  ln,
				Inset: inset,
				Frame: p.cfg.RectFor(iv.span, ln, inset),
			})
			used = max(used, ln+1)
			continue
		}
		for day := iv.span.Start; day < iv.span.End(); day++ {
			p.counts.IncrementHidden(day)
		}
		used = max(used, limit+1)
	}
	return cells, used, nil
}

// overflows emits one indicator per section with hidden events.
func (p *packer) overflows() []OverflowPlacement {
	ln := max(p.maxLines-1, 0)
	var out []OverflowPlacement
	for day := 0; day < p.counts.SectionCount(); day++ {
		hidden := p.counts.HiddenCount(day)
		if hidden <= 0 {
			continue
		}
		out = append(out, OverflowPlacement{
			Day:    day,
			Line:   ln,
			Hidden: hidden,
			Frame:  p.cfg.RectFor(DayRange{Start: day, Length: 1}, ln, InsetNone),
		})
	}
	return out
}

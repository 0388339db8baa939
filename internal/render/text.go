package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"alldaycal/internal/refresh"
)

// DefaultColumnChars is the terminal width of one day column.
const DefaultColumnChars = 14

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	cellStyle      = lipgloss.NewStyle().Reverse(true)
	highlightStyle = lipgloss.NewStyle().Reverse(true).Foreground(lipgloss.Color("9"))
	overflowStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Text draws the visible window of snap for a terminal, one row per line.
// colChars is the width of a day column; values below 4 use
// DefaultColumnChars.
func Text(snap *refresh.Snapshot, colChars int) string {
	if colChars < 4 {
		colChars = DefaultColumnChars
	}
	win := snap.Window

	var header []string
	for _, label := range snap.VisibleLabels() {
		header = append(header, headerStyle.Width(colChars).Render(truncate(label, colChars-1)))
	}

	type segment struct {
		length int
		text   string
		style  lipgloss.Style
	}
	rows := make([]map[int]segment, snap.LinesUsed)
	for i := range rows {
		rows[i] = make(map[int]segment)
	}
	for _, c := range snap.Cells {
		if c.Line >= len(rows) {
			continue
		}
		style := cellStyle
		if c.Highlight {
			style = highlightStyle
		}
		day := c.Range.Start - win.Start
		rows[c.Line][day] = segment{c.Range.Length, c.Title, style}
	}
	for _, o := range snap.Overflows {
		if o.Line >= len(rows) || !win.Contains(o.Day) {
			continue
		}
		day := o.Day - win.Start
		rows[o.Line][day] = segment{1, fmt.Sprintf("+%d more", o.Hidden), overflowStyle}
	}

	lines := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}
	for _, segs := range rows {
		var b strings.Builder
		for day := 0; day < win.Length; {
			s, ok := segs[day]
			if !ok {
				b.WriteString(strings.Repeat(" ", colChars))
				day++
				continue
			}
			width := s.length * colChars
			b.WriteString(s.style.Width(width - 1).Render(truncate(" "+s.text, width-1)))
			b.WriteString(" ")
			day += s.length
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	for _, e := range snap.Errors {
		lines = append(lines, errorStyle.Render("! "+e))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// truncate cuts s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Package render draws a refresh snapshot as SVG, HTML or terminal text.
package render

import (
	"fmt"
	"io"
	"strings"

	"alldaycal/internal/refresh"
)

// Theme holds colors and fonts of the drawings.
type Theme struct {
	FontFamily   string
	FontSize     float64
	HeaderHeight float64

	Background string
	Text       string
	Cell       string
	CellText   string
	Highlight  string
	Overflow   string
	Grid       string
}

// DefaultTheme is black and red on white, the palette of a tri-color
// e-paper panel.
func DefaultTheme() Theme {
	return Theme{
		FontFamily:   "DejaVu Sans, sans-serif",
		FontSize:     12,
		HeaderHeight: 24,
		Background:   "#ffffff",
		Text:         "#000000",
		Cell:         "#000000",
		CellText:     "#ffffff",
		Highlight:    "#e00000",
		Overflow:     "#000000",
		Grid:         "#000000",
	}
}

// Size returns the width and height of the drawing for snap.
func Size(snap *refresh.Snapshot, th Theme) (float64, float64) {
	g := snap.Geometry
	width := float64(snap.Window.Length) * g.ColumnWidth
	height := th.HeaderHeight + max(float64(snap.LinesUsed)*(g.CellHeight+g.CellSpacing), g.CellSpacing)
	return width, height
}

// SVG writes the visible window of snap: day headers, placed cells and
// "+N more" markers.
func SVG(w io.Writer, snap *refresh.Snapshot, th Theme) error {
	var svg strings.Builder
	g := snap.Geometry
	width, height := Size(snap, th)

	// Content coordinates start at day 0; the drawing starts at the window.
	dx := -float64(snap.Window.Start) * g.ColumnWidth
	dy := th.HeaderHeight

	svg.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(width), num(height), num(width), num(height)))
	svg.WriteString(fmt.Sprintf(`<style>text { font-family: %s; font-size: %spx; }</style>`+"\n",
		escapeXML(th.FontFamily), num(th.FontSize)))
	svg.WriteString(fmt.Sprintf(`<rect width="100%%" height="100%%" fill="%s"/>`+"\n", th.Background))

	for i, label := range snap.VisibleLabels() {
		x := float64(i) * g.ColumnWidth
		svg.WriteString(fmt.Sprintf(`<text class="day" x="%s" y="%s" text-anchor="middle" fill="%s">%s</text>`+"\n",
			num(x+g.ColumnWidth/2), num(th.HeaderHeight-7), th.Text, escapeXML(label)))
		if i > 0 {
			svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="0" x2="%s" y2="%s" stroke="%s" stroke-width="0.5"/>`+"\n",
				num(x), num(x), num(height), th.Grid))
		}
	}
	svg.WriteString(fmt.Sprintf(`<line x1="0" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
		num(th.HeaderHeight-1), num(width), num(th.HeaderHeight-1), th.Grid))

	for _, c := range snap.Cells {
		f := c.Frame
		fill := th.Cell
		if c.Highlight {
			fill = th.Highlight
		}
		svg.WriteString(fmt.Sprintf(`<g class="cell" data-id="%s" data-line="%d">`, c.ID, c.Line))
		svg.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" rx="3" fill="%s"/>`,
			num(f.X+dx), num(f.Y+dy), num(f.Width), num(f.Height), fill))
		title := fitText(c.Title, f.Width-8, th.FontSize)
		svg.WriteString(fmt.Sprintf(`<text x="%s" y="%s" fill="%s">%s</text>`,
			num(f.X+dx+4), num(f.Y+dy+f.Height/2+th.FontSize/3), th.CellText, escapeXML(title)))
		svg.WriteString("</g>\n")
	}

	for _, o := range snap.Overflows {
		if !snap.Window.Contains(o.Day) {
			continue
		}
		f := o.Frame
		svg.WriteString(fmt.Sprintf(`<text class="more" data-day="%d" x="%s" y="%s" fill="%s">+%d more</text>`+"\n",
			o.Day, num(f.X+dx+4), num(f.Y+dy+f.Height/2+th.FontSize/3), th.Overflow, o.Hidden))
	}

	svg.WriteString("</svg>\n")
	_, err := io.WriteString(w, svg.String())
	return err
}

// num formats a coordinate without trailing zeros.
func num(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

// estimateTextWidth estimates the width of text in pixels based on character count.
func estimateTextWidth(text string, fontSize float64) float64 {
	return float64(len([]rune(text))) * fontSize * 0.6
}

// fitText shortens text with an ellipsis until it fits maxWidth.
func fitText(text string, maxWidth, fontSize float64) string {
	if estimateTextWidth(text, fontSize) <= maxWidth {
		return text
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		s := string(runes[:n]) + "…"
		if estimateTextWidth(s, fontSize) <= maxWidth {
			return s
		}
	}
	return ""
}

// escapeXML escapes special XML characters in a string to ensure valid SVG output.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

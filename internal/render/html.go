package render

import (
	"bytes"
	"html/template"
	"io"
	"time"

	"alldaycal/internal/refresh"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>All-day events</title>
<style>
html, body { margin: 0; padding: 0; background: {{.Background}}; }
.errors { font: 11px sans-serif; color: #e00000; margin: 2px 4px; }
</style>
</head>
<body>
<main id="allday" data-ready="true" data-snapshot="{{.ID}}" data-generated="{{.Generated}}" style="width: {{.Width}}px">
{{.SVG}}
{{- range .Errors}}
<p class="errors">{{.}}</p>
{{- end}}
</main>
</body>
</html>
`))

// HTML writes a standalone page embedding the SVG drawing. The page marks
// itself data-ready for headless capture.
func HTML(w io.Writer, snap *refresh.Snapshot, th Theme) error {
	var svg bytes.Buffer
	if err := SVG(&svg, snap, th); err != nil {
		return err
	}
	width, _ := Size(snap, th)
	return pageTmpl.Execute(w, struct {
		ID         string
		Generated  string
		Background string
		Width      string
		SVG        template.HTML
		Errors     []string
	}{
		ID:         snap.ID,
		Generated:  snap.GeneratedAt.Format(time.RFC3339),
		Background: th.Background,
		Width:      num(width),
		SVG:        template.HTML(svg.String()),
		Errors:     snap.Errors,
	})
}

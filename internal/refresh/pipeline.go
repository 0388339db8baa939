// Package refresh runs the fetch, expand and layout pipeline and keeps the
// latest result.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"alldaycal/internal/calendar"
	"alldaycal/internal/config"
	"alldaycal/internal/ics"
	"alldaycal/internal/layout"
	appLog "alldaycal/internal/log"
	"alldaycal/internal/model"
)

// ErrAllSourcesFailed is returned when no configured source produced data.
var ErrAllSourcesFailed = errors.New("refresh: all sources failed")

// Pipeline turns the configured sources into a Snapshot.
type Pipeline struct {
	cfg     *config.Config
	fetcher ics.Fetcher
	now     func() time.Time
}

// NewPipeline returns a pipeline over cfg. A nil fetcher uses an ics.Router
// caching under cfg.CacheDir.
func NewPipeline(cfg *config.Config, fetcher ics.Fetcher) *Pipeline {
	if fetcher == nil {
		fetcher = ics.NewRouter(cfg.CacheDir)
	}
	return &Pipeline{cfg: cfg, fetcher: fetcher, now: time.Now}
}

// Bounds returns the first day, the number of day sections and the visible
// window for the given instant.
func (p *Pipeline) Bounds(now time.Time) (time.Time, int, layout.DayRange) {
	loc := p.cfg.Location()
	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)

	start := today.AddDate(0, 0, -p.cfg.BackfillDays)
	if p.cfg.AlignWeek {
		back := (int(start.Weekday()) - int(p.cfg.FirstWeekday()) + 7) % 7
		start = start.AddDate(0, 0, -back)
	}

	offset := p.cfg.BackfillDays
	if p.cfg.AlignWeek {
		offset = int(today.Sub(start).Hours()+12) / 24
	}
	return start, offset + p.cfg.HorizonDays, layout.NewDayRange(offset, p.cfg.VisibleDays)
}

// Run fetches, expands and lays out every source. Failing sources are
// recorded in Snapshot.Errors; if all of them fail the error is
// ErrAllSourcesFailed and no snapshot is returned.
func (p *Pipeline) Run(ctx context.Context) (*Snapshot, error) {
	geometry, err := p.cfg.Layout.Engine()
	if err != nil {
		return nil, err
	}

	loc := p.cfg.Location()
	start, days, window := p.Bounds(p.now())
	end := start.AddDate(0, 0, days)

	sources := make([]ics.Source, 0, len(p.cfg.Sources))
	for _, s := range p.cfg.Sources {
		sources = append(sources, ics.Source{
			ID:       s.SourceID(),
			Kind:     s.Type,
			URL:      s.URL,
			Username: s.Username,
			Password: s.Password,
			Calendar: s.Calendar,
		})
	}

	results, fetchErr := ics.FetchAll(ctx, p.fetcher, sources, start, end)
	if len(sources) > 0 && len(results) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, fetchErr)
	}
	var problems []string
	if fetchErr != nil {
		problems = strings.Split(fetchErr.Error(), "\n")
	}

	var parsed []ics.ParsedEvent
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body, loc)
		if err != nil {
			problems = append(problems, fmt.Sprintf("source %s: %v", res.Source.ID, err))
			continue
		}
		parsed = append(parsed, events...)
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return nil, err
	}

	cal := calendar.New(expanded.Occurrences, calendar.Options{
		Start:           start,
		Days:            days,
		Window:          window,
		Location:        loc,
		IncludeMultiDay: p.cfg.IncludeMultiDay,
	})

	eng, err := layout.New(cal, geometry)
	if err != nil {
		return nil, err
	}
	if err := eng.RunLayoutPass(); err != nil {
		return nil, err
	}
	res, err := eng.Result()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:              uuid.NewString(),
		GeneratedAt:     p.now().UTC(),
		Timezone:        loc.String(),
		RangeStart:      start,
		Days:            days,
		Window:          res.Window,
		Labels:          cal.DayLabels(),
		Geometry:        geometry,
		MaxVisibleLines: res.MaxVisibleLines,
		LinesUsed:       res.LinesUsed,
		Cells:           make([]Cell, 0, len(res.Cells)),
		Overflows:       res.Overflows,
		ContentSize:     res.ContentSize,
		Errors:          problems,
	}
	for _, c := range res.Cells {
		occ, _ := cal.Occurrence(c.ID)
		snap.Cells = append(snap.Cells, Cell{
			CellPlacement: c,
			Title:         occ.Summary,
			SourceID:      occ.SourceID,
			UID:           occ.UID,
			Start:         occ.Start,
			End:           occ.End,
			Highlight:     highlighted(occ, p.cfg.HighlightRed),
		})
	}

	appLog.Info("refresh complete",
		"snapshot", snap.ID,
		"sources", len(sources),
		"failed", len(sources)-len(results),
		"occurrences", len(expanded.Occurrences),
		"cells", len(snap.Cells),
		"overflow_days", len(snap.Overflows),
	)
	return snap, nil
}

// highlighted reports whether the occurrence matches a keyword,
// case-insensitively, in its summary or description.
func highlighted(o model.Occurrence, keywords []string) bool {
	text := strings.ToLower(o.Summary + "\n" + o.Description)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

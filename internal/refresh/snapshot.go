package refresh

import (
	"sync"
	"time"

	"alldaycal/internal/layout"
)

// Cell is a placed event with the details a renderer needs.
type Cell struct {
	layout.CellPlacement

	Title     string    `json:"title"`
	SourceID  string    `json:"source_id"`
	UID       string    `json:"uid"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Highlight bool      `json:"highlight"`
}

// Snapshot is the immutable output of one refresh.
type Snapshot struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Timezone    string    `json:"timezone"`

	// RangeStart is midnight of day 0; Days sections follow.
	RangeStart time.Time       `json:"range_start"`
	Days       int             `json:"days"`
	Window     layout.DayRange `json:"window"`
	Labels     []string        `json:"labels"`

	Geometry        layout.Config              `json:"geometry"`
	MaxVisibleLines int                        `json:"max_visible_lines"`
	LinesUsed       int                        `json:"lines_used"`
	Cells           []Cell                     `json:"cells"`
	Overflows       []layout.OverflowPlacement `json:"overflows"`
	ContentSize     layout.Size                `json:"content_size"`

	// Errors lists sources that failed during this refresh.
	Errors []string `json:"errors,omitempty"`
}

// VisibleLabels returns the day labels of the window.
func (s *Snapshot) VisibleLabels() []string {
	w := s.Window
	if w.Start < 0 || w.End() > len(s.Labels) {
		return nil
	}
	return s.Labels[w.Start:w.End()]
}

// Store holds the latest snapshot.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the latest snapshot, if any.
func (s *Store) Get() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.snap != nil
}

// Set replaces the latest snapshot.
func (s *Store) Set(snap *Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

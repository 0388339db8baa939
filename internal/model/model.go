package model

import "time"

// Occurrence is a single concrete instance of a calendar event, after
// recurrence expansion, in the display timezone.
type Occurrence struct {
	SourceID string `json:"source_id"` // calendar source ID
	UID      string `json:"uid"`       // iCalendar UID

	// InstanceKey distinguishes the occurrences of one recurring event;
	// derived from the local start time.
	InstanceKey string `json:"instance_key"`

	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	AllDay bool `json:"all_day"`

	// Start is inclusive, End exclusive. All-day occurrences start and end
	// at local midnight.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the occurrence shares any instant with [start, end).
func (o Occurrence) Overlaps(start, end time.Time) bool {
	return o.Start.Before(end) && start.Before(o.End)
}

package model

import (
	"testing"
	"time"
)

func TestOccurrenceOverlaps(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	occ := Occurrence{Start: day(3), End: day(5)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"before", day(1), day(3), false},
		{"touching start", day(2), day(4), true},
		{"inside", day(3), day(4), true},
		{"after", day(5), day(6), false},
		{"covering", day(1), day(9), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := occ.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

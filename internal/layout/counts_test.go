package layout

import (
	"errors"
	"testing"
)

type countSource struct {
	counts       []int
	sectionCalls int
	eventCalls   map[int]int
}

func (s *countSource) NumberOfDaySections() int {
	s.sectionCalls++
	return len(s.counts)
}

func (s *countSource) NumberOfEventsInDaySection(day int) int {
	if s.eventCalls == nil {
		s.eventCalls = make(map[int]int)
	}
	s.eventCalls[day]++
	return s.counts[day]
}

func TestCountCacheEventCount(t *testing.T) {
	src := &countSource{counts: []int{3, 0, -2}}
	c := NewCountCache(src)

	for i := 0; i < 3; i++ {
		n, err := c.EventCount(0)
		if err != nil || n != 3 {
			t.Fatalf("EventCount(0) = %d, %v", n, err)
		}
	}
	if src.eventCalls[0] != 1 {
		t.Errorf("source queried %d times for day 0, want 1", src.eventCalls[0])
	}
	if n, _ := c.EventCount(2); n != 0 {
		t.Errorf("negative source count should clamp to 0, got %d", n)
	}
}

func TestCountCacheOutOfRange(t *testing.T) {
	c := NewCountCache(&countSource{counts: []int{1, 1}})
	for _, day := range []int{-1, 2, 10} {
		if _, err := c.EventCount(day); !errors.Is(err, ErrDayOutOfRange) {
			t.Errorf("EventCount(%d) error = %v, want ErrDayOutOfRange", day, err)
		}
	}
}

func TestCountCacheHidden(t *testing.T) {
	c := NewCountCache(&countSource{counts: []int{4}})
	if c.HiddenCount(0) != 0 {
		t.Fatal("hidden count should default to 0")
	}
	c.IncrementHidden(0)
	c.IncrementHidden(0)
	if got := c.HiddenCount(0); got != 2 {
		t.Errorf("HiddenCount(0) = %d, want 2", got)
	}
}

func TestCountCacheReset(t *testing.T) {
	src := &countSource{counts: []int{1, 2, 3}}
	c := NewCountCache(src)
	if _, err := c.EventCount(2); err != nil {
		t.Fatal(err)
	}
	c.IncrementHidden(1)

	src.counts = []int{5}
	c.Reset()
	c.Reset()

	if c.HiddenCount(1) != 0 {
		t.Error("Reset should clear hidden counts")
	}
	if got := c.SectionCount(); got != 1 {
		t.Errorf("SectionCount() after reset = %d, want 1", got)
	}
	if _, err := c.EventCount(2); !errors.Is(err, ErrDayOutOfRange) {
		t.Errorf("stale day 2 still readable after reset: %v", err)
	}
	if n, _ := c.EventCount(0); n != 5 {
		t.Errorf("EventCount(0) = %d, want fresh value 5", n)
	}
}

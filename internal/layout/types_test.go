package layout

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestDayRangeIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b DayRange
		want DayRange
	}{
		{"inside", NewDayRange(0, 5), NewDayRange(1, 2), NewDayRange(1, 2)},
		{"left overhang", NewDayRange(2, 3), NewDayRange(0, 4), NewDayRange(2, 2)},
		{"right overhang", NewDayRange(2, 3), NewDayRange(4, 6), NewDayRange(4, 1)},
		{"touching", NewDayRange(0, 2), NewDayRange(2, 2), DayRange{}},
		{"disjoint", NewDayRange(0, 1), NewDayRange(5, 1), DayRange{}},
		{"empty", NewDayRange(0, 5), NewDayRange(3, 0), DayRange{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersect(tt.b); got != tt.want {
				t.Errorf("Intersect() = %v, want %v", got, tt.want)
			}
			if got, want := tt.a.Intersects(tt.b), !tt.want.Empty(); got != want {
				t.Errorf("Intersects() = %v, want %v", got, want)
			}
		})
	}
}

func TestDayRangeBasics(t *testing.T) {
	r := NewDayRange(3, 2)
	if r.End() != 5 {
		t.Errorf("End() = %d, want 5", r.End())
	}
	if !r.Contains(3) || !r.Contains(4) || r.Contains(5) || r.Contains(2) {
		t.Errorf("Contains() wrong for %v", r)
	}
	if r.Empty() || !NewDayRange(0, 0).Empty() {
		t.Error("Empty() wrong")
	}
	if r.String() != "[3,5)" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestEventIDCompare(t *testing.T) {
	a := EventID{Day: 1, Item: 5}
	b := EventID{Day: 2, Item: 0}
	c := EventID{Day: 2, Item: 1}
	if a.Compare(b) >= 0 || b.Compare(c) >= 0 || c.Compare(a) <= 0 || b.Compare(b) != 0 {
		t.Error("Compare() is not lexicographic on (day, item)")
	}
}

func TestInsetText(t *testing.T) {
	for _, in := range []Inset{InsetNone, InsetLeft, InsetRight} {
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", in, err)
		}
		var got Inset
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", b, err)
		}
		if got != in {
			t.Errorf("round trip %v -> %s -> %v", in, b, got)
		}
	}
	var i Inset
	if err := i.UnmarshalText([]byte("middle")); err == nil {
		t.Error("expected error for unknown inset")
	}
}

func TestMaxVisibleLines(t *testing.T) {
	tests := []struct {
		name   string
		height float64
		want   int
	}{
		{"unlimited", math.Inf(1), UnlimitedLines},
		{"zero", 0, 0},
		{"just below one line", 18, 0},
		{"one line", 19, 1},
		{"four lines", 100, 4},
		{"negative", -50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxContentHeight = tt.height
			if got := cfg.MaxVisibleLines(); got != tt.want {
				t.Errorf("MaxVisibleLines() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRectFor(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		r     DayRange
		line  int
		inset Inset
		want  Rect
	}{
		{"plain", NewDayRange(1, 2), 1, InsetNone, Rect{X: 62, Y: 22, Width: 116, Height: 20}},
		{"left", NewDayRange(1, 2), 0, InsetLeft, Rect{X: 66, Y: 0, Width: 116, Height: 20}},
		{"right", NewDayRange(0, 1), 2, InsetRight, Rect{X: 2, Y: 44, Width: 52, Height: 20}},
		{"degenerate", DayRange{Start: 3}, 0, InsetNone, Rect{X: 182, Y: 0, Width: -4, Height: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.RectFor(tt.r, tt.line, tt.inset); got != tt.want {
				t.Errorf("RectFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.ColumnWidth = 0 },
		func(c *Config) { c.CellHeight = -1 },
		func(c *Config) { c.CellSpacing = -1 },
		func(c *Config) { c.CellInset = math.NaN() },
		func(c *Config) { c.MaxContentHeight = math.NaN() },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: Validate() = %v, want ErrInvalidConfig", i, err)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestParseCarryRule(t *testing.T) {
	for in, want := range map[string]CarryRule{
		"":                 CarryAfterAnyEvents,
		"after_any_events": CarryAfterAnyEvents,
		"first_day_only":   CarryFirstDayOnly,
	} {
		got, err := ParseCarryRule(in)
		if err != nil || got != want {
			t.Errorf("ParseCarryRule(%q) = %v, %v; want %v", in, got, err, want)
		}
		if in != "" && got.String() != in {
			t.Errorf("String() = %q, want %q", got.String(), in)
		}
	}
	if _, err := ParseCarryRule("sideways"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ParseCarryRule(sideways) = %v", err)
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	if !a.Intersects(Rect{X: 5, Y: 5, Width: 10, Height: 10}) {
		t.Error("overlapping rects should intersect")
	}
	if a.Intersects(Rect{X: 10, Y: 0, Width: 5, Height: 5}) {
		t.Error("edge-touching rects should not intersect")
	}
	if a.Intersects(Rect{X: 2, Y: 2, Width: -1, Height: 5}) {
		t.Error("degenerate rect should not intersect")
	}
}

package ics

import (
	"strings"
	"testing"
	"time"
)

func ics(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

var testSource = Source{ID: "home", Kind: KindICS, URL: "https://example.com/home.ics"}

func TestParseICS(t *testing.T) {
	body := ics(
		"BEGIN:VEVENT",
		"UID:trip",
		"SUMMARY:Trip",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;VALUE=DATE:20250303",
		"DTEND;VALUE=DATE:20250306",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:call",
		"SUMMARY:Call",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;TZID=America/New_York:20250305T090000",
		"DURATION:PT1H30M",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:holiday",
		"SUMMARY:Holiday",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250307",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:open-ended",
		"SUMMARY:Open ended",
		"DTSTAMP:20250101T000000Z",
		"DTSTART:20250308T100000Z",
		"DURATION:P1DT",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:No UID",
		"DTSTART:20250307",
		"END:VEVENT",
	)

	events, err := ParseICS(testSource, body, time.UTC)
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	trip := events[0]
	if !trip.AllDay || trip.Start != time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) || civilDays(trip.Start, trip.End) != 3 {
		t.Errorf("trip = %+v", trip)
	}

	call := events[1]
	if call.AllDay {
		t.Error("call parsed as all-day")
	}
	if got := call.Start.UTC(); got != time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC) {
		t.Errorf("call start = %v", got)
	}
	if call.Duration() != 90*time.Minute {
		t.Errorf("call duration = %v", call.Duration())
	}

	holiday := events[2]
	if !holiday.AllDay || civilDays(holiday.Start, holiday.End) != 1 {
		t.Errorf("holiday without DTEND = %+v", holiday)
	}
}

func TestParseICSEmpty(t *testing.T) {
	if _, err := ParseICS(testSource, nil, nil); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestDurationValue(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"P1D", 24 * time.Hour, false},
		{"P2W", 14 * 24 * time.Hour, false},
		{"PT1H30M", 90 * time.Minute, false},
		{"P1DT2H", 26 * time.Hour, false},
		{"-PT15M", -15 * time.Minute, false},
		{"p1d", 24 * time.Hour, false},
		{"PT", 0, true},
		{"P1DT", 0, true},
		{"1D", 0, true},
		{"P1H", 0, true},
		{"PT5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := durationValue(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("durationValue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("durationValue(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandAllDayRecurrence(t *testing.T) {
	body := ics(
		"BEGIN:VEVENT",
		"UID:shift",
		"SUMMARY:Shift",
		"DTSTAMP:20250101T000000Z",
		"DTSTART;VALUE=DATE:20250303",
		"DTEND;VALUE=DATE:20250305",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"EXDATE;VALUE=DATE:20250310",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:shift",
		"SUMMARY:Moved",
		"DTSTAMP:20250101T000000Z",
		"RECURRENCE-ID;VALUE=DATE:20250317",
		"DTSTART;VALUE=DATE:20250318",
		"DTEND;VALUE=DATE:20250319",
		"END:VEVENT",
	)
	events, err := ParseICS(testSource, body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: berlin,
		RangeStart:      time.Date(2025, 3, 1, 0, 0, 0, 0, berlin),
		RangeEnd:        time.Date(2025, 3, 29, 0, 0, 0, 0, berlin),
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences() error = %v", err)
	}

	type want struct {
		day, days int
		summary   string
	}
	wants := []want{{3, 2, "Shift"}, {18, 1, "Moved"}, {24, 2, "Shift"}}
	if len(res.Occurrences) != len(wants) {
		t.Fatalf("got %d occurrences: %+v", len(res.Occurrences), res.Occurrences)
	}
	for i, w := range wants {
		occ := res.Occurrences[i]
		start := time.Date(2025, 3, w.day, 0, 0, 0, 0, berlin)
		if !occ.Start.Equal(start) || !occ.End.Equal(start.AddDate(0, 0, w.days)) || occ.Summary != w.summary {
			t.Errorf("occurrence %d = %s %v..%v, want %s on %d for %d days", i, occ.Summary, occ.Start, occ.End, w.summary, w.day, w.days)
		}
		if occ.Start.Location() != berlin {
			t.Errorf("occurrence %d not in display location", i)
		}
	}
}

func TestExpandTimedOverlap(t *testing.T) {
	start := time.Date(2025, 3, 2, 22, 0, 0, 0, time.UTC)
	events := []ParsedEvent{
		{Source: testSource, UID: "late", Start: start, End: start.Add(4 * time.Hour)},
		{Source: testSource, UID: "early", Start: start.Add(-48 * time.Hour), End: start.Add(-47 * time.Hour)},
		{Source: testSource, UID: "daily", Start: start, End: start.Add(4 * time.Hour), RRule: "FREQ=DAILY"},
	}
	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	var uids []string
	for _, o := range res.Occurrences {
		uids = append(uids, o.UID)
	}
	// late and the first daily instance start the day before the range.
	if got := strings.Join(uids, ","); got != "late,daily,daily" {
		t.Errorf("uids = %s", got)
	}
	if len(res.TruncatedEvents) != 1 || res.TruncatedEvents[0] != "daily" {
		t.Errorf("TruncatedEvents = %v", res.TruncatedEvents)
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	now := time.Now()
	if _, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Error("expected error")
	}
}

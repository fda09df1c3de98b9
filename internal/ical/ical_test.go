package ical

import (
	"strings"
	"testing"
	"time"

	"github.com/watzon/virtualdate/internal/schedule"
	"github.com/watzon/virtualdate/internal/task"
)

func testInstance(id string, start time.Time, dur time.Duration) *schedule.Instance {
	return &schedule.Instance{
		Task:   task.New(id),
		Start:  start,
		Finish: start.Add(dur),
	}
}

func TestExport_Envelope(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	out := Export("Team Calendar", nil, now)

	if !strings.HasSuffix(out, "\r\n") {
		t.Error("output must end with CRLF")
	}
	if strings.Contains(strings.ReplaceAll(out, "\r\n", ""), "\n") {
		t.Error("lines must be joined with CRLF only")
	}

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//VirtualDate//Scheduler//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:Team Calendar",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want+"\r\n") {
			t.Errorf("missing line %q", want)
		}
	}
}

func TestExport_Event(t *testing.T) {
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	inst := testInstance("standup", start, 15*time.Minute)
	inst.Task.Flags = []string{"meetings"}
	inst.Explain = &schedule.Explanation{}
	inst.Explain.Append("due at 2026-01-05 10:00")

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := Export("Cal", []*schedule.Instance{inst}, now)

	for _, want := range []string{
		"BEGIN:VEVENT",
		"UID:standup-1767607200@virtualdate",
		"DTSTAMP:20260101T000000Z",
		"DTSTART:20260105T100000Z",
		"DTEND:20260105T101500Z",
		"SUMMARY:standup",
		"DESCRIPTION:due at 2026-01-05 10:00\\nFlags: meetings",
		"CATEGORIES:meetings",
		"END:VEVENT",
	} {
		if !strings.Contains(out, want+"\r\n") {
			t.Errorf("missing line %q in:\n%s", want, out)
		}
	}
}

func TestExport_NonUTCStart(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 1, 5, 9, 30, 0, 0, ny)
	inst := testInstance("open", start, time.Hour)

	out := Export("Cal", []*schedule.Instance{inst}, start)

	// 09:30 New York in winter is 14:30 UTC.
	if !strings.Contains(out, "DTSTART:20260105T143000Z\r\n") {
		t.Errorf("expected UTC conversion in:\n%s", out)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `plain`},
		{`a,b`, `a\,b`},
		{`a;b`, `a\;b`},
		{`a\b`, `a\\b`},
		{"a\nb", `a\nb`},
		{"a\r\nb", `a\nb`},
	}
	for _, tt := range tests {
		if got := escape(tt.in); got != tt.want {
			t.Errorf("escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

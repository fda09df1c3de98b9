package schedule

import (
	"strings"
	"testing"
)

func TestExplanation_Append(t *testing.T) {
	e := &Explanation{}
	e.Append("placed at %s", "10:00")
	e.Append("shifted once")

	if e.Len() != 2 {
		t.Fatalf("Len = %d", e.Len())
	}
	if e.Lines()[0] != "placed at 10:00" {
		t.Errorf("line 0 = %q", e.Lines()[0])
	}
}

func TestExplanation_Overflow(t *testing.T) {
	e := &Explanation{}
	for i := 0; i < MaxExplanationLines+50; i++ {
		e.Append("line %d", i)
	}

	lines := e.Lines()
	if len(lines) != MaxExplanationLines+1 {
		t.Fatalf("expected cap plus one notice, got %d lines", len(lines))
	}

	last := lines[len(lines)-1]
	if !strings.Contains(last, "truncated") {
		t.Errorf("last line = %q, want a truncation notice", last)
	}

	// Only a single notice, no matter how many more appends arrive.
	notices := 0
	for _, line := range lines {
		if strings.Contains(line, "truncated") {
			notices++
		}
	}
	if notices != 1 {
		t.Errorf("expected exactly one truncation notice, got %d", notices)
	}
}

func TestExplanation_String(t *testing.T) {
	e := &Explanation{}
	e.Append("a")
	e.Append("b")
	if got := e.String(); got != "a\nb" {
		t.Errorf("String = %q", got)
	}
}

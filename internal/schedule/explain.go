// Package schedule builds deterministic placements for a task set within
// a time window: topological dependency ordering, candidate generation,
// conflict resolution, parallelism enforcement, and deadline rejection.
package schedule

import (
	"fmt"
	"strings"
)

// MaxExplanationLines caps the per-instance trace. The first append past
// the cap records an overflow notice; later appends are discarded.
const MaxExplanationLines = 100

// Explanation is the append-only trace attached to candidates and
// instances. No reordering, no deletion.
type Explanation struct {
	lines      []string
	overflowed bool
}

// Append records a formatted line, subject to the cap.
func (e *Explanation) Append(format string, args ...any) {
	if e.overflowed {
		return
	}
	if len(e.lines) >= MaxExplanationLines {
		e.lines = append(e.lines, fmt.Sprintf("explanation truncated after %d lines", MaxExplanationLines))
		e.overflowed = true
		return
	}
	e.lines = append(e.lines, fmt.Sprintf(format, args...))
}

// Lines returns the recorded trace, including the overflow notice.
func (e *Explanation) Lines() []string {
	out := make([]string, len(e.lines))
	copy(out, e.lines)
	return out
}

// Len returns the number of recorded lines.
func (e *Explanation) Len() int { return len(e.lines) }

// String joins the trace with newlines.
func (e *Explanation) String() string {
	return strings.Join(e.lines, "\n")
}

package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/watzon/virtualdate/internal/pattern"
)

var ErrInvalidTask = errors.New("invalid task")

// Task is a user-facing scheduled item: a set of due/omit time patterns
// plus the policies the scheduler needs to place it. Tasks are value-like
// after construction; the scheduler never mutates them.
type Task struct {
	// ID is unique within a scheduler set; required when dependencies
	// refer to it.
	ID string

	// Begin and End gate occurrence. Concrete bounds form the interval
	// begin <= t <= end; pattern bounds are recurrence constraints.
	Begin *Bound
	End   *Bound

	// Due states when the task is scheduled to occur; empty means always
	// due. Omit states when a due task must not occur; empty means never
	// omitted.
	Due  []pattern.TimePattern
	Omit []pattern.TimePattern

	// Shift is the policy for re-placing a due-but-omitted occurrence:
	// null, hard bool, or a forward-search step duration.
	Shift     Policy
	MaxShift  time.Duration // zero means unbounded displacement
	MaxShifts int

	// Override is the file-level "on" policy: when set it is returned
	// unchanged by StrictOn before anything else is consulted.
	Override Policy

	Duration time.Duration
	Flags    []string
	Parallel int
	Priority int
	Fixed    bool
	Stagger  time.Duration // zero means no stagger
	Deadline *Bound

	// DependsOn holds resolved references; DependsOnIDs is the
	// serialization-side view resolved at load time.
	DependsOn    []*Task
	DependsOnIDs []string
}

// New returns a task with the documented defaults.
func New(id string) *Task {
	return &Task{
		ID:        id,
		MaxShifts: DefaultMaxShifts,
		Parallel:  1,
	}
}

// Validate checks the structural invariants of a single task.
func (t *Task) Validate() error {
	if t.Parallel < 1 {
		return fmt.Errorf("%w: task %q: parallel must be >= 1, got %d", ErrInvalidTask, t.ID, t.Parallel)
	}
	if t.Duration < 0 {
		return fmt.Errorf("%w: task %q: duration must be >= 0, got %s", ErrInvalidTask, t.ID, t.Duration)
	}
	if t.MaxShifts < 0 {
		return fmt.Errorf("%w: task %q: max_shifts must be >= 0, got %d", ErrInvalidTask, t.ID, t.MaxShifts)
	}
	return nil
}

// HasFlag reports membership in the task's flag set.
func (t *Task) HasFlag(flag string) bool {
	for _, f := range t.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// DueMatches reports whether any due pattern date-matches u and any due
// pattern time-matches u. An empty due list is always due.
func (t *Task) DueMatches(u time.Time) bool {
	return matchesAny(t.Due, u, true)
}

// OmitMatches reports whether any omit pattern date-matches u and any
// omit pattern time-matches u. An empty omit list never omits.
func (t *Task) OmitMatches(u time.Time) bool {
	return matchesAny(t.Omit, u, false)
}

// matchesAny applies the any-date AND any-time rule across a pattern
// list. A pattern with every date (or time) slot unset still counts as a
// date (or time) match.
func matchesAny(patterns []pattern.TimePattern, u time.Time, emptyResult bool) bool {
	if len(patterns) == 0 {
		return emptyResult
	}

	anyDate, anyTime := false, false
	for i := range patterns {
		if !anyDate && patterns[i].MatchesDate(u) {
			anyDate = true
		}
		if !anyTime && patterns[i].MatchesTime(u) {
			anyTime = true
		}
		if anyDate && anyTime {
			return true
		}
	}
	return false
}

// withinBounds applies begin/end gating.
func (t *Task) withinBounds(u time.Time) bool {
	if t.Begin != nil {
		if at, ok := t.Begin.Instant(); ok && u.Before(at) {
			return false
		}
		if p, ok := t.Begin.Pattern(); ok && !p.Matches(u) {
			return false
		}
	}
	if t.End != nil {
		if at, ok := t.End.Instant(); ok && u.After(at) {
			return false
		}
		if p, ok := t.End.Pattern(); ok && !p.Matches(u) {
			return false
		}
	}
	return true
}

func (t *Task) shifter(step time.Duration) Shifter {
	maxShifts := t.MaxShifts
	if maxShifts == 0 {
		maxShifts = DefaultMaxShifts
	}
	return Shifter{Step: step, MaxShift: t.MaxShift, MaxShifts: maxShifts}
}

// StrictOn answers whether the task occurs exactly at u: ResultNone when
// not due, ResultTrue when due and not omitted, ResultFalse when due but
// unschedulable, or a span when the shift policy moves the occurrence
// forward. The override short-circuits everything.
func (t *Task) StrictOn(u time.Time) OnResult {
	if t.Override.IsSet() {
		if b, ok := t.Override.Bool(); ok {
			if b {
				return ResultTrue
			}
			return ResultFalse
		}
		if d, ok := t.Override.Span(); ok {
			return ResultSpan(d)
		}
	}

	if !t.withinBounds(u) {
		return ResultNone
	}

	due := t.DueMatches(u)
	if !due {
		return ResultNone
	}
	if !t.OmitMatches(u) {
		return ResultTrue
	}

	// Due but omitted: the shift policy decides.
	switch t.Shift.Kind() {
	case PolicyUnset:
		return ResultNone
	case PolicyBool:
		if b, _ := t.Shift.Bool(); b {
			return ResultTrue
		}
		return ResultFalse
	case PolicySpan:
		step, _ := t.Shift.Span()
		if delta, ok := t.shifter(step).Forward(u, t.OmitMatches); ok {
			return ResultSpan(delta)
		}
		return ResultFalse
	}
	return ResultNone
}

// StrictOnPattern materializes p against hint and evaluates StrictOn at
// the resulting instant.
func (t *Task) StrictOnPattern(p *pattern.TimePattern, hint time.Time) (OnResult, error) {
	u, err := p.Materialize(hint)
	if err != nil {
		return ResultNone, err
	}
	return t.StrictOn(u), nil
}

// On reports whether u is effectively an occurrence of the task: either
// StrictOn is true at u, or u is reachable as the shifted resolution of
// some earlier base instant. A ResultTrue at a base does not make its
// shifted successors occurrences.
func (t *Task) On(u time.Time) bool {
	if t.StrictOn(u).IsTrue() {
		return true
	}

	step, ok := t.Shift.Span()
	if !ok || step <= 0 {
		return false
	}

	return t.shifter(step).ReachableFrom(u, func(base time.Time) (time.Duration, bool) {
		return t.StrictOn(base).Span()
	})
}

// Resolution is the outcome of Resolve: the raw StrictOn result, plus the
// shifted instant when the result carries a span.
type Resolution struct {
	Result OnResult
	At     time.Time
}

// Resolve evaluates StrictOn at u and, for span results, computes the
// concrete shifted instant u + delta.
func (t *Task) Resolve(u time.Time) Resolution {
	r := t.StrictOn(u)
	res := Resolution{Result: r}
	if delta, ok := r.Span(); ok {
		res.At = u.Add(delta)
	}
	return res
}

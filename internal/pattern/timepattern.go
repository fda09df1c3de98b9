package pattern

import (
	"time"

	"github.com/watzon/virtualdate/internal/calendar"
)

// Slot maxima used as wrap anchors. Day, week, and day-of-year anchors
// depend on the candidate instant and are computed at match time.
const (
	MaxYear        = 9999
	MaxMonth       = 12
	MaxDayOfWeek   = 7
	MaxHour        = 23
	MaxMinute      = 59
	MaxSecond      = 59
	MaxMillisecond = 999
	MaxNanosecond  = 999_999_999
)

// TimePattern describes a recurring or broadly-defined moment in civil
// time as a conjunction of 11 field patterns. An unset slot matches any
// value. When Location is set, instants are converted to it before their
// civil fields are compared.
type TimePattern struct {
	Year      Field
	Month     Field
	Day       Field
	Week      Field
	DayOfWeek Field
	DayOfYear Field

	Hour        Field
	Minute      Field
	Second      Field
	Millisecond Field
	Nanosecond  Field

	Location *time.Location
}

// FromInstant builds a fully-exact pattern from a concrete instant. The
// millisecond and nanosecond slots are copied only when the corresponding
// flag is set; clearing selected slots afterwards yields a recurrence.
func FromInstant(t time.Time, includeMillis, includeNanos bool) TimePattern {
	p := TimePattern{
		Year:      Exact(t.Year()),
		Month:     Exact(int(t.Month())),
		Day:       Exact(t.Day()),
		Week:      Exact(calendar.WeekOfYear(t)),
		DayOfWeek: Exact(calendar.DayOfWeek(t)),
		DayOfYear: Exact(t.YearDay()),
		Hour:      Exact(t.Hour()),
		Minute:    Exact(t.Minute()),
		Second:    Exact(t.Second()),
		Location:  t.Location(),
	}
	if includeMillis {
		p.Millisecond = Exact(t.Nanosecond() / 1e6)
	}
	if includeNanos {
		p.Nanosecond = Exact(t.Nanosecond())
	}
	return p
}

// in converts t into the pattern's location, when one is attached.
func (p *TimePattern) in(t time.Time) time.Time {
	if p.Location != nil && t.Location() != p.Location {
		return t.In(p.Location)
	}
	return t
}

// Matches reports whether t satisfies every slot of the pattern.
func (p *TimePattern) Matches(t time.Time) bool {
	return p.MatchesDate(t) && p.MatchesTime(t)
}

// MatchesDate tests the six date slots (year through day-of-year).
func (p *TimePattern) MatchesDate(t time.Time) bool {
	t = p.in(t)
	y := t.Year()
	return p.Year.Match(y, MaxYear) &&
		p.Month.Match(int(t.Month()), MaxMonth) &&
		p.Day.Match(t.Day(), calendar.DaysInMonth(y, int(t.Month()))) &&
		p.Week.Match(calendar.WeekOfYear(t), calendar.WeeksInYear(y)) &&
		p.DayOfWeek.Match(calendar.DayOfWeek(t), MaxDayOfWeek) &&
		p.DayOfYear.Match(t.YearDay(), calendar.DaysInYear(y))
}

// MatchesTime tests the five time slots (hour through nanosecond).
func (p *TimePattern) MatchesTime(t time.Time) bool {
	t = p.in(t)
	return p.Hour.Match(t.Hour(), MaxHour) &&
		p.Minute.Match(t.Minute(), MaxMinute) &&
		p.Second.Match(t.Second(), MaxSecond) &&
		p.Millisecond.Match(t.Nanosecond()/1e6, MaxMillisecond) &&
		p.Nanosecond.Match(t.Nanosecond(), MaxNanosecond)
}

// IsMaterialized reports whether every slot is Unset or Exact, i.e. the
// pattern denotes at most one instant per calendar cycle.
func (p *TimePattern) IsMaterialized() bool {
	for _, f := range p.fields() {
		if k := f.Kind(); k != KindUnset && k != KindExact {
			return false
		}
	}
	return true
}

// Materialize resolves the pattern to a concrete instant near hint. The
// scalar slots are materialized directly; the week, day-of-year, and
// day-of-week constraints are then reconciled by advancing whole days (or
// weeks) for up to 10 iterations. Returns ErrUnreconcilable when the loop
// exhausts without satisfying all three.
func (p *TimePattern) Materialize(hint time.Time) (time.Time, error) {
	loc := hint.Location()
	if p.Location != nil {
		loc = p.Location
	}
	hint = hint.In(loc)

	year := p.Year.Materialize(hint.Year(), MaxYear, true)
	month := p.Month.Materialize(int(hint.Month()), MaxMonth, true)
	day := p.Day.Materialize(hint.Day(), calendar.DaysInMonth(year, month), true)
	hour := p.Hour.Materialize(hint.Hour(), MaxHour, true)
	minute := p.Minute.Materialize(hint.Minute(), MaxMinute, true)
	second := p.Second.Materialize(hint.Second(), MaxSecond, true)

	nanos := hint.Nanosecond()
	switch {
	case p.Nanosecond.IsSet():
		nanos = p.Nanosecond.Materialize(nanos, MaxNanosecond, true)
	case p.Millisecond.IsSet():
		nanos = p.Millisecond.Materialize(nanos/1e6, MaxMillisecond, true) * 1e6
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, nanos, loc)

	for i := 0; i < 10; i++ {
		moved := false

		if p.Week.IsSet() {
			cur := calendar.WeekOfYear(t)
			anchor := calendar.WeeksInYear(t.Year())
			req := p.Week.Materialize(cur, anchor, true)
			if req != cur {
				t = t.AddDate(0, 0, mod(req-cur, anchor)*7)
				moved = true
			}
		}
		if p.DayOfYear.IsSet() {
			cur := t.YearDay()
			anchor := calendar.DaysInYear(t.Year())
			req := p.DayOfYear.Materialize(cur, anchor, true)
			if req != cur {
				t = t.AddDate(0, 0, mod(req-cur, anchor))
				moved = true
			}
		}
		if p.DayOfWeek.IsSet() {
			cur := calendar.DayOfWeek(t)
			req := p.DayOfWeek.Materialize(cur, MaxDayOfWeek, true)
			if req != cur {
				t = t.AddDate(0, 0, mod(req-cur, MaxDayOfWeek))
				moved = true
			}
		}

		if !moved {
			return t, nil
		}
	}

	if p.weekSlotsSatisfied(t) {
		return t, nil
	}
	return time.Time{}, ErrUnreconcilable
}

func (p *TimePattern) weekSlotsSatisfied(t time.Time) bool {
	y := t.Year()
	return p.Week.Match(calendar.WeekOfYear(t), calendar.WeeksInYear(y)) &&
		p.DayOfYear.Match(t.YearDay(), calendar.DaysInYear(y)) &&
		p.DayOfWeek.Match(calendar.DayOfWeek(t), MaxDayOfWeek)
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

// Expand produces the cartesian product of the slots' enumerations, year
// outermost and nanosecond innermost. Unset and predicate slots are
// preserved as-is in every combination.
func (p *TimePattern) Expand() []TimePattern {
	slots := p.fields()
	expansions := make([][]Field, len(slots))
	total := 1
	for i, f := range slots {
		expansions[i] = f.Expand()
		total *= len(expansions[i])
	}

	out := make([]TimePattern, 0, total)
	idx := make([]int, len(slots))
	for {
		q := *p
		qs := q.fields()
		for i := range qs {
			*qs[i] = expansions[i][idx[i]]
		}
		out = append(out, q)

		k := len(idx) - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < len(expansions[k]) {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			break
		}
	}
	return out
}

// ClearTime unsets the five time slots, leaving a date-only recurrence.
func (p *TimePattern) ClearTime() {
	p.Hour = Unset()
	p.Minute = Unset()
	p.Second = Unset()
	p.Millisecond = Unset()
	p.Nanosecond = Unset()
}

// ClearDate unsets the six date slots, leaving a time-only recurrence.
func (p *TimePattern) ClearDate() {
	p.Year = Unset()
	p.Month = Unset()
	p.Day = Unset()
	p.Week = Unset()
	p.DayOfWeek = Unset()
	p.DayOfYear = Unset()
}

// DateIsSet reports whether any date slot constrains matching.
func (p *TimePattern) DateIsSet() bool {
	return p.Year.IsSet() || p.Month.IsSet() || p.Day.IsSet() ||
		p.Week.IsSet() || p.DayOfWeek.IsSet() || p.DayOfYear.IsSet()
}

// TimeIsSet reports whether any time slot constrains matching.
func (p *TimePattern) TimeIsSet() bool {
	return p.Hour.IsSet() || p.Minute.IsSet() || p.Second.IsSet() ||
		p.Millisecond.IsSet() || p.Nanosecond.IsSet()
}

// fields returns the slots in declaration order, year first.
func (p *TimePattern) fields() []*Field {
	return []*Field{
		&p.Year, &p.Month, &p.Day, &p.Week, &p.DayOfWeek, &p.DayOfYear,
		&p.Hour, &p.Minute, &p.Second, &p.Millisecond, &p.Nanosecond,
	}
}

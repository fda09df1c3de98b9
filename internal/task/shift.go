package task

import "time"

// DefaultMaxShifts bounds every shift search.
const DefaultMaxShifts = 1500

// Shifter is the deterministic bounded search used both for forward
// rescheduling past an omit region and for inverse reachability.
type Shifter struct {
	// Step is the span added per iteration. A zero step never finds.
	Step time.Duration
	// MaxShift, when positive, bounds the total displacement.
	MaxShift time.Duration
	// MaxShifts bounds the number of iterations.
	MaxShifts int
}

// Forward walks forward from base in Step increments until omitted
// reports false, returning the accumulated delta. Gives up after
// MaxShifts steps or once the displacement exceeds MaxShift.
func (s Shifter) Forward(base time.Time, omitted func(time.Time) bool) (time.Duration, bool) {
	if s.Step == 0 {
		return 0, false
	}

	current := base
	for shifts := 1; ; shifts++ {
		current = current.Add(s.Step)
		if shifts > s.MaxShifts {
			return 0, false
		}
		if s.MaxShift > 0 && absDuration(current.Sub(base)) > s.MaxShift {
			return 0, false
		}
		if !omitted(current) {
			return current.Sub(base), true
		}
	}
}

// ReachableFrom reports whether some base instant target - k*Step resolves
// to a delta landing exactly on target. resolve yields the base's shift
// delta, or no result when the base is not a shifted occurrence. The walk
// stops once the displacement window around target is exceeded.
func (s Shifter) ReachableFrom(target time.Time, resolve func(time.Time) (time.Duration, bool)) bool {
	if s.Step == 0 {
		return false
	}

	for k := 1; k <= s.MaxShifts; k++ {
		base := target.Add(-time.Duration(k) * s.Step)
		if s.MaxShift > 0 && absDuration(target.Sub(base)) > s.MaxShift {
			return false
		}
		if delta, ok := resolve(base); ok && base.Add(delta).Equal(target) {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

package task

import (
	"testing"
	"time"
)

func TestShifter_Forward(t *testing.T) {
	base := time.Date(2017, 3, 15, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	t.Run("first step clears the omit region", func(t *testing.T) {
		s := Shifter{Step: day, MaxShifts: DefaultMaxShifts}
		omitted := func(u time.Time) bool { return u.Day() == 15 }

		delta, ok := s.Forward(base, omitted)
		if !ok {
			t.Fatal("Forward should find a slot")
		}
		if delta != day {
			t.Errorf("delta = %s, want 24h", delta)
		}
	})

	t.Run("walks across a multi-day omit region", func(t *testing.T) {
		s := Shifter{Step: day, MaxShifts: DefaultMaxShifts}
		omitted := func(u time.Time) bool { return u.Day() >= 15 && u.Day() <= 18 }

		delta, ok := s.Forward(base, omitted)
		if !ok {
			t.Fatal("Forward should find a slot")
		}
		if delta != 4*day {
			t.Errorf("delta = %s, want 96h", delta)
		}
	})

	t.Run("max shift bounds displacement", func(t *testing.T) {
		s := Shifter{Step: day, MaxShift: day, MaxShifts: DefaultMaxShifts}
		omitted := func(u time.Time) bool { return u.Day() >= 15 && u.Day() <= 16 }

		if _, ok := s.Forward(base, omitted); ok {
			t.Error("Forward should give up past max shift")
		}
	})

	t.Run("max shifts bounds iterations", func(t *testing.T) {
		s := Shifter{Step: time.Minute, MaxShifts: 10}
		always := func(time.Time) bool { return true }

		if _, ok := s.Forward(base, always); ok {
			t.Error("Forward should give up after max shifts")
		}
	})

	t.Run("zero step never finds", func(t *testing.T) {
		s := Shifter{Step: 0, MaxShifts: DefaultMaxShifts}
		if _, ok := s.Forward(base, func(time.Time) bool { return false }); ok {
			t.Error("zero step must yield not-found")
		}
	})
}

func TestShifter_ReachableFrom(t *testing.T) {
	day := 24 * time.Hour
	base := time.Date(2017, 3, 15, 0, 0, 0, 0, time.UTC)
	target := base.Add(day)

	resolver := func(d time.Duration, at time.Time) func(time.Time) (time.Duration, bool) {
		return func(u time.Time) (time.Duration, bool) {
			if u.Equal(at) {
				return d, true
			}
			return 0, false
		}
	}

	t.Run("one step back", func(t *testing.T) {
		s := Shifter{Step: day, MaxShifts: DefaultMaxShifts}
		if !s.ReachableFrom(target, resolver(day, base)) {
			t.Error("target should be reachable from base")
		}
	})

	t.Run("delta must land exactly on target", func(t *testing.T) {
		s := Shifter{Step: day, MaxShifts: DefaultMaxShifts}
		if s.ReachableFrom(target, resolver(2*day, base)) {
			t.Error("a delta overshooting the target is not a reach")
		}
	})

	t.Run("window measured against target", func(t *testing.T) {
		s := Shifter{Step: day, MaxShift: day, MaxShifts: DefaultMaxShifts}
		far := target.Add(2 * day)
		if s.ReachableFrom(far, resolver(3*day, base)) {
			t.Error("bases beyond max shift must not be visited")
		}
	})

	t.Run("zero step never reaches", func(t *testing.T) {
		s := Shifter{Step: 0, MaxShifts: DefaultMaxShifts}
		if s.ReachableFrom(target, resolver(day, base)) {
			t.Error("zero step must yield false")
		}
	})
}

package pattern

import (
	"fmt"
	"sort"

	"github.com/robfig/cron/v3"
)

// cron's SpecSchedule marks unrestricted fields with the top bit.
const cronStarBit = 1 << 63

// FromCron builds a TimePattern from a standard 5-field cron expression
// (with optional @descriptors). Restricted day-of-month and day-of-week
// fields combine as a conjunction here, unlike cron's union rule.
func FromCron(expr string) (TimePattern, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return TimePattern{}, fmt.Errorf("%w: parsing cron expression %q: %v", ErrInvalidPattern, expr, err)
	}

	spec, ok := sched.(*cron.SpecSchedule)
	if !ok {
		return TimePattern{}, fmt.Errorf("%w: cron expression %q has no field spec", ErrInvalidPattern, expr)
	}

	return TimePattern{
		Month:     bitsToField(spec.Month, 1, 12, nil),
		Day:       bitsToField(spec.Dom, 1, 31, nil),
		DayOfWeek: bitsToField(spec.Dow, 0, 6, cronDowToISO),
		Hour:      bitsToField(spec.Hour, 0, 23, nil),
		Minute:    bitsToField(spec.Minute, 0, 59, nil),
		Second:    bitsToField(spec.Second, 0, 59, nil),
	}, nil
}

// cronDowToISO maps cron's Sunday=0 convention to Monday=1..Sunday=7.
func cronDowToISO(v int) int {
	if v == 0 {
		return 7
	}
	return v
}

func bitsToField(mask uint64, min, max int, remap func(int) int) Field {
	if mask&cronStarBit != 0 {
		return Unset()
	}

	var vs []int
	for v := min; v <= max; v++ {
		if mask&(1<<uint(v)) != 0 {
			if remap != nil {
				vs = append(vs, remap(v))
			} else {
				vs = append(vs, v)
			}
		}
	}
	sort.Ints(vs)

	switch len(vs) {
	case 0:
		return Bool(false)
	case 1:
		return Exact(vs[0])
	default:
		return List(vs...)
	}
}

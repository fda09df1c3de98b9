package schedule

import (
	"time"

	"github.com/watzon/virtualdate/internal/task"
)

// Instance is one concrete placement emitted by Build: a half-open
// interval [Start, Finish) owned by a task. Never mutated after Build
// returns.
type Instance struct {
	Task    *task.Task
	Start   time.Time
	Finish  time.Time
	Explain *Explanation
}

// Covers reports whether u falls inside the placement under the half-open
// rule, or coincides exactly for zero-duration instances.
func (i *Instance) Covers(u time.Time) bool {
	if i.Start.Equal(i.Finish) {
		return u.Equal(i.Start)
	}
	return !u.Before(i.Start) && u.Before(i.Finish)
}

// overlaps applies the half-open overlap rule to [start, finish).
func (i *Instance) overlaps(start, finish time.Time) bool {
	return i.Start.Before(finish) && start.Before(i.Finish)
}

// OnInSchedule reports whether some placed instance of tk covers u.
func OnInSchedule(placed []*Instance, tk *task.Task, u time.Time) bool {
	for _, inst := range placed {
		if inst.Task == tk && inst.Covers(u) {
			return true
		}
	}
	return false
}

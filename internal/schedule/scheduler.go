package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watzon/virtualdate/internal/metrics"
	"github.com/watzon/virtualdate/internal/task"
)

var (
	ErrCycle                   = errors.New("dependency cycle")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrUnsatisfiableDependency = errors.New("unsatisfiable dependency")
)

const (
	// earliestStartCap bounds the minute-resolution scan per task.
	earliestStartCap = 10000
	scanStep         = time.Minute

	// defaultFlag is the synthetic parallelism group for flagless tasks.
	defaultFlag = "_default"
)

// Scheduler builds sorted placement lists for a task set. It may be
// reused across windows; Tasks must not be mutated while Build runs.
type Scheduler struct {
	Tasks []*task.Task
}

// New creates a scheduler over the given tasks.
func New(tasks ...*task.Task) *Scheduler {
	return &Scheduler{Tasks: tasks}
}

// Build produces the placements within [from, to), sorted by start.
// Identical inputs produce identical output: the topological tie-break
// key (fixed desc, priority desc, id asc) leaves no freedom.
func (s *Scheduler) Build(from, to time.Time) ([]*Instance, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCycles(); err != nil {
		return nil, err
	}

	b := &builder{
		from:       from,
		to:         to,
		dependents: s.dependentsMap(),
	}

	order, err := s.topoOrder(b.dependents)
	if err != nil {
		return nil, err
	}

	for _, tk := range order {
		if err := b.place(tk); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(b.placed, func(i, j int) bool {
		return b.placed[i].Start.Before(b.placed[j].Start)
	})

	log.Debug().
		Int("tasks", len(s.Tasks)).
		Int("instances", len(b.placed)).
		Time("from", from).
		Time("to", to).
		Msg("Schedule built")

	return b.placed, nil
}

func (s *Scheduler) validate() error {
	inSet := make(map[*task.Task]bool, len(s.Tasks))
	for _, tk := range s.Tasks {
		inSet[tk] = true
	}
	for _, tk := range s.Tasks {
		if err := tk.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		if tk.Stagger < 0 {
			return fmt.Errorf("%w: task %q: stagger must be positive", ErrInvalidArgument, tk.ID)
		}
		for _, dep := range tk.DependsOn {
			if !inSet[dep] {
				return fmt.Errorf("%w: task %q depends on %q, which is not in the scheduler set", ErrInvalidArgument, tk.ID, dep.ID)
			}
		}
	}
	return nil
}

// checkCycles runs an iterative depth-first traversal over the dependency
// edges. Explicit stack, so deep graphs cannot exhaust the call stack.
func (s *Scheduler) checkCycles() error {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // done
	)

	color := make(map[*task.Task]int, len(s.Tasks))

	type frame struct {
		tk   *task.Task
		next int
	}

	for _, root := range s.Tasks {
		if color[root] != white {
			continue
		}
		stack := []frame{{tk: root}}
		color[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.tk.DependsOn) {
				dep := top.tk.DependsOn[top.next]
				top.next++
				switch color[dep] {
				case gray:
					return fmt.Errorf("%w: involving tasks %q and %q", ErrCycle, top.tk.ID, dep.ID)
				case white:
					color[dep] = gray
					stack = append(stack, frame{tk: dep})
				}
				continue
			}
			color[top.tk] = black
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

func (s *Scheduler) dependentsMap() map[*task.Task][]*task.Task {
	dependents := make(map[*task.Task][]*task.Task)
	for _, tk := range s.Tasks {
		for _, dep := range tk.DependsOn {
			dependents[dep] = append(dependents[dep], tk)
		}
	}
	return dependents
}

// topoOrder emits tasks dependencies-first, breaking ties among ready
// tasks by (fixed desc, priority desc, id asc).
func (s *Scheduler) topoOrder(dependents map[*task.Task][]*task.Task) ([]*task.Task, error) {
	indegree := make(map[*task.Task]int, len(s.Tasks))
	for _, tk := range s.Tasks {
		indegree[tk] = len(tk.DependsOn)
	}

	emitted := make(map[*task.Task]bool, len(s.Tasks))
	order := make([]*task.Task, 0, len(s.Tasks))

	for len(order) < len(s.Tasks) {
		var best *task.Task
		for _, tk := range s.Tasks {
			if emitted[tk] || indegree[tk] != 0 {
				continue
			}
			if best == nil || readyBefore(tk, best) {
				best = tk
			}
		}
		if best == nil {
			return nil, fmt.Errorf("%w: topological order does not cover every task", ErrCycle)
		}
		emitted[best] = true
		order = append(order, best)
		for _, dep := range dependents[best] {
			indegree[dep]--
		}
	}
	return order, nil
}

func readyBefore(a, b *task.Task) bool {
	if a.Fixed != b.Fixed {
		return a.Fixed
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID < b.ID
}

// builder owns the working state of one Build invocation.
type builder struct {
	from, to   time.Time
	placed     []*Instance
	dependents map[*task.Task][]*task.Task
}

func (b *builder) hasDependents(tk *task.Task) bool {
	return len(b.dependents[tk]) > 0
}

// place generates candidates for one task and attempts each placement.
func (b *builder) place(tk *task.Task) error {
	depFloor, depsPlaced := b.dependencyFloor(tk)
	if !depsPlaced {
		if b.hasDependents(tk) {
			return fmt.Errorf("%w: task %q has an unplaced dependency but downstream dependents", ErrUnsatisfiableDependency, tk.ID)
		}
		log.Debug().Str("task_id", tk.ID).Msg("Skipping task with unplaced dependency")
		return nil
	}

	candidates, err := b.candidates(tk)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		if b.hasDependents(tk) {
			return fmt.Errorf("%w: task %q produced no candidate within the window", ErrUnsatisfiableDependency, tk.ID)
		}
		return nil
	}

	for _, cand := range candidates {
		if !depFloor.IsZero() && depFloor.After(cand.Start) {
			cand.Explain.Append("start %s raised to dependency floor %s",
				cand.Start.Format(time.RFC3339), depFloor.Format(time.RFC3339))
			cand.Start = depFloor
			cand.Finish = cand.Start.Add(tk.Duration)
		}

		if !b.scheduleCandidate(cand) {
			if b.hasDependents(tk) {
				return fmt.Errorf("%w: task %q could not be placed but has dependents", ErrUnsatisfiableDependency, tk.ID)
			}
			metrics.RecordDroppedTask()
			log.Debug().Str("task_id", tk.ID).Time("start", cand.Start).Msg("Dropping unplaceable candidate")
		}
	}
	return nil
}

// dependencyFloor returns the latest finish across the placed instances
// of every dependency, and whether all dependencies were placed.
func (b *builder) dependencyFloor(tk *task.Task) (time.Time, bool) {
	var floor time.Time
	for _, dep := range tk.DependsOn {
		found := false
		for _, inst := range b.placed {
			if inst.Task != dep {
				continue
			}
			found = true
			if inst.Finish.After(floor) {
				floor = inst.Finish
			}
		}
		if !found {
			return time.Time{}, false
		}
	}
	return floor, true
}

// candidates computes the earliest start and fans it out across the
// stagger offsets when the task runs in staggered parallel.
func (b *builder) candidates(tk *task.Task) ([]*Instance, error) {
	earliest, ok := b.earliestStart(tk)
	if !ok {
		return nil, nil
	}

	newInstance := func(start time.Time) *Instance {
		inst := &Instance{
			Task:    tk,
			Start:   start,
			Finish:  start.Add(tk.Duration),
			Explain: &Explanation{},
		}
		inst.Explain.Append("candidate for %q at %s", tk.ID, start.Format(time.RFC3339))
		return inst
	}

	if tk.Stagger == 0 || tk.Parallel <= 1 {
		return []*Instance{newInstance(earliest)}, nil
	}

	var out []*Instance
	for i := 0; i < tk.Parallel; i++ {
		start := earliest.Add(time.Duration(i) * tk.Stagger)
		if start.After(b.to) {
			break
		}
		if tk.OmitMatches(start) {
			continue
		}
		out = append(out, newInstance(start))
	}
	return out, nil
}

// earliestStart scans from the window start at minute resolution,
// honoring StrictOn: a span result jumps to the shifted instant, true
// stops at the current position, none and false advance one step. The
// scan gives up after 10000 steps or at the window end.
func (b *builder) earliestStart(tk *task.Task) (time.Time, bool) {
	pos := b.from
	for steps := 0; steps < earliestStartCap; steps++ {
		if !pos.Before(b.to) {
			return time.Time{}, false
		}
		r := tk.StrictOn(pos)
		if delta, ok := r.Span(); ok {
			return pos.Add(delta), true
		}
		if r.IsTrue() {
			return pos, true
		}
		pos = pos.Add(scanStep)
	}
	return time.Time{}, false
}

// scheduleCandidate iterates deadline, parallelism, and conflict
// resolution until the candidate is placed or rejected. Every transition
// appends an explanation line.
func (b *builder) scheduleCandidate(cand *Instance) bool {
	tk := cand.Task

	for {
		cand.Finish = cand.Start.Add(tk.Duration)

		if cand.Finish.After(b.to) {
			cand.Explain.Append("rejected: finish %s exceeds horizon %s",
				cand.Finish.Format(time.RFC3339), b.to.Format(time.RFC3339))
			return false
		}

		if deadline, ok := b.deadlineFor(tk, cand); ok && cand.Finish.After(deadline) {
			cand.Explain.Append("rejected: finish %s exceeds deadline %s",
				cand.Finish.Format(time.RFC3339), deadline.Format(time.RFC3339))
			return false
		}

		conflict := b.parallelismConflict(cand)
		if conflict == nil {
			cand.Explain.Append("placed at %s", cand.Start.Format(time.RFC3339))
			b.placed = append(b.placed, cand)
			return true
		}

		switch {
		case conflict.Task.Fixed && b.hasDependents(tk):
			// Dependency obligation trumps exclusion.
			cand.Explain.Append("accepted over fixed %q: dependents require this placement", conflict.Task.ID)
			b.placed = append(b.placed, cand)
			return true

		case conflict.Task.Fixed && tk.Fixed:
			cand.Explain.Append("rejected: fixed conflict with fixed %q", conflict.Task.ID)
			return false

		case conflict.Task.Fixed:
			cand.Explain.Append("moved past fixed %q to %s", conflict.Task.ID, conflict.Finish.Format(time.RFC3339))
			cand.Start = conflict.Finish

		case tk.Fixed:
			cand.Explain.Append("evicted %q: fixed placement takes precedence", conflict.Task.ID)
			b.remove(conflict)

		case tk.Priority > conflict.Task.Priority:
			cand.Explain.Append("evicted lower-priority %q", conflict.Task.ID)
			b.remove(conflict)

		case tk.Priority < conflict.Task.Priority:
			cand.Explain.Append("moved past higher-priority %q to %s", conflict.Task.ID, conflict.Finish.Format(time.RFC3339))
			cand.Start = conflict.Finish

		default:
			span := scanStep
			if d, ok := tk.Shift.Span(); ok && d > 0 {
				span = d
			}
			cand.Explain.Append("shifted %s past equal-priority %q", span, conflict.Task.ID)
			cand.Start = cand.Start.Add(span)
		}
	}
}

// deadlineFor resolves a concrete or pattern deadline against the
// candidate's start. An unreconcilable pattern deadline rejects the
// candidate by reporting a deadline equal to the start.
func (b *builder) deadlineFor(tk *task.Task, cand *Instance) (time.Time, bool) {
	if tk.Deadline == nil {
		return time.Time{}, false
	}
	if at, ok := tk.Deadline.Instant(); ok {
		return at, true
	}
	if p, ok := tk.Deadline.Pattern(); ok {
		at, err := p.Materialize(cand.Start)
		if err != nil {
			cand.Explain.Append("deadline pattern could not be materialized: %v", err)
			return cand.Start, true
		}
		return at, true
	}
	return time.Time{}, false
}

// parallelismConflict returns the first placed instance that makes the
// candidate exceed its parallelism quota, or nil when the candidate is
// acceptable. Flagless tasks share the synthetic default flag.
func (b *builder) parallelismConflict(cand *Instance) *Instance {
	tk := cand.Task
	for _, flag := range flagsOrDefault(tk) {
		count := 0
		var first *Instance
		for _, inst := range b.placed {
			if !instanceHasFlag(inst, flag) {
				continue
			}
			if !inst.overlaps(cand.Start, cand.Finish) {
				continue
			}
			count++
			if first == nil {
				first = inst
			}
		}
		if count >= tk.Parallel {
			return first
		}
	}
	return nil
}

func (b *builder) remove(inst *Instance) {
	for i, placed := range b.placed {
		if placed == inst {
			b.placed = append(b.placed[:i], b.placed[i+1:]...)
			return
		}
	}
}

func flagsOrDefault(tk *task.Task) []string {
	if len(tk.Flags) == 0 {
		return []string{defaultFlag}
	}
	return tk.Flags
}

func instanceHasFlag(inst *Instance, flag string) bool {
	if len(inst.Task.Flags) == 0 {
		return flag == defaultFlag
	}
	return inst.Task.HasFlag(flag)
}

// Package taskfile loads and saves the schema-versioned YAML task format.
package taskfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/watzon/virtualdate/internal/pattern"
	"github.com/watzon/virtualdate/internal/task"
)

// CurrentVersion is the schema version this package writes. Files with a
// higher version are rejected; a bare task sequence at the root is
// accepted for read-only compatibility with version 1 files.
const CurrentVersion = 2

// cronPrefix marks a due/omit entry given as a cron expression instead of
// a slot mapping.
const cronPrefix = "cron:"

// LoadFile reads and parses a task file.
func LoadFile(path string) ([]*task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	return Parse(data)
}

// Parse decodes the YAML document into tasks. Problems are accumulated and
// returned together as ValidationErrors; the returned tasks are only
// meaningful when the error is nil.
func Parse(data []byte) ([]*task.Task, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing task YAML: %w", err)
	}

	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]

	p := &parser{}

	var tasksNode *yaml.Node
	switch root.Kind {
	case yaml.MappingNode:
		tasksNode = p.parseHeader(root)
	case yaml.SequenceNode:
		// Legacy format: bare task sequence.
		tasksNode = root
	default:
		p.errorf(root, "document must be a mapping or a task sequence")
	}

	var tasks []*task.Task
	if tasksNode != nil {
		tasks = p.parseTasks(tasksNode)
	}

	p.resolveDependencies(tasks)

	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return tasks, nil
}

type parser struct {
	errs ValidationErrors

	// deferred depends_on references, resolved once every id is known
	refs []depRef
}

type depRef struct {
	task *task.Task
	id   string
	node *yaml.Node
}

func (p *parser) errorf(n *yaml.Node, format string, args ...any) {
	p.errs = append(p.errs, &ValidationError{
		Line:    n.Line,
		Column:  n.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

// parseHeader validates schema_version and returns the tasks sequence node.
func (p *parser) parseHeader(root *yaml.Node) *yaml.Node {
	var tasksNode *yaml.Node

	for i := 0; i < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		switch key.Value {
		case "schema_version":
			version, err := strconv.Atoi(value.Value)
			if err != nil {
				p.errorf(value, "schema_version must be an integer, got %q", value.Value)
				continue
			}
			if version > CurrentVersion {
				p.errorf(value, "schema_version %d is newer than supported version %d", version, CurrentVersion)
			}
		case "tasks":
			if value.Kind != yaml.SequenceNode && value.Tag != "!!null" {
				p.errorf(value, "tasks must be a sequence")
				continue
			}
			tasksNode = value
		default:
			p.errorf(key, "unknown key %q", key.Value)
		}
	}

	if tasksNode == nil || tasksNode.Tag == "!!null" {
		return nil
	}
	return tasksNode
}

func (p *parser) parseTasks(seq *yaml.Node) []*task.Task {
	tasks := make([]*task.Task, 0, len(seq.Content))
	seen := make(map[string]bool)

	for _, n := range seq.Content {
		if n.Kind != yaml.MappingNode {
			p.errorf(n, "task must be a mapping")
			continue
		}

		tk := p.parseTask(n)
		if tk == nil {
			continue
		}
		if seen[tk.ID] {
			p.errorf(n, "duplicate task id %q", tk.ID)
			continue
		}
		seen[tk.ID] = true
		tasks = append(tasks, tk)
	}

	return tasks
}

func (p *parser) parseTask(n *yaml.Node) *task.Task {
	tk := task.New("")

	for i := 0; i < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]

		switch key.Value {
		case "id":
			tk.ID = value.Value
		case "begin":
			tk.Begin = p.parseBound(value)
		case "end":
			tk.End = p.parseBound(value)
		case "deadline":
			tk.Deadline = p.parseBound(value)
		case "due":
			tk.Due = p.parsePatternList(value)
		case "omit":
			tk.Omit = p.parsePatternList(value)
		case "shift":
			tk.Shift = p.parsePolicy(value)
		case "on":
			tk.Override = p.parsePolicy(value)
		case "max_shift":
			tk.MaxShift = p.parseSeconds(value)
		case "max_shifts":
			tk.MaxShifts = p.parseInt(value)
		case "duration":
			tk.Duration = p.parseSeconds(value)
		case "stagger":
			tk.Stagger = p.parseSeconds(value)
		case "flags":
			tk.Flags = p.parseStrings(value)
		case "parallel":
			tk.Parallel = p.parseInt(value)
		case "priority":
			tk.Priority = p.parseInt(value)
		case "fixed":
			tk.Fixed = p.parseBool(value)
		case "depends_on":
			for _, ref := range value.Content {
				tk.DependsOnIDs = append(tk.DependsOnIDs, ref.Value)
				p.refs = append(p.refs, depRef{task: tk, id: ref.Value, node: ref})
			}
		default:
			p.errorf(key, "unknown task key %q", key.Value)
		}
	}

	if tk.ID == "" {
		p.errorf(n, "task id is required")
		return nil
	}
	if err := tk.Validate(); err != nil {
		p.errorf(n, "%v", err)
		return nil
	}

	return tk
}

// parsePatternList decodes a due/omit sequence. Each entry is a slot
// mapping or a cron expression string.
func (p *parser) parsePatternList(n *yaml.Node) []pattern.TimePattern {
	if n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		p.errorf(n, "expected a sequence of patterns")
		return nil
	}

	patterns := make([]pattern.TimePattern, 0, len(n.Content))
	for _, entry := range n.Content {
		if pt, ok := p.parsePattern(entry); ok {
			patterns = append(patterns, pt)
		}
	}
	return patterns
}

func (p *parser) parsePattern(n *yaml.Node) (pattern.TimePattern, bool) {
	switch n.Kind {
	case yaml.ScalarNode:
		expr, ok := strings.CutPrefix(n.Value, cronPrefix)
		if !ok {
			p.errorf(n, "pattern must be a slot mapping or a %q string", cronPrefix+"EXPR")
			return pattern.TimePattern{}, false
		}
		pt, err := pattern.FromCron(strings.TrimSpace(expr))
		if err != nil {
			p.errorf(n, "invalid cron expression: %v", err)
			return pattern.TimePattern{}, false
		}
		return pt, true
	case yaml.MappingNode:
		return p.parseSlotMapping(n)
	default:
		p.errorf(n, "pattern must be a slot mapping or a %q string", cronPrefix+"EXPR")
		return pattern.TimePattern{}, false
	}
}

func (p *parser) parseSlotMapping(n *yaml.Node) (pattern.TimePattern, bool) {
	var pt pattern.TimePattern
	ok := true

	for i := 0; i < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]

		if key.Value == "location" {
			loc, err := time.LoadLocation(value.Value)
			if err != nil {
				p.errorf(value, "unknown location %q", value.Value)
				ok = false
				continue
			}
			pt.Location = loc
			continue
		}

		slot := slotFor(&pt, key.Value)
		if slot == nil {
			p.errorf(key, "unknown pattern slot %q", key.Value)
			ok = false
			continue
		}

		field, err := pattern.ParseScalar(value.Value)
		if err != nil {
			p.errorf(value, "%v", err)
			ok = false
			continue
		}
		*slot = field
	}

	return pt, ok
}

func slotFor(pt *pattern.TimePattern, name string) *pattern.Field {
	switch name {
	case "year":
		return &pt.Year
	case "month":
		return &pt.Month
	case "day":
		return &pt.Day
	case "week":
		return &pt.Week
	case "day_of_week":
		return &pt.DayOfWeek
	case "day_of_year":
		return &pt.DayOfYear
	case "hour":
		return &pt.Hour
	case "minute":
		return &pt.Minute
	case "second":
		return &pt.Second
	case "millisecond":
		return &pt.Millisecond
	case "nanosecond":
		return &pt.Nanosecond
	}
	return nil
}

// parseBound decodes begin/end/deadline: an RFC 3339 string, a cron
// expression string, or a slot mapping.
func (p *parser) parseBound(n *yaml.Node) *task.Bound {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		if strings.HasPrefix(n.Value, cronPrefix) {
			if pt, ok := p.parsePattern(n); ok {
				return task.AtPattern(pt)
			}
			return nil
		}
		at, err := time.Parse(time.RFC3339, n.Value)
		if err != nil {
			p.errorf(n, "bound must be an RFC 3339 instant, a %q string, or a slot mapping", cronPrefix+"EXPR")
			return nil
		}
		return task.AtInstant(at)
	case yaml.MappingNode:
		if pt, ok := p.parseSlotMapping(n); ok {
			return task.AtPattern(pt)
		}
		return nil
	default:
		p.errorf(n, "bound must be an RFC 3339 instant, a %q string, or a slot mapping", cronPrefix+"EXPR")
		return nil
	}
}

// parsePolicy decodes shift/on: null, bool, or seconds.
func (p *parser) parsePolicy(n *yaml.Node) task.Policy {
	switch n.Tag {
	case "!!null":
		return task.UnsetPolicy()
	case "!!bool":
		return task.BoolPolicy(n.Value == "true")
	}
	if d := p.parseSeconds(n); d != 0 {
		return task.SpanPolicy(d)
	}
	return task.UnsetPolicy()
}

// parseSeconds decodes a duration given as integer seconds or as a Go
// duration string.
func (p *parser) parseSeconds(n *yaml.Node) time.Duration {
	if n.Tag == "!!null" {
		return 0
	}
	if secs, err := strconv.Atoi(n.Value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(n.Value); err == nil {
		return d
	}
	p.errorf(n, "expected seconds or a duration, got %q", n.Value)
	return 0
}

func (p *parser) parseInt(n *yaml.Node) int {
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		p.errorf(n, "expected an integer, got %q", n.Value)
		return 0
	}
	return v
}

func (p *parser) parseBool(n *yaml.Node) bool {
	if n.Tag != "!!bool" {
		p.errorf(n, "expected a bool, got %q", n.Value)
		return false
	}
	return n.Value == "true"
}

func (p *parser) parseStrings(n *yaml.Node) []string {
	if n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		p.errorf(n, "expected a sequence of strings")
		return nil
	}
	out := make([]string, 0, len(n.Content))
	for _, s := range n.Content {
		out = append(out, s.Value)
	}
	return out
}

// resolveDependencies rewires depends_on ids into task references once
// the whole file has been read.
func (p *parser) resolveDependencies(tasks []*task.Task) {
	byID := make(map[string]*task.Task, len(tasks))
	for _, tk := range tasks {
		byID[tk.ID] = tk
	}

	for _, ref := range p.refs {
		dep, ok := byID[ref.id]
		if !ok {
			p.errorf(ref.node, "unknown dependency id %q", ref.id)
			continue
		}
		ref.task.DependsOn = append(ref.task.DependsOn, dep)
	}
}

package taskfile

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/watzon/virtualdate/internal/pattern"
	"github.com/watzon/virtualdate/internal/task"
)

// SaveFile writes tasks to path in the current schema.
func SaveFile(path string, tasks []*task.Task) error {
	data, err := Marshal(tasks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing task file: %w", err)
	}
	return nil
}

// Marshal renders tasks as a schema-versioned YAML document. Predicate
// fields are not faithfully serializable and round-trip as always-true
// placeholders.
func Marshal(tasks []*task.Task) ([]byte, error) {
	doc := map[string]any{
		"schema_version": CurrentVersion,
		"tasks":          encodeTasks(tasks),
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling task file: %w", err)
	}
	return data, nil
}

func encodeTasks(tasks []*task.Task) []map[string]any {
	out := make([]map[string]any, 0, len(tasks))
	for _, tk := range tasks {
		out = append(out, encodeTask(tk))
	}
	return out
}

func encodeTask(tk *task.Task) map[string]any {
	m := map[string]any{"id": tk.ID}

	if tk.Begin != nil {
		m["begin"] = encodeBound(tk.ID, tk.Begin)
	}
	if tk.End != nil {
		m["end"] = encodeBound(tk.ID, tk.End)
	}
	if tk.Deadline != nil {
		m["deadline"] = encodeBound(tk.ID, tk.Deadline)
	}
	if len(tk.Due) > 0 {
		m["due"] = encodePatterns(tk.ID, tk.Due)
	}
	if len(tk.Omit) > 0 {
		m["omit"] = encodePatterns(tk.ID, tk.Omit)
	}
	if tk.Shift.IsSet() {
		m["shift"] = encodePolicy(tk.Shift)
	}
	if tk.Override.IsSet() {
		m["on"] = encodePolicy(tk.Override)
	}
	if tk.MaxShift != 0 {
		m["max_shift"] = int(tk.MaxShift / time.Second)
	}
	if tk.MaxShifts != task.DefaultMaxShifts {
		m["max_shifts"] = tk.MaxShifts
	}
	if tk.Duration != 0 {
		m["duration"] = int(tk.Duration / time.Second)
	}
	if tk.Stagger != 0 {
		m["stagger"] = int(tk.Stagger / time.Second)
	}
	if len(tk.Flags) > 0 {
		m["flags"] = tk.Flags
	}
	if tk.Parallel != 1 {
		m["parallel"] = tk.Parallel
	}
	if tk.Priority != 0 {
		m["priority"] = tk.Priority
	}
	if tk.Fixed {
		m["fixed"] = true
	}
	if ids := dependencyIDs(tk); len(ids) > 0 {
		m["depends_on"] = ids
	}

	return m
}

func dependencyIDs(tk *task.Task) []string {
	if len(tk.DependsOnIDs) > 0 {
		return tk.DependsOnIDs
	}
	ids := make([]string, 0, len(tk.DependsOn))
	for _, dep := range tk.DependsOn {
		ids = append(ids, dep.ID)
	}
	return ids
}

func encodePatterns(taskID string, patterns []pattern.TimePattern) []map[string]string {
	out := make([]map[string]string, 0, len(patterns))
	for i := range patterns {
		out = append(out, encodePattern(taskID, &patterns[i]))
	}
	return out
}

func encodePattern(taskID string, pt *pattern.TimePattern) map[string]string {
	m := make(map[string]string)

	for name, f := range map[string]pattern.Field{
		"year":        pt.Year,
		"month":       pt.Month,
		"day":         pt.Day,
		"week":        pt.Week,
		"day_of_week": pt.DayOfWeek,
		"day_of_year": pt.DayOfYear,
		"hour":        pt.Hour,
		"minute":      pt.Minute,
		"second":      pt.Second,
		"millisecond": pt.Millisecond,
		"nanosecond":  pt.Nanosecond,
	} {
		if !f.IsSet() {
			continue
		}
		if f.Kind() == pattern.KindPredicate {
			log.Warn().
				Str("task", taskID).
				Str("slot", name).
				Msg("Predicate slot is not serializable, writing always-true placeholder")
		}
		m[name] = f.String()
	}

	if pt.Location != nil && pt.Location != time.Local {
		m["location"] = pt.Location.String()
	}

	return m
}

func encodeBound(taskID string, b *task.Bound) any {
	if at, ok := b.Instant(); ok {
		return at.Format(time.RFC3339)
	}
	if pt, ok := b.Pattern(); ok {
		return encodePattern(taskID, pt)
	}
	return nil
}

func encodePolicy(p task.Policy) any {
	if b, ok := p.Bool(); ok {
		return b
	}
	if d, ok := p.Span(); ok {
		return int(d / time.Second)
	}
	return nil
}

// Package pattern implements the time-pattern matcher: atomic field
// patterns, the 11-slot TimePattern, the pattern scalar grammar, CEL
// predicates, and a cron-expression bridge.
package pattern

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidPattern  = errors.New("invalid pattern")
	ErrUnreconcilable  = errors.New("pattern cannot be reconciled to a concrete instant")
	ErrNotEnumerable   = errors.New("pattern is not enumerable")
	ErrNotMaterialized = errors.New("pattern is not materialized")
)

// FieldKind discriminates the inhabitants of a Field.
type FieldKind int

const (
	// KindUnset matches any value.
	KindUnset FieldKind = iota
	// KindBool matches iff the carried flag is true.
	KindBool
	// KindExact matches one integer; negative values wrap around the max.
	KindExact
	// KindList matches any of a list of integers.
	KindList
	// KindRange matches an integer range, inclusive or exclusive.
	KindRange
	// KindStepped matches lo, lo+step, lo+2*step, ... up to hi.
	KindStepped
	// KindPredicate delegates to a compiled predicate.
	KindPredicate
)

// Field is one slot of a TimePattern. Fields are immutable once
// constructed; the zero value is Unset.
type Field struct {
	kind      FieldKind
	flag      bool
	value     int
	values    []int
	lo, hi    int
	inclusive bool
	step      int
	pred      *Predicate
}

// Unset returns the match-anything field.
func Unset() Field { return Field{kind: KindUnset} }

// Bool returns a field that matches everything (true) or nothing (false).
func Bool(b bool) Field { return Field{kind: KindBool, flag: b} }

// Exact returns a field matching a single value. Negative values wrap
// around the slot maximum at match time.
func Exact(v int) Field { return Field{kind: KindExact, value: v} }

// List returns a field matching any of the given values.
func List(vs ...int) Field {
	out := make([]int, len(vs))
	copy(out, vs)
	return Field{kind: KindList, values: out}
}

// Range returns a field matching lo..hi inclusive.
func Range(lo, hi int) (Field, error) {
	return newRange(lo, hi, true)
}

// RangeExclusive returns a field matching lo...hi, excluding hi.
func RangeExclusive(lo, hi int) (Field, error) {
	return newRange(lo, hi, false)
}

func newRange(lo, hi int, inclusive bool) (Field, error) {
	if lo > hi {
		return Field{}, fmt.Errorf("%w: range %d..%d has lo > hi", ErrInvalidPattern, lo, hi)
	}
	return Field{kind: KindRange, lo: lo, hi: hi, inclusive: inclusive}, nil
}

// Stepped returns a field matching lo, lo+step, ... while <= hi.
func Stepped(lo, hi, step int) (Field, error) {
	if step <= 0 {
		return Field{}, fmt.Errorf("%w: step must be positive, got %d", ErrInvalidPattern, step)
	}
	if lo > hi {
		return Field{}, fmt.Errorf("%w: range %d..%d has lo > hi", ErrInvalidPattern, lo, hi)
	}
	return Field{kind: KindStepped, lo: lo, hi: hi, step: step}, nil
}

// WithPredicate returns a field that delegates matching to p.
func WithPredicate(p *Predicate) Field { return Field{kind: KindPredicate, pred: p} }

// Kind returns the field's discriminator.
func (f Field) Kind() FieldKind { return f.kind }

// IsSet reports whether the field constrains anything.
func (f Field) IsSet() bool { return f.kind != KindUnset }

// ExactValue returns the carried value for KindExact fields.
func (f Field) ExactValue() (int, bool) {
	if f.kind != KindExact {
		return 0, false
	}
	return f.value, true
}

// wrap resolves a possibly-negative index against the slot maximum. -1
// becomes max, -2 becomes max-1, and so on. Resolved lazily at match time
// because the max for day and day-of-year depends on the candidate.
func wrap(n, max int) int {
	if n < 0 && max > 0 {
		return max + n + 1
	}
	return n
}

// Match reports whether v satisfies the field. max is the slot's wrap
// anchor; pass 0 when no anchor is known, which disables negative-index
// wrapping. Predicates see the unwrapped value.
func (f Field) Match(v, max int) bool {
	switch f.kind {
	case KindUnset:
		return true
	case KindBool:
		return f.flag
	case KindExact:
		return wrap(f.value, max) == v
	case KindList:
		for _, n := range f.values {
			if wrap(n, max) == v {
				return true
			}
		}
		return false
	case KindRange:
		lo, hi := wrap(f.lo, max), wrap(f.hi, max)
		if f.inclusive {
			return v >= lo && v <= hi
		}
		return v >= lo && v < hi
	case KindStepped:
		lo, hi := wrap(f.lo, max), wrap(f.hi, max)
		if v < lo || v > hi {
			return false
		}
		return (v-lo)%f.step == 0
	case KindPredicate:
		return f.pred.Eval(v)
	default:
		return false
	}
}

// Expand enumerates the field as a sequence of Exact fields in ascending
// order. Unset, Bool, and Predicate fields cannot be enumerated and expand
// to themselves.
func (f Field) Expand() []Field {
	switch f.kind {
	case KindExact:
		return []Field{f}
	case KindList:
		sorted := make([]int, len(f.values))
		copy(sorted, f.values)
		sort.Ints(sorted)
		out := make([]Field, 0, len(sorted))
		for _, v := range sorted {
			out = append(out, Exact(v))
		}
		return out
	case KindRange:
		hi := f.hi
		if !f.inclusive {
			hi--
		}
		out := make([]Field, 0, hi-f.lo+1)
		for v := f.lo; v <= hi; v++ {
			out = append(out, Exact(v))
		}
		return out
	case KindStepped:
		var out []Field
		for v := f.lo; v <= f.hi; v += f.step {
			out = append(out, Exact(v))
		}
		return out
	default:
		return []Field{f}
	}
}

// Materialize picks a concrete value for the field. When def already
// matches it is kept; otherwise the smallest matching value (after wrap)
// is returned. Unset and Bool fields yield def. When strict is false the
// default is returned regardless of match.
func (f Field) Materialize(def, max int, strict bool) int {
	if !strict {
		return def
	}
	switch f.kind {
	case KindUnset, KindBool:
		return def
	}
	if f.Match(def, max) {
		return def
	}
	switch f.kind {
	case KindExact:
		return wrap(f.value, max)
	case KindList:
		best, found := 0, false
		for _, n := range f.values {
			w := wrap(n, max)
			if !found || w < best {
				best, found = w, true
			}
		}
		if found {
			return best
		}
		return def
	case KindRange, KindStepped:
		return wrap(f.lo, max)
	case KindPredicate:
		// Scan the slot domain for the smallest satisfying value.
		hi := max
		if hi <= 0 {
			hi = 9999
		}
		for v := 0; v <= hi; v++ {
			if f.pred.Eval(v) {
				return v
			}
		}
		return def
	}
	return def
}

// Equal reports structural equality. Predicates compare by expression.
func (f Field) Equal(other Field) bool {
	if f.kind != other.kind {
		return false
	}
	switch f.kind {
	case KindUnset:
		return true
	case KindBool:
		return f.flag == other.flag
	case KindExact:
		return f.value == other.value
	case KindList:
		if len(f.values) != len(other.values) {
			return false
		}
		for i := range f.values {
			if f.values[i] != other.values[i] {
				return false
			}
		}
		return true
	case KindRange:
		return f.lo == other.lo && f.hi == other.hi && f.inclusive == other.inclusive
	case KindStepped:
		return f.lo == other.lo && f.hi == other.hi && f.step == other.step
	case KindPredicate:
		return f.pred.Expr() == other.pred.Expr()
	}
	return false
}

// Package task implements scheduled items: the shift-search state machine,
// the due/omit matching rules, and the on/strict-on resolution contract.
package task

import (
	"time"

	"github.com/watzon/virtualdate/internal/pattern"
)

// PolicyKind discriminates the null/bool/duration variant used by the
// shift and on fields.
type PolicyKind int

const (
	// PolicyUnset is the null policy.
	PolicyUnset PolicyKind = iota
	// PolicyBool is a hard true/false.
	PolicyBool
	// PolicySpan carries a shift duration.
	PolicySpan
)

// Policy is a task's shift policy or on override: null, bool, or duration.
type Policy struct {
	kind PolicyKind
	flag bool
	span time.Duration
}

// UnsetPolicy returns the null policy.
func UnsetPolicy() Policy { return Policy{} }

// BoolPolicy returns a hard true/false policy.
func BoolPolicy(b bool) Policy { return Policy{kind: PolicyBool, flag: b} }

// SpanPolicy returns a duration policy.
func SpanPolicy(d time.Duration) Policy { return Policy{kind: PolicySpan, span: d} }

// Kind returns the policy's discriminator.
func (p Policy) Kind() PolicyKind { return p.kind }

// IsSet reports whether the policy is non-null.
func (p Policy) IsSet() bool { return p.kind != PolicyUnset }

// Bool returns the flag for bool policies.
func (p Policy) Bool() (bool, bool) {
	return p.flag, p.kind == PolicyBool
}

// Span returns the duration for span policies.
func (p Policy) Span() (time.Duration, bool) {
	return p.span, p.kind == PolicySpan
}

// OnKind discriminates the result of StrictOn.
type OnKind int

const (
	// OnNone means the task is not due at the queried instant.
	OnNone OnKind = iota
	// OnFalse means the task is due but must not occur (omitted, or the
	// shift search exhausted its bounds).
	OnFalse
	// OnTrue means the task occurs at the queried instant.
	OnTrue
	// OnSpan means the occurrence is shifted forward by a delta.
	OnSpan
)

// OnResult is the outcome of StrictOn: none, false, true, or a shift delta.
type OnResult struct {
	kind  OnKind
	delta time.Duration
}

// ResultNone is the not-due outcome.
var ResultNone = OnResult{kind: OnNone}

// ResultFalse is the due-but-unschedulable outcome.
var ResultFalse = OnResult{kind: OnFalse}

// ResultTrue is the occurs-here outcome.
var ResultTrue = OnResult{kind: OnTrue}

// ResultSpan wraps a forward shift delta.
func ResultSpan(d time.Duration) OnResult { return OnResult{kind: OnSpan, delta: d} }

// Kind returns the result's discriminator.
func (r OnResult) Kind() OnKind { return r.kind }

// IsNone reports the not-due outcome.
func (r OnResult) IsNone() bool { return r.kind == OnNone }

// IsTrue reports the occurs-here outcome.
func (r OnResult) IsTrue() bool { return r.kind == OnTrue }

// IsFalse reports the due-but-unschedulable outcome.
func (r OnResult) IsFalse() bool { return r.kind == OnFalse }

// Span returns the shift delta when the result carries one.
func (r OnResult) Span() (time.Duration, bool) {
	return r.delta, r.kind == OnSpan
}

// Bound is an absolute instant or a TimePattern, used for begin, end, and
// deadline. A pattern bound is a recurrence constraint, not an interval
// endpoint.
type Bound struct {
	at  *time.Time
	pat *pattern.TimePattern
}

// AtInstant returns a concrete bound.
func AtInstant(t time.Time) *Bound { return &Bound{at: &t} }

// AtPattern returns a pattern bound.
func AtPattern(p pattern.TimePattern) *Bound { return &Bound{pat: &p} }

// Instant returns the concrete instant when the bound is one.
func (b *Bound) Instant() (time.Time, bool) {
	if b.at == nil {
		return time.Time{}, false
	}
	return *b.at, true
}

// Pattern returns the time pattern when the bound is one.
func (b *Bound) Pattern() (*pattern.TimePattern, bool) {
	return b.pat, b.pat != nil
}

package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ParseScalar parses the pattern scalar grammar into a Field:
//
//	nil            any value
//	true / false   always on / always off
//	7              exact (negative wraps from the slot maximum)
//	1,15,-1        list
//	10..20         inclusive range
//	10...20        exclusive range
//	10..20/2       stepped range (either range form)
//	->v % 2 == 0   CEL predicate; a bare -> is an always-true placeholder
func ParseScalar(s string) (Field, error) {
	s = strings.TrimSpace(s)

	switch s {
	case "", "nil", "~":
		return Unset(), nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	if rest, ok := strings.CutPrefix(s, "->"); ok {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			log.Warn().Msg("Bare predicate sentinel in pattern scalar, treating as always-true")
			return Bool(true), nil
		}
		pred, err := CompilePredicate(rest)
		if err != nil {
			return Field{}, err
		}
		return WithPredicate(pred), nil
	}

	// Optional /S step suffix applies to a range body.
	body, stepPart, hasStep := strings.Cut(s, "/")

	var sep string
	switch {
	case strings.Contains(body, "..."):
		sep = "..."
	case strings.Contains(body, ".."):
		sep = ".."
	}

	if sep == "" {
		if hasStep {
			return Field{}, fmt.Errorf("%w: step suffix requires a range: %q", ErrInvalidPattern, s)
		}
		return parseIntOrList(s)
	}

	loStr, hiStr, _ := strings.Cut(body, sep)
	lo, err := strconv.Atoi(strings.TrimSpace(loStr))
	if err != nil {
		return Field{}, fmt.Errorf("%w: bad range start %q", ErrInvalidPattern, loStr)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(hiStr))
	if err != nil {
		return Field{}, fmt.Errorf("%w: bad range end %q", ErrInvalidPattern, hiStr)
	}

	if hasStep {
		step, err := strconv.Atoi(strings.TrimSpace(stepPart))
		if err != nil {
			return Field{}, fmt.Errorf("%w: bad step %q", ErrInvalidPattern, stepPart)
		}
		if sep == "..." {
			hi--
		}
		return Stepped(lo, hi, step)
	}

	if sep == "..." {
		return RangeExclusive(lo, hi)
	}
	return Range(lo, hi)
}

func parseIntOrList(s string) (Field, error) {
	if !strings.Contains(s, ",") {
		v, err := strconv.Atoi(s)
		if err != nil {
			return Field{}, fmt.Errorf("%w: %q is not a pattern scalar", ErrInvalidPattern, s)
		}
		return Exact(v), nil
	}

	parts := strings.Split(s, ",")
	vs := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Field{}, fmt.Errorf("%w: bad list element %q", ErrInvalidPattern, p)
		}
		vs = append(vs, v)
	}
	return List(vs...), nil
}

// String renders the field in pattern scalar form. Predicates are not
// faithfully serializable: function-backed predicates render as a bare
// sentinel, which parses back as always-true.
func (f Field) String() string {
	switch f.kind {
	case KindUnset:
		return "nil"
	case KindBool:
		return strconv.FormatBool(f.flag)
	case KindExact:
		return strconv.Itoa(f.value)
	case KindList:
		parts := make([]string, len(f.values))
		for i, v := range f.values {
			parts[i] = strconv.Itoa(v)
		}
		return strings.Join(parts, ",")
	case KindRange:
		sep := ".."
		if !f.inclusive {
			sep = "..."
		}
		return fmt.Sprintf("%d%s%d", f.lo, sep, f.hi)
	case KindStepped:
		return fmt.Sprintf("%d..%d/%d", f.lo, f.hi, f.step)
	case KindPredicate:
		return "->" + f.pred.Expr()
	}
	return ""
}

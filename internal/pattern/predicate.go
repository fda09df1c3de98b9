package pattern

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/rs/zerolog/log"
)

// Predicate is a compiled boolean test over a single slot value. The
// expression language is CEL with one int variable `v`; for example
// `v % 2 == 0` or `v > 10 && v < 20`. Predicates are opaque to the
// serializer: they round-trip through the `->` scalar sentinel.
type Predicate struct {
	expr string
	prog cel.Program
	fn   func(int) bool
}

var (
	predEnvOnce sync.Once
	predEnv     *cel.Env
	predEnvErr  error
)

func predicateEnv() (*cel.Env, error) {
	predEnvOnce.Do(func() {
		predEnv, predEnvErr = cel.NewEnv(
			cel.Variable("v", cel.IntType),
		)
	})
	return predEnv, predEnvErr
}

// CompilePredicate compiles a CEL expression into a Predicate. The
// expression must evaluate to a bool.
func CompilePredicate(expr string) (*Predicate, error) {
	env, err := predicateEnv()
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compiling predicate %q: %v", ErrInvalidPattern, expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: predicate %q must return bool, got %s", ErrInvalidPattern, expr, ast.OutputType())
	}

	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: building predicate program %q: %v", ErrInvalidPattern, expr, err)
	}

	return &Predicate{expr: expr, prog: prog}, nil
}

// PredicateFunc wraps a Go function as a predicate. Used for programmatic
// construction; serializes as a bare `->` sentinel.
func PredicateFunc(fn func(int) bool) *Predicate {
	return &Predicate{fn: fn}
}

// Expr returns the CEL source, or "" for function-backed predicates.
func (p *Predicate) Expr() string { return p.expr }

// Eval applies the predicate to the unwrapped slot value. Evaluation
// errors are treated as non-matches.
func (p *Predicate) Eval(v int) bool {
	if p.fn != nil {
		return p.fn(v)
	}
	out, _, err := p.prog.Eval(map[string]any{"v": int64(v)})
	if err != nil {
		log.Warn().Err(err).Str("expr", p.expr).Int("value", v).Msg("Predicate evaluation failed")
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

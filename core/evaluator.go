package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// EvaluatorNotFound occurs when an evaluator is requested by
	// name and the given map doesn't have it.
	EvaluatorNotFound = errors.New("evaluator not found")

	// ReadOnlyScope is returned by evaluators that can't (or
	// won't) evaluate actions.
	ReadOnlyScope = errors.New("evaluator only supports read-only expressions")
)

// Methods are callables exposed by name to actions.
//
// A method is usually a Go func.  Just how a method is called is up
// to the Evaluator.
type Methods map[string]interface{}

// Copy makes a shallow copy.
func (ms Methods) Copy() Methods {
	acc := make(Methods, len(ms))
	for name, m := range ms {
		acc[name] = m
	}
	return acc
}

// Scope is what an expression can see.
//
// Guards see a Scope with ReadOnly set, a copy of the Configuration,
// and the Event.  Actions see a working copy of the Configuration
// that they can change, and Output, which they can extend.  An
// Evaluator must leave its changes in the Scope when Eval returns.
type Scope struct {
	ReadOnly bool

	Configuration map[string]interface{}
	Event         map[string]interface{}

	// Output accumulates emitted events (as maps).
	Output []interface{}

	Environment map[string]interface{}
	Methods     Methods
}

// Evaluator compiles and evaluates expressions.
//
// The expression language is up to the implementation.  An Evaluator
// must not give expressions access to anything beyond the Scope.
type Evaluator interface {
	// Compile can make something that helps when Eval()ing the
	// expression later.  The result can be nil.
	Compile(ctx context.Context, expr string) (interface{}, error)

	// Eval evaluates the expression against the Scope.  The
	// result of a previous Compile() might be provided.
	Eval(ctx context.Context, expr string, compiled interface{}, scope *Scope) (interface{}, error)
}

// Evaluators maps names to Evaluators.
type Evaluators map[string]Evaluator

// Find returns the named Evaluator.
func (es Evaluators) Find(name string) (Evaluator, error) {
	e, have := es[name]
	if !have {
		return nil, fmt.Errorf("%w: %q", EvaluatorNotFound, name)
	}
	return e, nil
}

// NotBoolean occurs when a guard evaluates to something other than a
// boolean.
type NotBoolean struct {
	Value interface{}
}

func (e *NotBoolean) Error() string {
	return fmt.Sprintf("guard value %#v (%T) is not a boolean", e.Value, e.Value)
}

// EvalGuard is the boolean variant of Evaluator.Eval.
func EvalGuard(ctx context.Context, ev Evaluator, expr string, compiled interface{}, scope *Scope) (bool, error) {
	x, err := ev.Eval(ctx, expr, compiled, scope)
	if err != nil {
		return false, err
	}
	b, is := x.(bool)
	if !is {
		return false, &NotBoolean{x}
	}
	return b, nil
}

// programs caches compiled expressions.
//
// Not thread-safe; an Engine only touches its cache while holding its
// lock.
type programs struct {
	ev    Evaluator
	cache map[string]interface{}
}

func newPrograms(ev Evaluator) *programs {
	return &programs{
		ev:    ev,
		cache: make(map[string]interface{}, 32),
	}
}

// compile returns the compiled expression, compiling it at most once.
//
// Compilation errors are not cached so that a flaky Evaluator gets
// another chance.
func (ps *programs) compile(ctx context.Context, expr string) (interface{}, error) {
	if x, have := ps.cache[expr]; have {
		return x, nil
	}
	x, err := ps.ev.Compile(ctx, expr)
	if err != nil {
		return nil, err
	}
	ps.cache[expr] = x
	return x, nil
}

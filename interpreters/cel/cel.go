// Package cel provides a guard-only core.Evaluator backed by Google's
// cel-go.
//
// See https://github.com/google/cel-go and https://github.com/google/cel-spec.
package cel

import (
	"context"
	"fmt"
	"sync"

	"github.com/Comcast/eventengine/core"

	"github.com/google/cel-go/cel"
)

// InterruptCheckFrequency is how often (in comprehension iterations)
// a running program checks whether its context is done.
var InterruptCheckFrequency uint = 100

// Interpreter evaluates CEL expressions over the dynamic maps
// configuration, event, and environment.
//
// CEL has no side effects, so an Interpreter refuses to evaluate
// actions.
type Interpreter struct {
	sync.Mutex
	env *cel.Env
}

// NewInterpreter makes an Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) environment() (*cel.Env, error) {
	i.Lock()
	defer i.Unlock()
	if i.env != nil {
		return i.env, nil
	}
	dyn := cel.MapType(cel.StringType, cel.DynType)
	env, err := cel.NewEnv(
		cel.Variable("configuration", dyn),
		cel.Variable("event", dyn),
		cel.Variable("environment", dyn),
	)
	if err != nil {
		return nil, err
	}
	i.env = env
	return env, nil
}

// Compile parses and checks the expression and generates a
// cel.Program.
func (i *Interpreter) Compile(ctx context.Context, expr string) (interface{}, error) {
	env, err := i.environment()
	if err != nil {
		return nil, err
	}

	// Parse the expression to an AST
	p, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("parsing %q: %w", expr, iss.Err())
	}

	// Type-check the parsed AST against the declarations
	c, iss := env.Check(p)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("checking %q: %w", expr, iss.Err())
	}

	prg, err := env.Program(c, cel.InterruptCheckFrequency(InterruptCheckFrequency))
	if err != nil {
		return nil, fmt.Errorf("generating program for %q: %w", expr, err)
	}

	return prg, nil
}

// Eval runs the program.  The scope must be read-only.
func (i *Interpreter) Eval(ctx context.Context, expr string, compiled interface{}, scope *core.Scope) (interface{}, error) {
	if !scope.ReadOnly {
		return nil, core.ReadOnlyScope
	}

	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, expr); err != nil {
			return nil, err
		}
	}
	prg, is := compiled.(cel.Program)
	if !is {
		return nil, fmt.Errorf("CEL bad compilation: %T", compiled)
	}

	vars := map[string]interface{}{
		"configuration": orEmpty(scope.Configuration),
		"event":         orEmpty(scope.Event),
		"environment":   orEmpty(scope.Environment),
	}

	v, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		return nil, err
	}
	return v.Value(), nil
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

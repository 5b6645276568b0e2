package noop

import (
	"context"
	"log"

	"github.com/Comcast/eventengine/core"
)

// Interpreter is a core.Evaluator for which every guard is true and
// every action does nothing.
//
// Useful for checking an engine's wiring without its logic.
type Interpreter struct {
	// Silent, if false, will suppress warning log messages.
	Silent bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Compile(ctx context.Context, expr string) (interface{}, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter to compile %q", expr)
	}
	return nil, nil
}

// Eval returns true for a guard and nil for an action.  The scope is
// not touched.
func (i *Interpreter) Eval(ctx context.Context, expr string, compiled interface{}, scope *core.Scope) (interface{}, error) {
	if scope.ReadOnly {
		return true, nil
	}
	return nil, nil
}

package interpreters

import (
	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/interpreters/cel"
	"github.com/Comcast/eventengine/interpreters/goja"
	"github.com/Comcast/eventengine/interpreters/noop"
)

// Standard returns the standard Evaluators by name.
//
// "goja" and "ecmascript" are the same ECMAScript Evaluator.  "cel"
// is for guards only.
func Standard() core.Evaluators {
	es := goja.NewInterpreter()

	return core.Evaluators{
		"goja":       es,
		"ecmascript": es,
		"cel":        cel.NewInterpreter(),
		"noop":       noop.NewInterpreter(),
	}
}

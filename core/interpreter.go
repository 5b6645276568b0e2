package core

import (
	"context"
)

// Interpreter decides whether a Rule's guards hold.
type Interpreter struct {
	progs *programs
}

// NewInterpreter makes an Interpreter that uses the given Evaluator
// for guards.
func NewInterpreter(ev Evaluator) *Interpreter {
	return &Interpreter{
		progs: newPrograms(ev),
	}
}

// Apply reports whether every guard of the rule evaluates to true
// given the configuration and the event.
//
// Guards see copies of the configuration and event, so a guard can't
// change either.  Any guard that can't be evaluated results in a
// *GuardFault.  Evaluation stops at the first false guard.
func (i *Interpreter) Apply(ctx context.Context, r *Rule, c Configuration, e Event) (bool, error) {
	if len(r.Guards) == 0 {
		return true, nil
	}

	scope := &Scope{
		ReadOnly:      true,
		Configuration: copyMap(c),
		Event:         copyMap(e),
	}

	for _, g := range r.Guards {
		compiled, err := i.progs.compile(ctx, g)
		if err != nil {
			return false, &GuardFault{Rule: r, Guard: g, Err: err}
		}
		ok, err := EvalGuard(ctx, i.progs.ev, g, compiled, scope)
		if err != nil {
			return false, &GuardFault{Rule: r, Guard: g, Err: err}
		}
		if !ok {
			return false, nil
		}
	}

	return true, nil
}

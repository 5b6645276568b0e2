package core

// Faults during a Step.  A GuardFault only excludes its Rule.  An
// ActionFault aborts the Step.

import (
	"errors"
	"strconv"
)

// GuardFault occurs when a guard fails to compile, fails to
// evaluate, or yields something other than a boolean.
type GuardFault struct {
	Rule  *Rule
	Guard string
	Err   error
}

func (e *GuardFault) Error() string {
	return `guard "` + e.Guard + `" of rule ` + e.Rule.String() + `: ` + e.Err.Error()
}

func (e *GuardFault) Unwrap() error {
	return e.Err
}

// Phases of an ActionFault.
const (
	PhaseCompile = "compile"
	PhaseExec    = "exec"

	// PhaseResult is when the configuration or output that the
	// actions left behind isn't made of values.
	PhaseResult = "result"
)

// ActionFault occurs when an action fails.  The whole transformation
// is abandoned.
//
// Index and Action identify the action except in PhaseResult, when
// Index is -1 and Action is empty.
type ActionFault struct {
	Rule   *Rule
	Phase  string
	Index  int
	Action string
	Err    error
}

func (e *ActionFault) Error() string {
	var rule string
	if e.Rule != nil {
		rule = " of rule " + e.Rule.String()
	}
	if e.Phase == PhaseResult {
		return `result of actions` + rule + `: ` + e.Err.Error()
	}
	return `action ` + strconv.Itoa(e.Index) + ` ("` + e.Action + `")` + rule + `: ` + e.Err.Error()
}

func (e *ActionFault) Unwrap() error {
	return e.Err
}

// NotAnEvent occurs when something other than a mapping is offered
// as an event, including an action's output.
type NotAnEvent struct {
	X interface{}
}

func (e *NotAnEvent) Error() string {
	js := jsString(map[string]interface{}{"event": e.X})
	return "not a mapping: " + js
}

var (
	// ErrPipelineCycle occurs when attaching a pipeline would
	// make an Engine forward (eventually) to itself.
	ErrPipelineCycle = errors.New("pipeline cycle")

	// ErrPipelineOwned occurs when attaching a pipeline Engine
	// that is already the pipeline of another Engine.
	ErrPipelineOwned = errors.New("pipeline engine already has an upstream engine")
)

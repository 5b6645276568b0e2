/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"context"
	"errors"
)

var (
	// OutputInitialCap is the initial capacity for the output
	// accumulator given to actions.
	OutputInitialCap = 8
)

// Transformer executes actions.
type Transformer struct {
	progs *programs
}

// NewTransformer makes a Transformer that uses the given Evaluator for
// actions.
func NewTransformer(ev Evaluator) *Transformer {
	return &Transformer{
		progs: newPrograms(ev),
	}
}

// Transform runs the actions in order and returns the resulting
// Configuration and the emitted Events.
//
// The given configuration, event, and environment are not modified.
// Actions work on a copy of the configuration.  If any action fails,
// Transform returns an *ActionFault and nothing else.
func (t *Transformer) Transform(ctx context.Context, c Configuration, e Event, actions []string, env map[string]interface{}, methods Methods) (Configuration, []Event, error) {

	scope := &Scope{
		Configuration: copyMap(c),
		Event:         copyMap(e),
		Output:        make([]interface{}, 0, OutputInitialCap),
		Environment:   copyMap(env),
		Methods:       methods,
	}

	for i, a := range actions {
		compiled, err := t.progs.compile(ctx, a)
		if err != nil {
			return nil, nil, &ActionFault{Phase: PhaseCompile, Index: i, Action: a, Err: err}
		}
		if _, err = t.progs.ev.Eval(ctx, a, compiled, scope); err != nil {
			return nil, nil, &ActionFault{Phase: PhaseExec, Index: i, Action: a, Err: err}
		}
	}

	// The working copy might contain whatever the evaluator put
	// there, so bring it back into the value variant.
	m, err := NormalizeMap(scope.Configuration)
	if err != nil {
		return nil, nil, &ActionFault{Phase: PhaseResult, Index: -1, Err: err}
	}

	emitted := make([]Event, 0, len(scope.Output))
	for _, x := range scope.Output {
		y, err := Normalize(x)
		if err != nil {
			return nil, nil, &ActionFault{Phase: PhaseResult, Index: -1, Err: err}
		}
		em, is := y.(map[string]interface{})
		if !is {
			return nil, nil, &ActionFault{Phase: PhaseResult, Index: -1, Err: &NotAnEvent{x}}
		}
		emitted = append(emitted, Event(em))
	}

	return Configuration(m), emitted, nil
}

// IsActionFault reports whether the error is (or wraps) an
// *ActionFault.
func IsActionFault(err error) bool {
	var af *ActionFault
	return errors.As(err, &af)
}

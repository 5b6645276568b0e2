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

package sio

import (
	"context"
	"log"

	"github.com/Comcast/eventengine/core"
)

// Result represents all visible output from processing an input.
type Result struct {
	// Engine is the id of the engine that was given the event.
	Engine string `json:"engine"`

	// Event is the (normalized) input.
	Event core.Event `json:"event,omitempty"`

	// Consumed reports whether the engine consumed the event.
	Consumed bool `json:"consumed"`

	// Emitted are the output events that were drained from the
	// last engine in the pipeline.
	Emitted []core.Event `json:"emitted,omitempty"`

	// Configuration is the engine's configuration after the
	// step.
	Configuration core.Configuration `json:"configuration,omitempty"`

	// Step is the engine's report.
	Step *core.Step `json:"-"`

	Err string `json:"err,omitempty"`
}

// Tail returns the last engine in the pipeline that starts with e.
func Tail(e *core.Engine) *core.Engine {
	for {
		p := e.Pipeline()
		if p == nil {
			return e
		}
		e = p
	}
}

// Process gives the input to the engine.
//
// Output events accumulated at the end of the engine's pipeline (or
// at the engine itself when it has no pipeline) are drained into the
// Result.
func Process(ctx context.Context, e *core.Engine, x interface{}) *Result {
	r := &Result{
		Engine: e.Id,
	}

	y, err := core.Normalize(x)
	if err != nil {
		r.Err = err.Error()
		return r
	}
	m, is := y.(map[string]interface{})
	if !is {
		r.Err = (&core.NotAnEvent{X: x}).Error()
		return r
	}
	r.Event = core.Event(m)

	s, err := e.Step(ctx, r.Event)
	r.Step = s
	if err != nil {
		r.Err = err.Error()
	}
	if s != nil {
		r.Consumed = s.Consumed
	}
	r.Configuration = e.Configuration()
	r.Emitted = Tail(e).TakeOutputEvents()

	return r
}

// Run couples the engine to the Couplings.
//
// Each input is Processed, and the Result is sent to the Couplings.
// Run returns when the input is done or the context is.
func Run(ctx context.Context, e *core.Engine, c Couplings, verbose bool) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	in, out, done, err := c.IO(ctx)
	if err != nil {
		return err
	}

LOOP:
	for {
		select {
		case <-ctx.Done():
			break LOOP
		case <-done:
			break LOOP
		case x := <-in:
			if verbose {
				log.Printf("Run %s input %s", e.Id, JShort(x))
			}
			r := Process(ctx, e, x)
			if verbose && r.Err != "" {
				log.Printf("Run %s error %s", e.Id, r.Err)
			}
			select {
			case <-ctx.Done():
				break LOOP
			case out <- r:
			}
		}
	}

	select {
	case <-ctx.Done():
	case out <- nil:
	}

	return c.Stop(ctx)
}

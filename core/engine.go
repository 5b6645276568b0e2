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
	"sync"

	"github.com/Comcast/eventengine/util"
)

var (
	// OutputEventsInitialCap is the initial capacity of an
	// Engine's output event list.
	OutputEventsInitialCap = 16

	// pipelines serializes changes to pipeline links so that
	// cycle detection sees a consistent topology.
	pipelines sync.Mutex
)

// Step reports what happened when an Engine was given an Event.
type Step struct {
	// Engine is the id of the Engine that took the step.
	Engine string `json:"engine"`

	// Event is the event that was offered.
	Event Event `json:"event"`

	// Consumed is true when a rule fired and its actions
	// completed.
	Consumed bool `json:"consumed"`

	// Rule is the rule that fired (if any).
	Rule *Rule `json:"rule,omitempty"`

	// Matched is the number of rules whose guards held.
	Matched int `json:"matched"`

	// From is the Configuration before the step.
	From Configuration `json:"from,omitempty"`

	// To is the Configuration after the step, which is nil when
	// the event wasn't consumed.
	To Configuration `json:"to,omitempty"`

	// Emitted are the events that the rule's actions emitted.
	Emitted []Event `json:"emitted,omitempty"`

	// GuardFaults are the guards that couldn't be evaluated.
	// Their rules were excluded from the matches.
	GuardFaults []*GuardFault `json:"-"`

	// Forwarded are the steps taken by the pipeline Engine (if
	// any), one for each forwarded event.
	Forwarded []*Step `json:"forwarded,omitempty"`

	// Err is the ActionFault (if any) that aborted the step.
	Err error `json:"-"`
}

// Labels are names for an Engine's evaluators and comparator, which
// a loader records so that the Engine can be written back out.
type Labels struct {
	Guards     string `json:"guards,omitempty"`
	Actions    string `json:"actions,omitempty"`
	Comparator string `json:"comparator,omitempty"`
}

// StepHook is called after each Step, whether or not the event was
// consumed.  A hook must not call back into the Engine.
type StepHook func(s *Step)

// Engine is a labeled-transition automaton driven by Rules.
//
// The state of an Engine is its Configuration.  Given an Event, the
// Engine finds the Rules whose guards hold, lets its RuleResolver
// pick one, and runs that rule's actions against a copy of the
// Configuration.  If everything works, the copy becomes the new
// Configuration and emitted events are added to the output events.
//
// An Engine is safe for concurrent use.  Steps are serialized.
type Engine struct {
	// Id identifies the Engine.
	Id string

	// Doc is optional documentation (in Markdown).
	Doc string

	// Labels name the Engine's parts.  Set before use.
	Labels Labels

	mu sync.Mutex

	configuration Configuration
	rules         []*Rule
	resolver      RuleResolver
	comparator    EventComparator
	environment   map[string]interface{}
	methods       Methods
	output        []Event

	interpreter *Interpreter
	transformer *Transformer

	// pipeline is the downstream engine, if any, and upstream is
	// the engine for which this engine is the pipeline.  Both
	// are guarded by the pipelines lock (and pipeline by mu too).
	pipeline *Engine
	upstream *Engine

	hook StepHook
}

// NewEngine makes an Engine with an empty Configuration, no rules,
// the DefaultResolver, and the DefaultComparator.
//
// Guards are evaluated with the first Evaluator and actions with the
// second.  If actions is nil, guards is used for both.
func NewEngine(id string, guards, actions Evaluator) *Engine {
	if actions == nil {
		actions = guards
	}
	return &Engine{
		Id:            id,
		configuration: NewConfiguration(),
		rules:         make([]*Rule, 0, 8),
		resolver:      DefaultResolver{},
		comparator:    DefaultComparator,
		environment:   make(map[string]interface{}),
		methods:       make(Methods),
		output:        make([]Event, 0, OutputEventsInitialCap),
		interpreter:   NewInterpreter(guards),
		transformer:   NewTransformer(actions),
	}
}

// SetConfiguration replaces the Configuration.  The engine keeps a
// normalized copy.
func (e *Engine) SetConfiguration(c Configuration) error {
	m, err := NormalizeMap(c)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.configuration = Configuration(m)
	e.mu.Unlock()
	return nil
}

// Configuration returns a copy of the current Configuration.
func (e *Engine) Configuration() Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.configuration.Copy()
}

// SetRules replaces the rule collection.  Declared order is
// preserved; that's the order matches are given to the resolver.
func (e *Engine) SetRules(rules []*Rule) {
	e.mu.Lock()
	e.rules = copyRules(rules)
	e.mu.Unlock()
}

// AddRule appends a rule.
func (e *Engine) AddRule(r *Rule) {
	e.mu.Lock()
	e.rules = append(e.rules, r)
	e.mu.Unlock()
}

// Rules returns the rules (not copies) in declared order.
func (e *Engine) Rules() []*Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyRules(e.rules)
}

// SetResolver installs a RuleResolver.  A nil resolver means
// DefaultResolver.
func (e *Engine) SetResolver(r RuleResolver) {
	if r == nil {
		r = DefaultResolver{}
	}
	e.mu.Lock()
	e.resolver = r
	e.mu.Unlock()
}

// Resolver returns the current RuleResolver.
func (e *Engine) Resolver() RuleResolver {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolver
}

// SetComparator installs the EventComparator used to order output
// events.  A nil comparator means DefaultComparator.
func (e *Engine) SetComparator(cmp EventComparator) {
	if cmp == nil {
		cmp = DefaultComparator
	}
	e.mu.Lock()
	e.comparator = cmp
	e.mu.Unlock()
}

// SetEnvironment sets the shared environment that actions can read.
//
// The environment must not be changed while the Engine is in use.
func (e *Engine) SetEnvironment(env map[string]interface{}) error {
	m, err := NormalizeMap(env)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.environment = m
	e.mu.Unlock()
	return nil
}

// Environment returns a copy of the environment.
func (e *Engine) Environment() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyMap(e.environment)
}

// SetMethods sets the callables that actions can invoke.
func (e *Engine) SetMethods(ms Methods) {
	e.mu.Lock()
	e.methods = ms.Copy()
	e.mu.Unlock()
}

// SetHook installs a StepHook.  A nil hook removes the current one.
func (e *Engine) SetHook(h StepHook) {
	e.mu.Lock()
	e.hook = h
	e.mu.Unlock()
}

// OutputEvents returns a copy of the accumulated output events.
func (e *Engine) OutputEvents() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyEvents(e.output)
}

// ClearOutputEvents empties the output event list.
func (e *Engine) ClearOutputEvents() {
	e.mu.Lock()
	e.output = e.output[:0]
	e.mu.Unlock()
}

// TakeOutputEvents returns the accumulated output events and empties
// the list.
func (e *Engine) TakeOutputEvents() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc := e.output
	e.output = make([]Event, 0, OutputEventsInitialCap)
	return acc
}

// SetPipeline attaches a downstream Engine that will consume this
// Engine's output events.  A nil pipeline detaches the current one.
//
// An Engine can be the pipeline of at most one other Engine, and a
// pipeline can't lead back to the Engine.
func (e *Engine) SetPipeline(p *Engine) error {
	pipelines.Lock()
	defer pipelines.Unlock()

	if p != nil {
		if p.upstream != nil && p.upstream != e {
			return ErrPipelineOwned
		}
		for at := p; at != nil; at = at.pipeline {
			if at == e {
				return ErrPipelineCycle
			}
		}
	}

	e.mu.Lock()
	if e.pipeline != nil {
		e.pipeline.upstream = nil
	}
	e.pipeline = p
	e.mu.Unlock()

	if p != nil {
		p.upstream = e
	}

	return nil
}

// Pipeline returns the downstream Engine (if any).
func (e *Engine) Pipeline() *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline
}

// Consume offers the event to the Engine and reports whether the
// event was consumed.
//
// When Consume returns false, the Engine's Configuration and output
// events are exactly as they were.
func (e *Engine) Consume(ctx context.Context, ev Event) bool {
	s, err := e.Step(ctx, ev)
	if err != nil {
		util.Logf("engine %s: %s", e.Id, err)
		return false
	}
	return s.Consumed
}

// Step is the fundamental operation.  It's Consume with a report.
//
// The returned error is an *ActionFault (or an error from
// normalizing the event), in which case nothing changed.  Having no
// matching rule is not an error.
func (e *Engine) Step(ctx context.Context, ev Event) (*Step, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.step(ctx, ev)
	if e.hook != nil {
		e.hook(s)
	}
	return s, err
}

// step does the work.  The caller holds the lock.
func (e *Engine) step(ctx context.Context, ev Event) (*Step, error) {
	// The Step gets copies so that nobody can reach the engine's
	// state through it.
	s := &Step{
		Engine: e.Id,
		From:   e.configuration.Copy(),
	}

	m, err := NormalizeMap(ev)
	if err != nil {
		s.Event = ev
		s.Err = err
		return s, err
	}
	ev = Event(m)
	s.Event = ev

	// Find the matches in declared order.
	matches := make([]*Rule, 0, len(e.rules))
	for _, r := range e.rules {
		ok, err := e.interpreter.Apply(ctx, r, e.configuration, ev)
		if err != nil {
			if gf, is := err.(*GuardFault); is {
				s.GuardFaults = append(s.GuardFaults, gf)
			}
			util.Logf("engine %s: %s", e.Id, err)
			continue
		}
		if ok {
			matches = append(matches, r)
		}
	}
	s.Matched = len(matches)

	if len(matches) == 0 {
		return s, nil
	}

	r := e.resolver.Select(matches)
	s.Rule = r.Copy()

	c, emitted, err := e.transformer.Transform(ctx, e.configuration, ev, r.Actions, e.environment, e.methods)
	if err != nil {
		if af, is := err.(*ActionFault); is {
			af.Rule = s.Rule
		}
		s.Err = err
		return s, err
	}

	// Commit.  Nothing below can fail.
	e.configuration = c
	s.Consumed = true
	s.To = c.Copy()
	s.Emitted = copyEvents(emitted)

	if 0 < len(emitted) {
		e.output = append(e.output, emitted...)
		sortEvents(e.output, e.comparator)
	}

	if e.pipeline != nil {
		s.Forwarded = e.forward(ctx)
	}

	return s, nil
}

// forward gives each output event to the pipeline Engine and then
// clears the output events.
//
// What the pipeline does with an event is its business: an event
// that the pipeline doesn't consume (or that faults) is dropped.  The
// pipeline's Steps are returned for inspection.
func (e *Engine) forward(ctx context.Context) []*Step {
	out := e.output
	e.output = make([]Event, 0, OutputEventsInitialCap)

	acc := make([]*Step, 0, len(out))
	for _, x := range out {
		s, err := e.pipeline.Step(ctx, x)
		if err != nil {
			util.Logf("engine %s: pipeline %s faulted on %s: %s", e.Id, e.pipeline.Id, x, err)
		} else if !s.Consumed {
			util.Logf("engine %s: pipeline %s did not consume %s", e.Id, e.pipeline.Id, x)
		}
		acc = append(acc, s)
	}
	return acc
}

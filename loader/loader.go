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

// Package loader reads engine specifications and event lists written
// in YAML (or JSON).
//
// A spec looks like
//
//    identifier: toggle
//    configuration:
//      state: 1
//    rules:
//      - guards:
//          - configuration.state == 1
//          - event.symbol == 'a'
//        actions:
//          - configuration.state = 2
//
// "conditions" is accepted as another name for "guards".
package loader

import (
	"errors"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/interpreters"

	"github.com/google/uuid"
	"github.com/jsccast/yaml"
)

// DefaultEvaluator is the name of the evaluator used when a spec
// doesn't say.
var DefaultEvaluator = "goja"

// ErrEmptyRule is the RuleFault for a rules entry with nothing in it
// (such as "- ~").
var ErrEmptyRule = errors.New("empty rule")

// LoadFault wraps any problem with reading, parsing, or building.
//
// Whenever a LoadFault is returned, the other result is nil.
type LoadFault struct {
	// Source is a filename or some other hint.
	Source string
	Err    error
}

func (e *LoadFault) Error() string {
	if e.Source == "" {
		return "load: " + e.Err.Error()
	}
	return "load " + e.Source + ": " + e.Err.Error()
}

func (e *LoadFault) Unwrap() error {
	return e.Err
}

// RuleSpec is the external form of a core.Rule.
type RuleSpec struct {
	Id  string `json:"id,omitempty" yaml:"id,omitempty"`
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Guards core.GuardSet `json:"guards,omitempty" yaml:"guards,omitempty"`

	// Conditions are more guards.
	Conditions core.GuardSet `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	Actions    []string               `json:"actions,omitempty" yaml:"actions,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Rule makes a core.Rule.
func (s *RuleSpec) Rule() (*core.Rule, error) {
	guards := s.Guards.Copy()
	for _, g := range s.Conditions {
		guards = guards.Add(g)
	}

	r := &core.Rule{
		Id:      s.Id,
		Doc:     s.Doc,
		Guards:  guards,
		Actions: append([]string(nil), s.Actions...),
	}

	if s.Attributes != nil {
		attrs, err := core.NormalizeMap(s.Attributes)
		if err != nil {
			return nil, err
		}
		r.Attributes = attrs
	}

	return r, nil
}

// EngineSpec is the external form of a core.Engine.
type EngineSpec struct {
	Identifier string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Doc        string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Guards and Actions name the evaluators (see
	// interpreters.Standard).  Both default to DefaultEvaluator.
	Guards  string `json:"guards,omitempty" yaml:"guards,omitempty"`
	Actions string `json:"actions,omitempty" yaml:"actions,omitempty"`

	// Resolver names a core.RuleResolver (see
	// core.ResolverByName).
	Resolver string `json:"resolver,omitempty" yaml:"resolver,omitempty"`

	// Comparator names a core.EventComparator (see
	// core.ComparatorByName).
	Comparator string `json:"comparator,omitempty" yaml:"comparator,omitempty"`

	Rules         []*RuleSpec            `json:"rules,omitempty" yaml:"rules,omitempty"`
	Configuration map[string]interface{} `json:"configuration,omitempty" yaml:"configuration,omitempty"`
	Environment   map[string]interface{} `json:"environment,omitempty" yaml:"environment,omitempty"`

	// Pipeline is the spec for the downstream engine, if any.
	Pipeline *EngineSpec `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
}

// ParseEngine parses YAML (or JSON).
func ParseEngine(bs []byte) (*EngineSpec, error) {
	var s EngineSpec
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return nil, &LoadFault{Err: err}
	}
	return &s, nil
}

// ReadEngine reads and parses a file.
//
// The file can use '%inline("NAME")' (see Inline).
func ReadEngine(filename string) (*EngineSpec, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, &LoadFault{Source: filename, Err: err}
	}
	s, err := ParseEngine(bs)
	if err != nil {
		err.(*LoadFault).Source = filename
		return nil, err
	}
	return s, nil
}

// Build makes an Engine (and its pipeline, if any).
//
// When evs is nil, interpreters.Standard() is used.
func (s *EngineSpec) Build(evs core.Evaluators) (*core.Engine, error) {
	if evs == nil {
		evs = interpreters.Standard()
	}
	e, err := s.build(evs)
	if err != nil {
		return nil, &LoadFault{Source: s.Identifier, Err: err}
	}
	return e, nil
}

func orDefault(name string) string {
	if name == "" {
		return DefaultEvaluator
	}
	return name
}

func (s *EngineSpec) build(evs core.Evaluators) (*core.Engine, error) {
	id := s.Identifier
	if id == "" {
		id = uuid.New().String()
	}

	var (
		guardsName  = orDefault(s.Guards)
		actionsName = orDefault(s.Actions)
	)
	guards, err := evs.Find(guardsName)
	if err != nil {
		return nil, err
	}
	actions, err := evs.Find(actionsName)
	if err != nil {
		return nil, err
	}

	resolver, err := core.ResolverByName(s.Resolver)
	if err != nil {
		return nil, err
	}
	cmp, err := core.ComparatorByName(s.Comparator)
	if err != nil {
		return nil, err
	}

	rules := make([]*core.Rule, 0, len(s.Rules))
	for i, rs := range s.Rules {
		if rs == nil {
			return nil, &RuleFault{Index: i, Err: ErrEmptyRule}
		}
		r, err := rs.Rule()
		if err != nil {
			return nil, &RuleFault{Index: i, Err: err}
		}
		rules = append(rules, r)
	}

	e := core.NewEngine(id, guards, actions)
	e.Doc = s.Doc
	e.Labels = core.Labels{
		Guards:     guardsName,
		Actions:    actionsName,
		Comparator: s.Comparator,
	}
	e.SetResolver(resolver)
	e.SetComparator(cmp)
	e.SetRules(rules)

	if err = e.SetConfiguration(s.Configuration); err != nil {
		return nil, err
	}
	if err = e.SetEnvironment(s.Environment); err != nil {
		return nil, err
	}

	if s.Pipeline != nil {
		p, err := s.Pipeline.build(evs)
		if err != nil {
			return nil, err
		}
		if err = e.SetPipeline(p); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// RuleFault is a problem with a rule in a spec.
type RuleFault struct {
	Index int
	Err   error
}

func (e *RuleFault) Error() string {
	return "rule " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *RuleFault) Unwrap() error {
	return e.Err
}

// LoadEngine reads a spec and builds its Engine.
func LoadEngine(filename string, evs core.Evaluators) (*core.Engine, error) {
	s, err := ReadEngine(filename)
	if err != nil {
		return nil, err
	}
	e, err := s.Build(evs)
	if err != nil {
		err.(*LoadFault).Source = filename
		return nil, err
	}
	return e, nil
}

// FromEngine makes an EngineSpec (including the pipeline's) that will
// build an equivalent Engine.
func FromEngine(e *core.Engine) *EngineSpec {
	s := &EngineSpec{
		Identifier:    e.Id,
		Doc:           e.Doc,
		Guards:        e.Labels.Guards,
		Actions:       e.Labels.Actions,
		Resolver:      ResolverName(e.Resolver()),
		Comparator:    e.Labels.Comparator,
		Configuration: map[string]interface{}(e.Configuration()),
	}

	if env := e.Environment(); 0 < len(env) {
		s.Environment = env
	}

	for _, r := range e.Rules() {
		s.Rules = append(s.Rules, &RuleSpec{
			Id:         r.Id,
			Doc:        r.Doc,
			Guards:     r.Guards.Copy(),
			Actions:    append([]string(nil), r.Actions...),
			Attributes: r.Attributes,
		})
	}

	if p := e.Pipeline(); p != nil {
		s.Pipeline = FromEngine(p)
	}

	return s
}

// ResolverName returns the name that core.ResolverByName understands
// for the given resolver.  Resolvers without names get "".
func ResolverName(r core.RuleResolver) string {
	switch vv := r.(type) {
	case core.SpecificityResolver:
		return "specificity"
	case *core.PriorityResolver:
		if vv.Attribute == "" || vv.Attribute == core.DefaultPriorityAttribute {
			return "priority"
		}
		return "priority:" + vv.Attribute
	}
	return ""
}

// MarshalEngine renders the spec as YAML.
func MarshalEngine(s *EngineSpec) ([]byte, error) {
	return yaml.Marshal(s)
}

// ParseEvents parses a YAML (or JSON) list of events.  Every element
// must be a mapping.
func ParseEvents(bs []byte) ([]core.Event, error) {
	var xs []interface{}
	if err := yaml.Unmarshal(bs, &xs); err != nil {
		return nil, &LoadFault{Err: err}
	}

	acc := make([]core.Event, 0, len(xs))
	for i, x := range xs {
		y, err := core.Normalize(x)
		if err != nil {
			return nil, &LoadFault{Err: &EventFault{Index: i, Err: err}}
		}
		m, is := y.(map[string]interface{})
		if !is {
			return nil, &LoadFault{Err: &EventFault{Index: i, Err: &core.NotAnEvent{X: x}}}
		}
		acc = append(acc, core.Event(m))
	}

	return acc, nil
}

// ParseEvent parses a single event.
func ParseEvent(s string) (core.Event, error) {
	var x interface{}
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(s)), &x); err != nil {
		return nil, &LoadFault{Err: err}
	}
	y, err := core.Normalize(x)
	if err != nil {
		return nil, &LoadFault{Err: err}
	}
	m, is := y.(map[string]interface{})
	if !is {
		return nil, &LoadFault{Err: &core.NotAnEvent{X: x}}
	}
	return core.Event(m), nil
}

// ReadEvents reads and parses a file of events.
func ReadEvents(filename string) ([]core.Event, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, &LoadFault{Source: filename, Err: err}
	}
	es, err := ParseEvents(bs)
	if err != nil {
		err.(*LoadFault).Source = filename
		return nil, err
	}
	return es, nil
}

// EventFault is a problem with an element of an event list.
type EventFault struct {
	Index int
	Err   error
}

func (e *EventFault) Error() string {
	return "event " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *EventFault) Unwrap() error {
	return e.Err
}

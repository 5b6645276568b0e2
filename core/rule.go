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
	"encoding/json"
	"sort"
)

// GuardSet is a set of guard expressions.
//
// The guards of a Rule form a conjunction, so their order doesn't
// matter.  A GuardSet is kept sorted and without duplicates so that
// two Rules declared with the same guards in different orders are
// equal.
type GuardSet []string

// NewGuardSet makes a GuardSet from the given guards.
func NewGuardSet(guards ...string) GuardSet {
	var gs GuardSet
	for _, g := range guards {
		gs = gs.Add(g)
	}
	return gs
}

// Add returns the set with the guard added.
//
// Like append, Add can reuse the receiver's storage.
func (gs GuardSet) Add(guard string) GuardSet {
	i := sort.SearchStrings(gs, guard)
	if i < len(gs) && gs[i] == guard {
		return gs
	}
	gs = append(gs, "")
	copy(gs[i+1:], gs[i:])
	gs[i] = guard
	return gs
}

// Remove returns the set without the guard.  Modifies the receiver's
// storage.
func (gs GuardSet) Remove(guard string) GuardSet {
	i := sort.SearchStrings(gs, guard)
	if i < len(gs) && gs[i] == guard {
		return append(gs[:i], gs[i+1:]...)
	}
	return gs
}

// Contains reports whether the guard is in the set.
func (gs GuardSet) Contains(guard string) bool {
	i := sort.SearchStrings(gs, guard)
	return i < len(gs) && gs[i] == guard
}

// Equal compares two sets.
func (gs GuardSet) Equal(other GuardSet) bool {
	if len(gs) != len(other) {
		return false
	}
	for i := range gs {
		if gs[i] != other[i] {
			return false
		}
	}
	return true
}

// Copy makes a copy.
func (gs GuardSet) Copy() GuardSet {
	if gs == nil {
		return nil
	}
	acc := make(GuardSet, len(gs))
	copy(acc, gs)
	return acc
}

// UnmarshalJSON accepts a JSON array of strings in any order.
func (gs *GuardSet) UnmarshalJSON(bs []byte) error {
	var ss []string
	if err := json.Unmarshal(bs, &ss); err != nil {
		return err
	}
	*gs = NewGuardSet(ss...)
	return nil
}

// UnmarshalYAML accepts a YAML sequence of strings in any order.
func (gs *GuardSet) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ss []string
	if err := unmarshal(&ss); err != nil {
		return err
	}
	*gs = NewGuardSet(ss...)
	return nil
}

// Rule is a guarded production.
//
// When every guard holds for the current Configuration and a pending
// Event, the Rule can fire.  Firing runs the Actions in order.
type Rule struct {
	// Id is an optional name for the rule.  Just for people.
	Id string `json:"id,omitempty" yaml:"id,omitempty"`

	// Doc is optional documentation (in Markdown).
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Guards is the conjunction of guard expressions.  No guards
	// means the rule always matches.
	Guards GuardSet `json:"guards,omitempty" yaml:"guards,omitempty"`

	// Actions are executed in this order.  No actions means the
	// rule is a no-op transition.
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`

	// Attributes is optional metadata (e.g. "priority"), which
	// resolvers can consult.
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// NewRule makes a Rule with the given guards and actions.
func NewRule(guards []string, actions []string) *Rule {
	return &Rule{
		Guards:  NewGuardSet(guards...),
		Actions: append([]string(nil), actions...),
	}
}

// Copy makes a deep copy of the Rule.
func (r *Rule) Copy() *Rule {
	if r == nil {
		return nil
	}
	var as []string
	if r.Actions != nil {
		as = make([]string, len(r.Actions))
		copy(as, r.Actions)
	}
	var attrs map[string]interface{}
	if r.Attributes != nil {
		attrs = copyMap(r.Attributes)
	}
	return &Rule{
		Id:         r.Id,
		Doc:        r.Doc,
		Guards:     r.Guards.Copy(),
		Actions:    as,
		Attributes: attrs,
	}
}

// Equal compares guards as sets, actions as sequences, and attributes
// by content.  Id and Doc are ignored.
func (r *Rule) Equal(other *Rule) bool {
	if r == nil || other == nil {
		return r == other
	}
	if !r.Guards.Equal(other.Guards) {
		return false
	}
	if len(r.Actions) != len(other.Actions) {
		return false
	}
	for i := range r.Actions {
		if r.Actions[i] != other.Actions[i] {
			return false
		}
	}
	return mapEqual(r.Attributes, other.Attributes)
}

// Attribute returns the named attribute if present.
func (r *Rule) Attribute(name string) (interface{}, bool) {
	if r.Attributes == nil {
		return nil, false
	}
	x, have := r.Attributes[name]
	return x, have
}

func (r *Rule) String() string {
	if r.Id != "" {
		return r.Id
	}
	js, err := json.Marshal(r)
	if err != nil {
		return "<rule>"
	}
	return string(js)
}

// copyRules copies the list, not the rules.  Rules are not modified
// once given to an Engine.
func copyRules(rs []*Rule) []*Rule {
	acc := make([]*Rule, len(rs))
	copy(acc, rs)
	return acc
}

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
	"fmt"
	"sort"
	"strings"
)

// DefaultPriorityAttribute is the Rule (or Event) attribute that the
// priority policies consult when not told otherwise.
var DefaultPriorityAttribute = "priority"

// RuleResolver picks one Rule among several that match.
//
// Select is given a non-empty slice in the Engine's declared order.
// A RuleResolver should be a pure function.
type RuleResolver interface {
	Select(matches []*Rule) *Rule
}

// ResolverFunc makes a func into a RuleResolver.
type ResolverFunc func(matches []*Rule) *Rule

func (f ResolverFunc) Select(matches []*Rule) *Rule {
	return f(matches)
}

func (f ResolverFunc) String() string {
	return "func"
}

// DefaultResolver picks the first match.
//
// Since matches are given in declared order, that's the first
// declared rule that matches.  Callers that want something smarter
// should install another RuleResolver.
type DefaultResolver struct{}

func (r DefaultResolver) Select(matches []*Rule) *Rule {
	return matches[0]
}

func (r DefaultResolver) String() string {
	return "default (first match)"
}

// PriorityResolver picks the match with the largest numeric
// Attribute.  Rules without the attribute have priority zero.  Ties
// go to the earliest declared rule.
type PriorityResolver struct {
	Attribute string
}

func (r *PriorityResolver) attribute() string {
	if r == nil || r.Attribute == "" {
		return DefaultPriorityAttribute
	}
	return r.Attribute
}

func (r *PriorityResolver) Select(matches []*Rule) *Rule {
	attr := r.attribute()
	var (
		best     = matches[0]
		bestPrio = rulePriority(best, attr)
	)
	for _, m := range matches[1:] {
		if p := rulePriority(m, attr); bestPrio < p {
			best, bestPrio = m, p
		}
	}
	return best
}

func (r *PriorityResolver) String() string {
	return "priority (" + r.attribute() + ")"
}

func rulePriority(r *Rule, attr string) float64 {
	x, have := r.Attribute(attr)
	if !have {
		return 0
	}
	f, _ := number(x)
	return f
}

// SpecificityResolver picks the match with the most guards.  Ties go
// to the earliest declared rule.
type SpecificityResolver struct{}

func (r SpecificityResolver) Select(matches []*Rule) *Rule {
	best := matches[0]
	for _, m := range matches[1:] {
		if len(best.Guards) < len(m.Guards) {
			best = m
		}
	}
	return best
}

func (r SpecificityResolver) String() string {
	return "specificity (most guards)"
}

// ResolverByName returns a RuleResolver given a name: "default",
// "specificity", "priority", or "priority:ATTR".
func ResolverByName(name string) (RuleResolver, error) {
	switch {
	case name == "" || name == "default":
		return DefaultResolver{}, nil
	case name == "specificity":
		return SpecificityResolver{}, nil
	case name == "priority":
		return &PriorityResolver{}, nil
	case strings.HasPrefix(name, "priority:"):
		return &PriorityResolver{Attribute: name[len("priority:"):]}, nil
	}
	return nil, fmt.Errorf("unknown resolver %q", name)
}

// EventComparator orders output events.  It returns a negative number
// when a comes before b, a positive number when b comes before a,
// and zero when they have the same priority.
type EventComparator func(a, b Event) int

// DefaultComparator considers all events to have the same priority,
// so output events stay in emission order.
func DefaultComparator(a, b Event) int {
	return 0
}

// PriorityComparator orders events by ascending numeric attr.  Events
// without the attribute have priority zero.
func PriorityComparator(attr string) EventComparator {
	if attr == "" {
		attr = DefaultPriorityAttribute
	}
	return func(a, b Event) int {
		x, _ := number(a[attr])
		y, _ := number(b[attr])
		switch {
		case x < y:
			return -1
		case y < x:
			return 1
		}
		return 0
	}
}

// ComparatorByName returns an EventComparator given a name:
// "default", "priority", or "priority:ATTR".
func ComparatorByName(name string) (EventComparator, error) {
	switch {
	case name == "" || name == "default":
		return DefaultComparator, nil
	case name == "priority":
		return PriorityComparator(""), nil
	case strings.HasPrefix(name, "priority:"):
		return PriorityComparator(name[len("priority:"):]), nil
	}
	return nil, fmt.Errorf("unknown comparator %q", name)
}

// sortEvents sorts in place.  Equal events keep their relative order.
func sortEvents(es []Event, cmp EventComparator) {
	if cmp == nil {
		return
	}
	sort.SliceStable(es, func(i, j int) bool {
		return cmp(es[i], es[j]) < 0
	})
}

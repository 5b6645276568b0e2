/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package tools

import (
	"sort"
	"strconv"

	"github.com/Comcast/eventengine/core"
)

// EngineAnalysis is a static summary of an Engine's rules.
//
// Nothing is evaluated.  Use it to find rules that can never be
// chosen or that are probably mistakes.
type EngineAnalysis struct {
	Engine string

	Rules   int
	Guards  int
	Actions int

	// Unguarded rules always match.
	Unguarded []string

	// Noops are rules without actions.
	Noops []string

	// Duplicates are rules that are Equal to an earlier rule.
	Duplicates []string

	// DuplicateIds are ids used by more than one rule.
	DuplicateIds []string

	// Shadowed are rules that follow an unguarded rule.  With the
	// default resolver, they are never chosen.
	Shadowed []string

	Evaluators []string

	// Pipeline is the analysis of the downstream engine.
	Pipeline *EngineAnalysis
}

// Analyze summarizes the engine and its pipeline.
func Analyze(e *core.Engine) *EngineAnalysis {
	rules := e.Rules()

	a := &EngineAnalysis{
		Engine: e.Id,
		Rules:  len(rules),
	}

	var (
		ids        = make(map[string]int, len(rules))
		evaluators = make(map[string]bool)
		unguarded  = false
	)

	for _, name := range []string{e.Labels.Guards, e.Labels.Actions} {
		if name != "" {
			evaluators[name] = true
		}
	}

	_, defaultResolver := e.Resolver().(core.DefaultResolver)

	for i, r := range rules {
		name := ruleName(i, r)
		a.Guards += len(r.Guards)
		a.Actions += len(r.Actions)

		if defaultResolver && unguarded {
			a.Shadowed = append(a.Shadowed, name)
		}
		if len(r.Guards) == 0 {
			a.Unguarded = append(a.Unguarded, name)
			unguarded = true
		}
		if len(r.Actions) == 0 {
			a.Noops = append(a.Noops, name)
		}
		for _, earlier := range rules[:i] {
			if r.Equal(earlier) {
				a.Duplicates = append(a.Duplicates, name)
				break
			}
		}
		if r.Id != "" {
			ids[r.Id]++
		}
	}

	for id, n := range ids {
		if 1 < n {
			a.DuplicateIds = append(a.DuplicateIds, id)
		}
	}
	sort.Strings(a.DuplicateIds)
	a.Evaluators = keysToStringSlice(evaluators, "default")

	if p := e.Pipeline(); p != nil {
		a.Pipeline = Analyze(p)
	}

	return a
}

// Warnings lists the findings that are probably mistakes.
func (a *EngineAnalysis) Warnings() []string {
	var acc []string
	add := func(what string, names []string) {
		for _, name := range names {
			acc = append(acc, a.Engine+": "+what+" "+name)
		}
	}
	add("duplicate rule", a.Duplicates)
	add("duplicate id", a.DuplicateIds)
	add("shadowed rule", a.Shadowed)
	if a.Pipeline != nil {
		acc = append(acc, a.Pipeline.Warnings()...)
	}
	return acc
}

// ruleName is the rule's id or its position.
func ruleName(i int, r *core.Rule) string {
	if r.Id != "" {
		return r.Id
	}
	return "#" + strconv.Itoa(i)
}

// keysToStringSlice returns the sorted keys or the default value if
// there are none.
func keysToStringSlice(m map[string]bool, defaultValue ...string) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)

	if len(list) == 0 && len(defaultValue) > 0 {
		return []string{defaultValue[0]}
	}

	return list
}

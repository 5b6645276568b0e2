/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package core provides the transition kernel for rule-driven event
// engines.
//
// The primary type is Engine, and the primary method is Step (or
// Consume, which is Step without the report).  An Engine has a
// Configuration, which is just a map of attributes, and a collection
// of Rules.  A Rule has a set of guards and a sequence of actions.
//
// When an Engine is given an Event, it evaluates the guards of every
// Rule against the Configuration and the Event.  A Rule matches when
// all of its guards are true.  If more than one Rule matches, a
// RuleResolver picks one.  The actions of that Rule then run, in
// order, against a copy of the Configuration.  The actions can change
// that copy and emit events.  When the actions are done, the copy
// becomes the Engine's Configuration, and the emitted events are
// added to the Engine's output events, which an EventComparator keeps
// in order.
//
// Either all of that happens or none of it does.  If an action fails,
// the Engine's Configuration and output events are unchanged.
//
// An Engine can have a pipeline, which is another Engine that
// consumes the first Engine's output events.
//
// Guards and actions are expressions in a language provided by an
// Evaluator.  See the interpreters directory for some Evaluators.  A
// FuncEvaluator lets you write guards and actions in Go.
package core

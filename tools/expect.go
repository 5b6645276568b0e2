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
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/loader"

	"github.com/jsccast/yaml"
)

// Expectation is an event to give to the engine and what should
// happen.
type Expectation struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Event map[string]interface{} `json:"event" yaml:"event"`

	// Consumed is what Consume should return.
	Consumed bool `json:"consumed" yaml:"consumed"`

	// Configuration, if not nil, must be a subset of the engine's
	// configuration after the step.
	Configuration map[string]interface{} `json:"configuration,omitempty" yaml:"configuration,omitempty"`

	// Emitted is a set (not a list) of events that must appear
	// at the end of the pipeline.  Each is a subset match.
	Emitted []map[string]interface{} `json:"emitted,omitempty" yaml:"emitted,omitempty"`
}

// Session is an engine and a sequence of Expectations.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Engine is the filename of the engine spec.  A relative
	// filename is relative to the session's file.
	Engine string `json:"engine" yaml:"engine"`

	Steps []Expectation `json:"steps" yaml:"steps"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`

	dir string
}

// Mismatch reports the first expectation that wasn't met.
type Mismatch struct {
	// Step is the index of the Expectation.
	Step int

	// What is "consumed", "configuration", or "emitted".
	What string

	Want, Got interface{}
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("step %d: %s: wanted %s, got %s", m.Step, m.What, js(m.Want), js(m.Got))
}

// ReadSession reads a Session (YAML or JSON).
func ReadSession(filename string) (*Session, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var s Session
	if err = yaml.Unmarshal(bs, &s); err != nil {
		return nil, fmt.Errorf("session %s: %w", filename, err)
	}
	s.dir = filepath.Dir(filename)
	return &s, nil
}

// LoadEngine loads the session's engine.
func (s *Session) LoadEngine(evs core.Evaluators) (*core.Engine, error) {
	filename := s.Engine
	if !filepath.IsAbs(filename) && s.dir != "" {
		filename = filepath.Join(s.dir, filename)
	}
	return loader.LoadEngine(filename, evs)
}

// Run gives each Expectation's event to the engine and checks the
// results.  The returned rows cover the steps that were taken.
//
// The first unmet expectation results in a *Mismatch.
func (s *Session) Run(ctx context.Context, e *core.Engine) ([]TableRow, error) {
	rows := make([]TableRow, 0, len(s.Steps))
	tail := e
	for p := e.Pipeline(); p != nil; p = p.Pipeline() {
		tail = p
	}

	for i, x := range s.Steps {
		if s.Verbose {
			log.Printf("session step %d %s", i, js(x.Event))
		}

		ev, err := core.NormalizeMap(x.Event)
		if err != nil {
			return rows, fmt.Errorf("step %d: %w", i, err)
		}

		consumed := e.Consume(ctx, core.Event(ev))
		rows = append(rows, TableRow{Event: core.Event(ev), Consumed: consumed})
		emitted := tail.TakeOutputEvents()

		if consumed != x.Consumed {
			return rows, &Mismatch{Step: i, What: "consumed", Want: x.Consumed, Got: consumed}
		}

		if x.Configuration != nil {
			c := e.Configuration()
			if !Subset(x.Configuration, map[string]interface{}(c)) {
				return rows, &Mismatch{Step: i, What: "configuration", Want: x.Configuration, Got: c}
			}
		}

	EMITTED:
		for _, want := range x.Emitted {
			for _, got := range emitted {
				if Subset(want, map[string]interface{}(got)) {
					continue EMITTED
				}
			}
			return rows, &Mismatch{Step: i, What: "emitted", Want: want, Got: emitted}
		}
	}

	return rows, nil
}

// Subset reports whether want is contained in got.
//
// Maps match when every property of want matches that property in
// got.  Arrays must have the same length and match elementwise.
// Other values must be equal (see core.ValueEqual).
func Subset(want, got interface{}) bool {
	switch vv := want.(type) {
	case map[string]interface{}:
		m, is := got.(map[string]interface{})
		if !is {
			if e, is := got.(core.Event); is {
				m = e
			} else if c, is := got.(core.Configuration); is {
				m = c
			} else {
				return false
			}
		}
		for k, v := range vv {
			x, have := m[k]
			if !have || !Subset(v, x) {
				return false
			}
		}
		return true
	case []interface{}:
		xs, is := got.([]interface{})
		if !is || len(xs) != len(vv) {
			return false
		}
		for i := range vv {
			if !Subset(vv[i], xs[i]) {
				return false
			}
		}
		return true
	}
	return core.ValueEqual(want, got)
}

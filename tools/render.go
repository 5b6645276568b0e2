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

// Package tools renders engines (text, YAML, HTML, Mermaid, dot) and
// runs expectation sessions against them.
package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/loader"

	"gopkg.in/yaml.v2"
)

// TableRow is a line in a table of consumed events.
type TableRow struct {
	Event    core.Event
	Consumed bool
}

// RenderTable writes the rows as a NUM/EVENT/OK table.  Rows are
// numbered from 1.
func RenderTable(w io.Writer, rows []TableRow) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "NUM\tEVENT\tOK\n")
	for i, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%t\n", i+1, r.Event, r.Consumed)
	}
	return tw.Flush()
}

func orName(s, dflt string) string {
	if s == "" {
		return dflt
	}
	return s
}

func js(x interface{}) string {
	bs, err := json.Marshal(x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// RenderEngine writes a plain-text summary of the engine and its
// pipeline.
func RenderEngine(e *core.Engine, w io.Writer) error {
	for ; e != nil; e = e.Pipeline() {
		fmt.Fprintf(w, "engine %s\n", e.Id)
		if e.Doc != "" {
			fmt.Fprintf(w, "  doc: %s\n", strings.Join(strings.Fields(e.Doc), " "))
		}
		fmt.Fprintf(w, "  guards: %s\n", orName(e.Labels.Guards, "?"))
		fmt.Fprintf(w, "  actions: %s\n", orName(e.Labels.Actions, "?"))
		fmt.Fprintf(w, "  resolver: %s\n", orName(loader.ResolverName(e.Resolver()), "default"))
		fmt.Fprintf(w, "  comparator: %s\n", orName(e.Labels.Comparator, "default"))
		fmt.Fprintf(w, "  configuration: %s\n", e.Configuration())
		if env := e.Environment(); 0 < len(env) {
			fmt.Fprintf(w, "  environment: %s\n", js(env))
		}
		rules := e.Rules()
		fmt.Fprintf(w, "  rules: %d\n", len(rules))
		for i, r := range rules {
			fmt.Fprintf(w, "    %s\n", ruleName(i, r))
			for _, g := range r.Guards {
				fmt.Fprintf(w, "      if   %s\n", g)
			}
			for _, a := range r.Actions {
				fmt.Fprintf(w, "      do   %s\n", a)
			}
			if 0 < len(r.Attributes) {
				fmt.Fprintf(w, "      with %s\n", js(r.Attributes))
			}
		}
		if p := e.Pipeline(); p != nil {
			fmt.Fprintf(w, "  pipeline: %s\n", p.Id)
		}
	}
	return nil
}

// RenderEngineYAML writes the engine (and its pipeline) as a spec
// that the loader can read.
func RenderEngineYAML(e *core.Engine, w io.Writer) error {
	bs, err := yaml.Marshal(loader.FromEngine(e))
	if err != nil {
		return err
	}
	_, err = w.Write(bs)
	return err
}

// RenderRow is a convenience for a single TableRow from a Step.
func RenderRow(s *core.Step) TableRow {
	return TableRow{
		Event:    s.Event,
		Consumed: s.Consumed,
	}
}

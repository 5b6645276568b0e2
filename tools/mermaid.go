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
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/eventengine/core"
)

type MermaidOpts struct {
	// ShowGuards will result in rule labels that include the
	// rule's guards.
	ShowGuards bool `json:"showGuards"`

	// ActionFill is the fill color of for rules that have
	// actions.  Does not apply if ActionClass is set.
	ActionFill string `json:"actionFill,omitempty"`

	// ActionClass will be the CSS class for rules with actions.
	ActionClass string `json:"actionClass,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given engine and its pipeline.
//
// Each engine is a subgraph of its rules.
func Mermaid(e *core.Engine, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowGuards: true,
			ActionFill: "#bcf2db",
		}
	}

	fmt.Fprintf(w, "graph TB\n")

	var prev string
	for n := 0; e != nil; n, e = n+1, e.Pipeline() {
		sid := fmt.Sprintf("e%d", n)
		fmt.Fprintf(w, "  subgraph %s[\"%s\"]\n", sid, mermaidEscape(e.Id))
		for i, r := range e.Rules() {
			nid := fmt.Sprintf("%sr%d", sid, i)
			label := mermaidEscape(ruleName(i, r))
			if opts.ShowGuards && 0 < len(r.Guards) {
				label += "<br/><code>" + mermaidEscape(strings.Join(r.Guards, "<br/>")) + "</code>"
			}
			if len(r.Actions) == 0 {
				fmt.Fprintf(w, "    %s(\"%s\")\n", nid, label)
				continue
			}
			fmt.Fprintf(w, "    %s[\"%s\"]\n", nid, label)
			switch {
			case opts.ActionClass != "":
				fmt.Fprintf(w, "    class %s %s\n", nid, opts.ActionClass)
			case opts.ActionFill != "":
				fmt.Fprintf(w, "    style %s fill:%s\n", nid, opts.ActionFill)
			}
		}
		fmt.Fprintf(w, "  end\n")

		if prev != "" {
			fmt.Fprintf(w, "  %s -- \"output events\" --> %s\n", prev, sid)
		}
		prev = sid
	}

	fmt.Fprintf(w, "\n")

	return nil
}

// mermaidEscape replaces double quotes, which would end a label.
func mermaidEscape(s string) string {
	s = escape(s)
	s = strings.Replace(s, `&lt;br/&gt;`, "<br/>", -1)
	return strings.Replace(s, `"`, `#quot;`, -1)
}

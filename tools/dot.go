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

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/eventengine/core"

	"gopkg.in/yaml.v2"
)

// Dot writes a Graphviz dot file for the engine and its pipeline.
// Each engine is a cluster of its rules, and an edge connects each
// engine to its pipeline.
//
// The optional highlight is the id of a rule (perhaps the one that
// just fired), which will be red.
func Dot(e *core.Engine, w io.Writer, highlight string) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [compound=true,ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="note" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	var (
		prev      string
		prevFirst string
	)
	for n := 0; e != nil; n, e = n+1, e.Pipeline() {
		cluster := fmt.Sprintf("cluster_%d", n)
		fmt.Fprintf(w, "  subgraph %s {\n", cluster)
		fmt.Fprintf(w, "    label=<%s>\n", dotLabel(e.Id, e.Doc))

		rules := e.Rules()
		first := fmt.Sprintf("e%d_empty", n)
		if len(rules) == 0 {
			fmt.Fprintf(w, "    %s [shape=\"plaintext\", style=\"\", label=\"no rules\"]\n", first)
		}
		for i, r := range rules {
			id := fmt.Sprintf("e%dr%d", n, i)
			if i == 0 {
				first = id
			}
			color, fillcolor := "black", "#99ddc8"
			if highlight != "" && r.Id == highlight {
				color, fillcolor = "red", "#f98b8b"
			}
			style := "filled"
			if len(r.Actions) == 0 {
				style += ",dashed"
			}
			fmt.Fprintf(w, "    %s [style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
				id, style, color, fillcolor, ruleLabel(i, r))
		}
		fmt.Fprintf(w, "  }\n")

		if prev != "" {
			fmt.Fprintf(w, "  %s -> %s [ltail=%s, lhead=%s, label=\"output events\"]\n",
				prevFirst, first, prev, cluster)
		}
		prev, prevFirst = cluster, first
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

func dotLabel(name, doc string) string {
	label := escape(name)
	if doc != "" {
		if 40 < len(doc) {
			period := strings.Index(doc, ". ")
			if 0 < period {
				doc = doc[0 : period+1]
			}
		}
		label += "<BR/><FONT POINT-SIZE='8'>" + escape(doc) + "</FONT>"
	}
	return label
}

func ruleLabel(i int, r *core.Rule) string {
	label := dotLabel(ruleName(i, r), r.Doc)
	src := func(lines []string) string {
		return `<FONT POINT-SIZE="6"><BR/>` +
			strings.Replace(escape(strings.Join(lines, "\n"))+"\n", "\n", `<BR ALIGN="LEFT"/>`, -1) +
			`</FONT>`
	}
	if 0 < len(r.Guards) {
		label += src(r.Guards)
	}
	if 0 < len(r.Actions) {
		label += src(r.Actions)
	}
	if 0 < len(r.Attributes) {
		bs, err := yaml.Marshal(r.Attributes)
		if err != nil {
			bs = []byte(err.Error())
		}
		label += src(strings.Split(strings.TrimSpace(string(bs)), "\n"))
	}
	return label
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
//
// Requires dot in the PATH.
func PNG(e *core.Engine, basename string, highlight string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err = Dot(e, dotfile, highlight); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err = dotfile.Close(); err != nil {
		return pngname, err
	}
	if err = exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

// escape makes the string safe for an HTML-like label.
func escape(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}

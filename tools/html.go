package tools

import (
	"fmt"
	"html"
	"io"
	"io/ioutil"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/interpreters/noop"
	"github.com/Comcast/eventengine/loader"

	md "github.com/russross/blackfriday/v2"
)

// RenderEngineHTML writes an HTML fragment for the engine and its
// pipeline.  Docs are Markdown.
func RenderEngineHTML(e *core.Engine, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	for ; e != nil; e = e.Pipeline() {
		id := html.EscapeString(e.Id)
		f(`<div class="engine" id="%s">`, id)
		f(`<h2 class="engineId">%s</h2>`, id)
		if e.Doc != "" {
			f(`<div class="engineDoc doc">%s</div>`, md.Run([]byte(e.Doc)))
		}
		f(`<div class="configuration"><code>%s</code></div>`, html.EscapeString(e.Configuration().String()))

		f(`<div class="rules"><table>`)
		for i, r := range e.Rules() {
			name := html.EscapeString(ruleName(i, r))
			f(`<tr class="rule"><td><span class="ruleName">%s</span></td><td>`, name)
			if r.Doc != "" {
				f(`<div class="ruleDoc doc">%s</div>`, md.Run([]byte(r.Doc)))
			}
			f(`<table>`)
			for _, g := range r.Guards {
				f(`<tr><td>guard</td><td><div class="code"><pre>%s</pre></div></td></tr>`, html.EscapeString(g))
			}
			for _, a := range r.Actions {
				f(`<tr><td>action</td><td><div class="code"><pre>%s</pre></div></td></tr>`, html.EscapeString(a))
			}
			if 0 < len(r.Attributes) {
				f(`<tr><td>attributes</td><td><code>%s</code></td></tr>`, html.EscapeString(js(r.Attributes)))
			}
			f(`</table>`)
			f(`</td></tr>`)
		}
		f(`</table></div>`)

		if p := e.Pipeline(); p != nil {
			f(`<div class="pipeline">pipeline: <a href="#%s">%s</a></div>`,
				html.EscapeString(p.Id), html.EscapeString(p.Id))
		}
		f(`</div>`)
	}

	return nil
}

// RenderEnginePage writes a complete HTML page.
func RenderEnginePage(e *core.Engine, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/engine-html.css"}
	}

	title := html.EscapeString(e.Id)

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, title)

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, title)

	if err := RenderEngineHTML(e, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderEnginePage loads the spec with silent noop evaluators,
// so nothing is compiled or evaluated, and renders the page.
func ReadAndRenderEnginePage(filename string, cssFiles []string, out io.Writer) error {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}
	s, err := loader.ParseEngine(bs)
	if err != nil {
		return err
	}

	e, err := s.Build(silentEvaluators(s))
	if err != nil {
		return err
	}

	return RenderEnginePage(e, out, cssFiles)
}

// silentEvaluators maps every evaluator name that the spec (or its
// pipeline) uses to a silent noop.Interpreter.
func silentEvaluators(s *loader.EngineSpec) core.Evaluators {
	i := noop.NewInterpreter()
	i.Silent = true

	evs := core.Evaluators{
		loader.DefaultEvaluator: i,
	}
	for ; s != nil; s = s.Pipeline {
		for _, name := range []string{s.Guards, s.Actions} {
			if name != "" {
				evs[name] = i
			}
		}
	}
	return evs
}

package main

import (
	"fmt"
	"strings"

	"github.com/Comcast/eventengine/tools"

	"github.com/spf13/cobra"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	As        string
	CSS       []string
	Highlight string
}

// RenderFormats are the values for --as.
var RenderFormats = []string{"text", "yaml", "html", "mermaid", "dot", "analysis"}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <engine>",
		Short: "Render an engine",
		Long: `Render an engine and its pipeline as text, YAML (a spec that can be
loaded again), an HTML page, a Mermaid chart, a Graphviz dot file, or
an analysis of its rules.

Example:
  evengine render --as mermaid orders.yaml
  evengine render --as html --css site.css orders.yaml > orders.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "text", "output ("+strings.Join(RenderFormats, "|")+")")
	cmd.Flags().StringSliceVar(&opts.CSS, "css", nil, "stylesheets for html")
	cmd.Flags().StringVar(&opts.Highlight, "highlight", "", "rule id to highlight in dot output")

	return cmd
}

func render(cmd *cobra.Command, opts *RenderOptions, filename string) error {
	e, err := loadEngine(filename)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch opts.As {
	case "text":
		err = tools.RenderEngine(e, out)
	case "yaml":
		err = tools.RenderEngineYAML(e, out)
	case "html":
		err = tools.RenderEnginePage(e, out, opts.CSS)
	case "mermaid":
		err = tools.Mermaid(e, out, nil)
	case "dot":
		err = tools.Dot(e, out, opts.Highlight)
	case "analysis":
		a := tools.Analyze(e)
		if opts.Format == "json" {
			return writeJSON(out, a)
		}
		warnings := a.Warnings()
		for ; a != nil; a = a.Pipeline {
			fmt.Fprintf(out, "%s: %d rules, %d guards, %d actions, evaluators %s\n",
				a.Engine, a.Rules, a.Guards, a.Actions, strings.Join(a.Evaluators, ","))
		}
		for _, w := range warnings {
			fmt.Fprintf(out, "warning %s\n", w)
		}
	default:
		return WrapExitError(ExitCommandError, "bad flag",
			fmt.Errorf("unknown --as %q: must be one of %v", opts.As, RenderFormats))
	}

	return err
}

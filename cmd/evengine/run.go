package main

import (
	"fmt"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/loader"
	"github.com/Comcast/eventengine/sio"
	"github.com/Comcast/eventengine/tools"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <engine> <events>",
		Short: "Feed a list of events to an engine",
		Long: `Load an engine and a YAML (or JSON) list of events, consume each
event in order, and report what happened.

Example:
  evengine run toggle.yaml toggle-events.yaml
  evengine run --format json toggle.yaml toggle-events.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd, opts, args[0], args[1])
		},
	}
	return cmd
}

// RunReport is the JSON output of run.
type RunReport struct {
	Engine        string             `json:"engine"`
	Steps         []*core.Step       `json:"steps"`
	Configuration core.Configuration `json:"configuration"`
	Output        []core.Event       `json:"output,omitempty"`
}

func runEvents(cmd *cobra.Command, opts *RootOptions, engineFilename, eventsFilename string) error {
	e, err := loadEngine(engineFilename)
	if err != nil {
		return err
	}
	events, err := loader.ReadEvents(eventsFilename)
	if err != nil {
		return WrapExitError(ExitCommandError, "can't read events", err)
	}

	ctx := cmd.Context()

	report := &RunReport{
		Engine: e.Id,
		Steps:  make([]*core.Step, 0, len(events)),
	}
	rows := make([]tools.TableRow, 0, len(events))
	for _, ev := range events {
		s, err := e.Step(ctx, ev)
		if err != nil && opts.Verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "step error: %s\n", err)
		}
		report.Steps = append(report.Steps, s)
		rows = append(rows, tools.RenderRow(s))
	}
	report.Configuration = e.Configuration()
	report.Output = sio.Tail(e).OutputEvents()

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, report)
	}

	if err = tools.RenderTable(out, rows); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nconfiguration %s\n", report.Configuration)
	for _, x := range report.Output {
		fmt.Fprintf(out, "output %s\n", x)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/Comcast/eventengine/interpreters"
	"github.com/Comcast/eventengine/tools"

	"github.com/spf13/cobra"
)

// NewTestCommand creates the test command.
func NewTestCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <session>...",
		Short: "Check sessions of expectations",
		Long: `Run each session file.  A session names an engine spec and lists
events along with what should happen: whether the event is consumed,
a subset of the configuration afterwards, and events that should be
emitted.

Example:
  evengine test taqueria.session.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd, opts, args)
		},
	}
	return cmd
}

// SessionReport is the JSON output for a session.
type SessionReport struct {
	Session string `json:"session"`
	OK      bool   `json:"ok"`
	Steps   int    `json:"steps"`
	Error   string `json:"error,omitempty"`
}

func runSessions(cmd *cobra.Command, opts *RootOptions, filenames []string) error {
	var (
		out     = cmd.OutOrStdout()
		reports = make([]*SessionReport, 0, len(filenames))
		failed  = 0
	)

	for _, filename := range filenames {
		r := &SessionReport{Session: filename}
		reports = append(reports, r)

		s, err := tools.ReadSession(filename)
		if err != nil {
			return WrapExitError(ExitCommandError, "can't read session", err)
		}
		s.Verbose = opts.Verbose
		e, err := s.LoadEngine(interpreters.Standard())
		if err != nil {
			return WrapExitError(ExitCommandError, "can't load engine", err)
		}

		rows, err := s.Run(cmd.Context(), e)
		r.Steps = len(rows)
		if err != nil {
			r.Error = err.Error()
			failed++
		} else {
			r.OK = true
		}

		if opts.Format == "text" {
			if r.OK {
				fmt.Fprintf(out, "ok   %s (%d steps)\n", filename, r.Steps)
			} else {
				fmt.Fprintf(out, "FAIL %s: %s\n", filename, r.Error)
			}
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(out, reports); err != nil {
			return err
		}
	}

	if 0 < failed {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d of %d sessions failed", failed, len(filenames))}
	}
	return nil
}

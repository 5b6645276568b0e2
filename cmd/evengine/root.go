package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/interpreters"
	"github.com/Comcast/eventengine/loader"
	"github.com/Comcast/eventengine/util"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // An expectation wasn't met.
	ExitCommandError = 2 // Bad arguments, unreadable files, etc.
)

// ExitError is an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "evengine",
		Short: "Rule-driven event engines",
		Long: `evengine loads event engines from YAML specs and feeds them events.

An engine holds a configuration and a list of rules.  Each rule has a
set of guards and a sequence of actions.  When an event arrives, the
engine picks one rule whose guards all hold and runs its actions
against the configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return WrapExitError(ExitCommandError, "bad flag",
					fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			util.Logging = opts.Verbose
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConsoleCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadEngine loads the spec with the standard evaluators.
func loadEngine(filename string) (*core.Engine, error) {
	e, err := loader.LoadEngine(filename, interpreters.Standard())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "can't load engine", err)
	}
	return e, nil
}

func writeJSON(w io.Writer, x interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(x)
}

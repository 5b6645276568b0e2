package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/history"
	"github.com/Comcast/eventengine/interpreters"
	"github.com/Comcast/eventengine/loader"
	"github.com/Comcast/eventengine/sio"
	"github.com/Comcast/eventengine/tools"

	"github.com/spf13/cobra"
)

// ConsoleOptions holds flags for the console command.
type ConsoleOptions struct {
	*RootOptions
	Prompt bool
}

// NewConsoleCommand creates the console command.
func NewConsoleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConsoleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "console [engine]",
		Short: "Interact with an engine",
		Long: `Read commands, one per line:

  :load FILE     load an engine
  :query FILE    consume each event in the file
  :config        show the configuration
  :rules         show the engine
  :events        show pending output events
  :history       show the steps taken
  :help          show this help
  :quit          exit

Any other line is parsed as a YAML (or JSON) map and consumed as an
event.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := history.NewJournal()
			if err != nil {
				return WrapExitError(ExitCommandError, "can't open journal", err)
			}
			defer j.Close()
			j.Debug = opts.Verbose

			c := &Console{
				Out:     cmd.OutOrStdout(),
				Journal: j,
				Prompt:  opts.Prompt,
			}
			if 0 < len(args) {
				c.Load(args[0])
			}
			return c.Loop(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&opts.Prompt, "prompt", true, "show a prompt")

	return cmd
}

// Console is a line-oriented session with an engine.
type Console struct {
	Out     io.Writer
	Journal *history.Journal
	Engine  *core.Engine
	Prompt  bool

	counter int
}

// Loop handles lines until EOF or :quit.
func (c *Console) Loop(ctx context.Context, in io.Reader) error {
	r := bufio.NewReader(in)
	for {
		c.counter++
		if c.Prompt {
			fmt.Fprintf(c.Out, "[%d] > ", c.counter)
		}
		line, err := r.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}
		if !c.Handle(ctx, strings.TrimSpace(line)) {
			return nil
		}
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format+"\n", args...)
}

// Handle processes a line and reports whether the session should
// continue.
func (c *Console) Handle(ctx context.Context, line string) bool {
	if line == "" || strings.HasPrefix(line, "#") {
		return true
	}

	parts := strings.SplitN(line, " ", 2)
	arg := ""
	if 1 < len(parts) {
		arg = strings.TrimSpace(parts[1])
	}

	switch parts[0] {
	case ":quit":
		return false
	case ":help":
		c.printf(":load FILE, :query FILE, :config, :rules, :events, :history, :quit, or an event")
	case ":load":
		c.Load(arg)
	case ":query":
		c.Query(ctx, arg)
	case ":config":
		if c.need() {
			c.printf("%s", c.Engine.Configuration())
		}
	case ":rules":
		if c.need() {
			tools.RenderEngine(c.Engine, c.Out)
		}
	case ":events":
		if c.need() {
			for _, x := range sio.Tail(c.Engine).OutputEvents() {
				c.printf("%s", x)
			}
		}
	case ":history":
		if c.need() {
			c.History()
		}
	default:
		if strings.HasPrefix(line, ":") {
			c.printf("unknown command %s", parts[0])
			break
		}
		ev, err := loader.ParseEvent(line)
		if err != nil {
			c.printf("not an event: %s", err)
			break
		}
		if c.need() {
			if c.Engine.Consume(ctx, ev) {
				c.printf("consumed")
			} else {
				c.printf("not consumed")
			}
		}
	}
	return true
}

func (c *Console) need() bool {
	if c.Engine == nil {
		c.printf("no engine loaded")
		return false
	}
	return true
}

// Load replaces the engine.  The journal's entries for the new engine
// (and its pipeline) are cleared.
func (c *Console) Load(filename string) {
	e, err := loader.LoadEngine(filename, interpreters.Standard())
	if err != nil {
		c.printf("%s", err)
		return
	}
	if c.Engine != nil {
		c.Journal.Detach(c.Engine)
	}
	for p := e; p != nil; p = p.Pipeline() {
		if err = c.Journal.Clear(p.Id); err != nil {
			c.printf("%s", err)
		}
	}
	c.Journal.Attach(e)
	c.Engine = e
	c.printf("loaded %s (%d rules)", e.Id, len(e.Rules()))
}

// Query consumes each event in the file and prints a table.
func (c *Console) Query(ctx context.Context, filename string) {
	if !c.need() {
		return
	}
	events, err := loader.ReadEvents(filename)
	if err != nil {
		c.printf("%s", err)
		return
	}
	rows := make([]tools.TableRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, tools.TableRow{
			Event:    ev,
			Consumed: c.Engine.Consume(ctx, ev),
		})
	}
	tools.RenderTable(c.Out, rows)
}

// History prints the journal's entries for the engine.
func (c *Console) History() {
	es, err := c.Journal.Entries(c.Engine.Id)
	if err != nil {
		c.printf("%s", err)
		return
	}
	for _, e := range es {
		rule := e.Rule
		if rule == "" {
			rule = "-"
		}
		c.printf("%d %s %t %s", e.Seq, rule, e.Consumed, e.Event)
	}
}

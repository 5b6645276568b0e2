package cel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/interpreters/cel"
	"github.com/Comcast/eventengine/interpreters/goja"

	"github.com/matryer/is"
)

func TestGuards(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	i := cel.NewInterpreter()
	scope := &core.Scope{
		ReadOnly:      true,
		Configuration: map[string]interface{}{"state": int64(1)},
		Event:         map[string]interface{}{"symbol": "a"},
	}

	ok, err := core.EvalGuard(ctx, i, `configuration.state == 1 && event.symbol == "a"`, nil, scope)
	is.NoErr(err)
	is.True(ok)

	ok, err = core.EvalGuard(ctx, i, `event.symbol in ["b", "c"]`, nil, scope)
	is.NoErr(err)
	is.True(!ok)

	ok, err = core.EvalGuard(ctx, i, `has(event.symbol) && !has(event.other)`, nil, scope)
	is.NoErr(err)
	is.True(ok)
}

func TestCompileErrors(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	i := cel.NewInterpreter()

	_, err := i.Compile(ctx, `configuration.state ==`)
	is.True(err != nil) // parse error

	_, err = i.Compile(ctx, `tacos.count > 1`)
	is.True(err != nil) // undeclared
}

func TestNoActions(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	i := cel.NewInterpreter()
	_, err := i.Eval(ctx, `true`, nil, &core.Scope{})
	is.True(errors.Is(err, core.ReadOnlyScope))
}

func TestMissingKey(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	_, err := core.EvalGuard(ctx, cel.NewInterpreter(), `event.symbol == "a"`, nil, &core.Scope{ReadOnly: true})
	is.True(err != nil) // no such key
}

// TestEngine uses CEL for guards and goja for actions.
func TestEngine(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	e := core.NewEngine("toggle", cel.NewInterpreter(), goja.NewInterpreter())
	e.SetRules([]*core.Rule{
		core.NewRule(
			[]string{`configuration.state == 1`, `event.symbol == "a"`},
			[]string{`configuration.state = 2`}),
		core.NewRule(
			[]string{`configuration.state == 2`, `event.symbol == "b"`},
			[]string{`configuration.state = 1`}),
	})
	is.NoErr(e.SetConfiguration(core.Configuration{"state": 1}))

	for _, sym := range []string{"a", "b", "a"} {
		is.True(e.Consume(ctx, core.Event{"symbol": sym}))
	}
	is.True(!e.Consume(ctx, core.Event{"symbol": "x"}))
	is.True(e.Configuration().Equal(core.Configuration{"state": 2}))
}

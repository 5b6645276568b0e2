package tools

import (
	"testing"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/interpreters/goja"
)

// orders makes a two-engine pipeline: orders feeds the kitchen.
func orders(t *testing.T) *core.Engine {
	i := goja.NewInterpreter()

	e := core.NewEngine("orders", i, nil)
	e.Doc = "Takes *orders*."
	e.Labels = core.Labels{Guards: "goja", Actions: "goja"}
	e.SetResolver(core.SpecificityResolver{})
	e.SetRules([]*core.Rule{
		{
			Id:     "order",
			Guards: core.NewGuardSet("event.order && !event.vip"),
			Actions: []string{
				"configuration.orders = (configuration.orders || 0) + 1;",
				"emit({serve: event.order}); emit({bill: event.order});",
			},
		},
		{
			Id:      "vip",
			Guards:  core.NewGuardSet("event.order !== undefined", "event.vip === true"),
			Actions: []string{"emit({serve: event.order});"},
		},
	})
	if err := e.SetConfiguration(core.Configuration{"orders": 0}); err != nil {
		t.Fatal(err)
	}

	k := core.NewEngine("kitchen", i, nil)
	k.Doc = "Cooks and bills."
	k.Labels = core.Labels{Guards: "goja", Actions: "goja", Comparator: "priority"}
	k.SetRules([]*core.Rule{
		{
			Id:      "cook",
			Guards:  core.NewGuardSet("event.serve !== undefined"),
			Actions: []string{"configuration.served = (configuration.served || 0) + 1;"},
		},
		{
			Id:         "bill",
			Guards:     core.NewGuardSet("event.bill !== undefined"),
			Actions:    []string{"configuration.billed = (configuration.billed || 0) + 1;"},
			Attributes: map[string]interface{}{"priority": int64(3)},
		},
	})

	if err := e.SetPipeline(k); err != nil {
		t.Fatal(err)
	}

	return e
}

package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/interpreters"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadToggle(t *testing.T) {
	ctx := context.Background()

	e, err := LoadEngine("testdata/toggle.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "toggle", e.Id)
	assert.Contains(t, e.Doc, "two-state")

	rules := e.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "A", rules[0].Id)
	assert.True(t, rules[1].Guards.Contains("event.symbol == 'b'"), "conditions are guards")

	events, err := ReadEvents("testdata/toggle-events.yaml")
	require.NoError(t, err)
	require.Len(t, events, 4)

	var consumed []bool
	for _, ev := range events {
		consumed = append(consumed, e.Consume(ctx, ev))
	}
	assert.Equal(t, []bool{true, true, true, false}, consumed)
	assert.True(t, e.Configuration().Equal(core.Configuration{"state": 2}))
}

func TestLoadPipeline(t *testing.T) {
	ctx := context.Background()

	e, err := LoadEngine("testdata/pipeline.yaml", interpreters.Standard())
	require.NoError(t, err)

	kitchen := e.Pipeline()
	require.NotNil(t, kitchen)
	assert.Equal(t, "kitchen", kitchen.Id)
	assert.Equal(t, "cel", kitchen.Labels.Guards)
	assert.Equal(t, "goja", kitchen.Labels.Actions)
	assert.Equal(t, "specificity", ResolverName(e.Resolver()))

	s, err := e.Step(ctx, core.Event{"order": "tacos"})
	require.NoError(t, err)
	require.True(t, s.Consumed)
	assert.Equal(t, "order", s.Rule.Id)

	// Sorted by priority before forwarding.
	require.Len(t, s.Forwarded, 2)
	assert.Equal(t, "bill", s.Forwarded[0].Rule.Id)
	assert.Equal(t, "cook", s.Forwarded[1].Rule.Id)

	assert.Empty(t, e.OutputEvents())
	assert.True(t, kitchen.Configuration().Equal(core.Configuration{"served": 1, "billed": 1}),
		"kitchen: %s", kitchen.Configuration())

	s, err = e.Step(ctx, core.Event{"order": "chips", "vip": true})
	require.NoError(t, err)
	assert.Equal(t, "vip", s.Rule.Id, "specificity")
	require.Len(t, s.Forwarded, 1)
	assert.Equal(t, "chips", s.Forwarded[0].Event["serve"])
}

func TestDefaultIdentifier(t *testing.T) {
	s, err := ParseEngine([]byte(`rules: [{actions: ["configuration.x = 1"]}]`))
	require.NoError(t, err)

	e, err := s.Build(nil)
	require.NoError(t, err)

	_, err = uuid.Parse(e.Id)
	assert.NoError(t, err, "identifier %q", e.Id)
	assert.Equal(t, DefaultEvaluator, e.Labels.Guards)
	assert.Equal(t, DefaultEvaluator, e.Labels.Actions)
}

func TestRoundTrip(t *testing.T) {
	s1, err := ReadEngine("testdata/pipeline.yaml")
	require.NoError(t, err)
	e1, err := s1.Build(nil)
	require.NoError(t, err)

	bs, err := MarshalEngine(FromEngine(e1))
	require.NoError(t, err)

	s2, err := ParseEngine(bs)
	require.NoError(t, err)
	e2, err := s2.Build(nil)
	require.NoError(t, err)

	for a, b := e1, e2; a != nil || b != nil; a, b = a.Pipeline(), b.Pipeline() {
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.Equal(t, a.Id, b.Id)
		assert.Equal(t, a.Labels, b.Labels)
		assert.Equal(t, ResolverName(a.Resolver()), ResolverName(b.Resolver()))
		assert.True(t, a.Configuration().Equal(b.Configuration()))
		assert.Equal(t, a.Environment(), b.Environment())

		ra, rb := a.Rules(), b.Rules()
		require.Equal(t, len(ra), len(rb))
		for i := range ra {
			assert.True(t, ra[i].Equal(rb[i]), "rule %d: %s != %s", i, ra[i], rb[i])
		}
	}
}

func TestRoundTripGuardOrder(t *testing.T) {
	a, err := ParseEngine([]byte(`
rules:
  - guards: [x, y, z]
    actions: [one, two]
`))
	require.NoError(t, err)
	b, err := ParseEngine([]byte(`
rules:
  - guards: [z, x, y, x]
    actions: [one, two]
`))
	require.NoError(t, err)

	ra, err := a.Rules[0].Rule()
	require.NoError(t, err)
	rb, err := b.Rules[0].Rule()
	require.NoError(t, err)
	assert.True(t, ra.Equal(rb))
}

func TestLoadFaults(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"evaluator", `guards: cobol`},
		{"resolver", `resolver: coin-flip`},
		{"comparator", `comparator: vibes`},
		{"syntax", `rules: [`},
		{"pipeline", `pipeline: {actions: cobol}`},
		{"empty rule", "rules:\n  - actions: [x = 1]\n  - ~\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := ParseEngine([]byte(test.spec))
			if err == nil {
				var e *core.Engine
				e, err = s.Build(nil)
				assert.Nil(t, e)
			}
			require.Error(t, err)
			var lf *LoadFault
			assert.True(t, errors.As(err, &lf), "%T", err)
		})
	}

	e, err := LoadEngine("testdata/missing.yaml", nil)
	assert.Nil(t, e)
	var lf *LoadFault
	require.True(t, errors.As(err, &lf))
	assert.Equal(t, "testdata/missing.yaml", lf.Source)
	assert.True(t, os.IsNotExist(lf.Err))
}

func TestLoadEmptyRule(t *testing.T) {
	s, err := ParseEngine([]byte("rules:\n  - id: ok\n  - ~\n"))
	require.NoError(t, err)

	e, err := s.Build(nil)
	assert.Nil(t, e)
	var rf *RuleFault
	require.True(t, errors.As(err, &rf), "%T", err)
	assert.Equal(t, 1, rf.Index)
	assert.True(t, errors.Is(err, ErrEmptyRule))
}

func TestParseEvents(t *testing.T) {
	es, err := ParseEvents([]byte(`[{n: 1}, {n: 2.5, tags: [a, b]}]`))
	require.NoError(t, err)
	require.Len(t, es, 2)
	assert.Equal(t, int64(1), es[0]["n"])
	assert.Equal(t, 2.5, es[1]["n"])
	assert.Equal(t, []interface{}{"a", "b"}, es[1]["tags"])

	es, err = ParseEvents([]byte(`[{n: 1}, tacos]`))
	assert.Nil(t, es)
	var ef *EventFault
	require.True(t, errors.As(err, &ef))
	assert.Equal(t, 1, ef.Index)

	es, err = ParseEvents([]byte(`{not: a list}`))
	assert.Nil(t, es)
	assert.Error(t, err)
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent(`{"symbol": "a"}`)
	require.NoError(t, err)
	assert.True(t, ev.Equal(core.Event{"symbol": "a"}))

	ev, err = ParseEvent("symbol: b")
	require.NoError(t, err)
	assert.Equal(t, "b", ev["symbol"])

	_, err = ParseEvent("just a string")
	assert.Error(t, err)
}

func TestReadEventsFile(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(filename, []byte(`[{"symbol":"a"}]`), 0644))

	es, err := ReadEvents(filename)
	require.NoError(t, err)
	require.Len(t, es, 1)
}

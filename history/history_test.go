package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/eventengine/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeline(t *testing.T) *core.Engine {
	ev := core.NewFuncEvaluator().
		Def("is a", func(ctx context.Context, s *core.Scope) (interface{}, error) {
			return s.Event["symbol"] == "a", nil
		}).
		Def("count", func(ctx context.Context, s *core.Scope) (interface{}, error) {
			n, _ := s.Configuration["n"].(int64)
			s.Configuration["n"] = n + 1
			return nil, nil
		}).
		Def("echo", func(ctx context.Context, s *core.Scope) (interface{}, error) {
			s.Output = append(s.Output, map[string]interface{}{"echo": s.Event["symbol"]})
			return nil, nil
		}).
		Def("fail", func(ctx context.Context, s *core.Scope) (interface{}, error) {
			return nil, errors.New("broken")
		})

	up := core.NewEngine("up", ev, nil)
	up.SetRules([]*core.Rule{
		{Id: "echo", Guards: core.NewGuardSet("is a"), Actions: []string{"count", "echo"}},
	})

	down := core.NewEngine("down", ev, nil)
	down.SetRules([]*core.Rule{
		{Id: "fail", Actions: []string{"fail"}},
	})

	require.NoError(t, up.SetPipeline(down))
	return up
}

func TestJournal(t *testing.T) {
	ctx := context.Background()

	j, err := NewJournal()
	require.NoError(t, err)
	dir := j.dir

	up := pipeline(t)
	j.Attach(up)

	assert.True(t, up.Consume(ctx, core.Event{"symbol": "a"}))
	assert.False(t, up.Consume(ctx, core.Event{"symbol": "b"}))
	assert.True(t, up.Consume(ctx, core.Event{"symbol": "a"}))

	es, err := j.Entries("up")
	require.NoError(t, err)
	require.Len(t, es, 3)
	for i, e := range es {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.Equal(t, "up", e.Engine)
	}
	assert.Equal(t, "echo", es[0].Rule)
	assert.True(t, es[0].Consumed)
	assert.False(t, es[1].Consumed)
	assert.Nil(t, es[1].To)
	assert.Equal(t, float64(2), es[2].To["n"], "JSON numbers")

	down, err := j.Entries("down")
	require.NoError(t, err)
	require.Len(t, down, 2)
	assert.False(t, down[0].Consumed)
	assert.Contains(t, down[0].Err, "broken")
	assert.Equal(t, "a", down[0].Event["echo"])

	engines, err := j.Engines()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"up", "down"}, engines)

	require.NoError(t, j.Clear("down"))
	down, err = j.Entries("down")
	require.NoError(t, err)
	assert.Empty(t, down)
	require.NoError(t, j.Clear("nobody"))

	j.Detach(up)
	up.Consume(ctx, core.Event{"symbol": "a"})
	es, err = j.Entries("up")
	require.NoError(t, err)
	assert.Len(t, es, 3)

	require.NoError(t, j.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "temporary directory remains")
}

func TestOpenJournal(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "history.db")

	j, err := openJournal(filename)
	require.NoError(t, err)
	require.NoError(t, j.Record(&core.Step{Engine: "e", Event: core.Event{"x": 1}}))
	require.NoError(t, j.Close())

	j, err = openJournal(filename)
	require.NoError(t, err)
	defer j.Close()

	es, err := j.Entries("e")
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, float64(1), es[0].Event["x"])
}

func TestJournalAnonymousEngine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ev := core.NewFuncEvaluator().Def("count", func(ctx context.Context, s *core.Scope) (interface{}, error) {
		n, _ := s.Configuration["n"].(int64)
		s.Configuration["n"] = n + 1
		return nil, nil
	})
	e := core.NewEngine("", ev, nil)
	e.AddRule(&core.Rule{Actions: []string{"count"}})

	j, err := NewJournal()
	require.NoError(t, err)
	defer j.Close()
	j.Attach(e)

	require.True(t, e.Consume(ctx, core.Event{"x": 1}))
	require.True(t, e.Consume(ctx, core.Event{"x": 2}))

	es, err := j.Entries("")
	require.NoError(t, err)
	require.Len(t, es, 2)
	assert.True(t, es[1].Consumed)

	engines, err := j.Engines()
	require.NoError(t, err)
	assert.Equal(t, []string{Anonymous}, engines)

	require.NoError(t, j.Clear(""))
	es, err = j.Entries(Anonymous)
	require.NoError(t, err)
	assert.Empty(t, es)
}

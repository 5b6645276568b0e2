package loader

import (
	"context"
	"strings"
	"testing"

	"github.com/Comcast/eventengine/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline(t *testing.T) {
	input := `
I like %inline("tacos"), and
I also like %inline("queso").
Both are delicious.
`
	want := `
I like TACOS, and
I also like QUESO.
Both are delicious.
`

	find := func(name string) ([]byte, error) {
		return []byte(strings.ToUpper(name)), nil
	}

	got, err := Inline([]byte(input), find)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestLoadWithInlines(t *testing.T) {
	e, err := LoadEngine("testdata/inlined.yaml", nil)
	require.NoError(t, err)

	s, err := e.Step(context.Background(), core.Event{"n": 3})
	require.NoError(t, err)
	require.True(t, s.Consumed)
	assert.True(t, e.Configuration().Equal(core.Configuration{"doubled": 6}))

	_, err = LoadEngine("testdata/inlined-missing.yaml", nil)
	var lf *LoadFault
	assert.ErrorAs(t, err, &lf)
}

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with the given stdin and args.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errs)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func assertGolden(t *testing.T, name, got string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(got))
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "evengine", cmd.Use)

	for _, name := range []string{"run", "console", "serve", "test", "render"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestBadFormat(t *testing.T) {
	_, err := execute(t, "", "--format", "xml", "render", "testdata/toggle.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun(t *testing.T) {
	out, err := execute(t, "", "run", "testdata/toggle.yaml", "testdata/toggle-events.yaml")
	require.NoError(t, err)
	assertGolden(t, "run_toggle", out)
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, "", "--format", "json", "run", "testdata/toggle.yaml", "testdata/toggle-events.yaml")
	require.NoError(t, err)

	var report struct {
		Engine string `json:"engine"`
		Steps  []struct {
			Consumed bool `json:"consumed"`
		} `json:"steps"`
		Configuration map[string]interface{} `json:"configuration"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "toggle", report.Engine)
	require.Len(t, report.Steps, 4)
	assert.False(t, report.Steps[3].Consumed)
	assert.Equal(t, 2.0, report.Configuration["state"])
}

func TestRunMissingEngine(t *testing.T) {
	_, err := execute(t, "", "run", "testdata/nope.yaml", "testdata/toggle-events.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConsole(t *testing.T) {
	input := strings.Join([]string{
		":config",
		"{symbol: a}",
		":load testdata/toggle.yaml",
		":config",
		"{symbol: a}",
		"{symbol: x}",
		":events",
		":history",
		":query testdata/toggle-events.yaml",
		":config",
		":nope",
		"tacos",
		":quit",
		"{symbol: b}",
	}, "\n")

	out, err := execute(t, input, "console", "--prompt=false")
	require.NoError(t, err)
	assertGolden(t, "console", out)
}

func TestConsolePrompt(t *testing.T) {
	out, err := execute(t, "{symbol: a}\n", "console", "testdata/toggle.yaml")
	require.NoError(t, err)
	assert.Equal(t, "loaded toggle (2 rules)\n[1] > consumed\n[2] > ", out)
}

func TestJournalsAreTemporary(t *testing.T) {
	for _, name := range []string{"console", "serve"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := NewRootCommand().Find([]string{name})
			require.NoError(t, err)
			assert.Nil(t, cmd.Flags().Lookup("journal"))
		})
	}
}

func TestServeStdio(t *testing.T) {
	input := `{"order":"tacos","table":1}` + "\n" + `{"close":true}` + "\n"
	out, err := execute(t, input, "serve", "--results", "testdata/taqueria.yaml")
	require.NoError(t, err)
	assert.Equal(t, `{"serve":"tacos","table":1}
{"consumed":true,"event":{"order":"tacos","table":1}}
{"consumed":true,"event":{"close":true}}
`, out)
}

func TestServeUnknownIO(t *testing.T) {
	_, err := execute(t, "", "serve", "--io", "carrier-pigeon", "testdata/taqueria.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSessions(t *testing.T) {
	out, err := execute(t, "", "test", "testdata/taqueria.session.yaml", "testdata/taqueria.bad-session.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assertGolden(t, "test_sessions", out)
}

func TestSessionsJSON(t *testing.T) {
	out, err := execute(t, "", "--format", "json", "test", "testdata/taqueria.session.yaml")
	require.NoError(t, err)

	var reports []*SessionReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.True(t, reports[0].OK)
	assert.Equal(t, 4, reports[0].Steps)
}

func TestRender(t *testing.T) {
	for _, as := range []string{"text", "mermaid"} {
		t.Run(as, func(t *testing.T) {
			out, err := execute(t, "", "render", "--as", as, "testdata/toggle.yaml")
			require.NoError(t, err)
			assertGolden(t, "render_"+as, out)
		})
	}
}

func TestRenderOthers(t *testing.T) {
	tests := []struct {
		as   string
		want string
	}{
		{"yaml", "identifier: toggle"},
		{"html", `<div class="engine" id="toggle">`},
		{"dot", "digraph G {"},
		{"analysis", "toggle: 2 rules, 4 guards, 2 actions, evaluators goja"},
	}
	for _, test := range tests {
		t.Run(test.as, func(t *testing.T) {
			out, err := execute(t, "", "render", "--as", test.as, "testdata/toggle.yaml")
			require.NoError(t, err)
			assert.Contains(t, out, test.want)
		})
	}

	_, err := execute(t, "", "render", "--as", "sculpture", "testdata/toggle.yaml")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

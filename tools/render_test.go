package tools

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Comcast/eventengine/core"
	"github.com/Comcast/eventengine/loader"
)

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	err := RenderTable(&buf, []TableRow{
		{Event: core.Event{"symbol": "a"}, Consumed: true},
		{Event: core.Event{"symbol": "x"}, Consumed: false},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `NUM  EVENT           OK
1    {"symbol":"a"}  true
2    {"symbol":"x"}  false
`
	if got := buf.String(); got != want {
		t.Fatalf("got\n%s", got)
	}
}

func TestRenderRow(t *testing.T) {
	e := orders(t)
	s, err := e.Step(context.Background(), core.Event{"order": "tacos"})
	if err != nil {
		t.Fatal(err)
	}
	if r := RenderRow(s); !r.Consumed || r.Event["order"] != "tacos" {
		t.Fatalf("row %#v", r)
	}
}

func TestRenderEngine(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderEngine(orders(t), &buf); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"engine orders\n",
		"  resolver: specificity\n",
		"      if   event.vip === true\n",
		"  pipeline: kitchen\n",
		"engine kitchen\n",
		"  comparator: priority\n",
		`      with {"priority":3}`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in\n%s", want, got)
		}
	}
}

func TestRenderEngineYAML(t *testing.T) {
	e := orders(t)

	var buf bytes.Buffer
	if err := RenderEngineYAML(e, &buf); err != nil {
		t.Fatal(err)
	}

	s, err := loader.ParseEngine(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if s.Identifier != "orders" || s.Resolver != "specificity" {
		t.Fatalf("spec %#v", s)
	}
	if s.Pipeline == nil || s.Pipeline.Comparator != "priority" {
		t.Fatalf("pipeline %#v", s.Pipeline)
	}
	r, err := s.Rules[1].Rule()
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(e.Rules()[1]) {
		t.Fatalf("rule %s", r)
	}
}

func TestRenderEngineHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderEnginePage(orders(t), &buf, []string{"engine.css"}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"<title>orders</title>",
		`<link href="engine.css" rel="stylesheet">`,
		"<em>orders</em>",
		"event.order &amp;&amp; !event.vip",
		`<a href="#kitchen">kitchen</a>`,
		`<div class="engine" id="kitchen">`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in\n%s", want, got)
		}
	}
}

func TestReadAndRenderEnginePage(t *testing.T) {
	var buf bytes.Buffer
	if err := ReadAndRenderEnginePage("testdata/taqueria.yaml", nil, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<strong>menu</strong>") {
		t.Fatalf("got\n%s", buf.String())
	}
}

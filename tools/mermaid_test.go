package tools

import (
	"bytes"
	"strings"
	"testing"
)

func TestMermaid(t *testing.T) {
	var buf bytes.Buffer
	if err := Mermaid(orders(t), &buf, nil); err != nil {
		t.Fatal(err)
	}
	got := buf.String()

	for _, want := range []string{
		"graph TB\n",
		`subgraph e0["orders"]`,
		`subgraph e1["kitchen"]`,
		`e0 -- "output events" --> e1`,
		"style e1r1 fill:#bcf2db",
		"event.order !== undefined<br/>event.vip === true",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in\n%s", want, got)
		}
	}
}

func TestMermaidClass(t *testing.T) {
	var buf bytes.Buffer
	if err := Mermaid(orders(t), &buf, &MermaidOpts{ActionClass: "act"}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "class e0r0 act") {
		t.Fatalf("no class in\n%s", got)
	}
	if strings.Contains(got, "<code>") {
		t.Fatalf("guards shown in\n%s", got)
	}
}

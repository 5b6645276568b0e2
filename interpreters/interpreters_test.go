package interpreters

import (
	"errors"
	"testing"

	"github.com/Comcast/eventengine/core"
)

func TestStandard(t *testing.T) {
	is := Standard()
	for _, name := range []string{"goja", "ecmascript", "cel", "noop"} {
		if _, err := is.Find(name); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := is.Find("cobol"); !errors.Is(err, core.EvaluatorNotFound) {
		t.Fatalf("got %v", err)
	}
}

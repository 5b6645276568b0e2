package core

import (
	"encoding/json"
	"testing"
)

func TestNormalize(t *testing.T) {
	x, err := Normalize(map[interface{}]interface{}{
		"n":    3,
		"u":    uint8(4),
		"f":    float32(1.5),
		"list": []string{"a", "b"},
		"num":  json.Number("42"),
		"deep": map[interface{}]interface{}{"x": []interface{}{int32(1)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, is := x.(map[string]interface{})
	if !is {
		t.Fatalf("got %T", x)
	}
	if m["n"] != int64(3) || m["u"] != int64(4) || m["num"] != int64(42) {
		t.Fatalf("bad integers: %#v", m)
	}
	if m["f"] != float64(1.5) {
		t.Fatalf("bad float: %#v", m["f"])
	}
	if xs, is := m["list"].([]interface{}); !is || len(xs) != 2 || xs[1] != "b" {
		t.Fatalf("bad list: %#v", m["list"])
	}
	deep := m["deep"].(map[string]interface{})
	if deep["x"].([]interface{})[0] != int64(1) {
		t.Fatalf("bad deep: %#v", deep)
	}
}

func TestNormalizeRejects(t *testing.T) {
	if _, err := Normalize(struct{}{}); err == nil {
		t.Fatal("accepted a struct")
	} else if _, is := err.(*NotAValue); !is {
		t.Fatalf("%T isn't a *NotAValue", err)
	}

	if _, err := Normalize(map[interface{}]interface{}{1: "one"}); err == nil {
		t.Fatal("accepted a non-string key")
	}

	if _, err := NormalizeMap(map[string]interface{}{"f": func() {}}); err == nil {
		t.Fatal("accepted a func")
	}
}

func TestNormalizeCopies(t *testing.T) {
	inner := map[string]interface{}{"likes": "tacos"}
	m, err := NormalizeMap(map[string]interface{}{"inner": inner})
	if err != nil {
		t.Fatal(err)
	}
	inner["likes"] = "chips"
	if got := m["inner"].(map[string]interface{})["likes"]; got != "tacos" {
		t.Fatalf("shared storage: %v", got)
	}

	if m, err = NormalizeMap(nil); err != nil || m == nil {
		t.Fatal("nil didn't become an empty map")
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		x, y  interface{}
		equal bool
	}{
		{nil, nil, true},
		{nil, false, false},
		{int64(1), float64(1), true},
		{1, int64(1), true},
		{int64(1), "1", false},
		{"a", "a", true},
		{true, true, true},
		{[]interface{}{int64(1), "a"}, []interface{}{float64(1), "a"}, true},
		{[]interface{}{int64(1)}, []interface{}{int64(1), int64(2)}, false},
		{map[string]interface{}{"a": int64(1)}, Configuration{"a": float64(1)}, true},
		{map[string]interface{}{"a": int64(1)}, map[string]interface{}{"b": int64(1)}, false},
		{map[string]interface{}{"a": nil}, map[string]interface{}{}, false},
	}
	for i, test := range tests {
		if got := ValueEqual(test.x, test.y); got != test.equal {
			t.Fatalf("%d: ValueEqual(%#v, %#v) = %v", i, test.x, test.y, got)
		}
	}
}

func TestConfigurationCopy(t *testing.T) {
	c := Configuration{
		"state": int64(1),
		"stack": []interface{}{map[string]interface{}{"x": "y"}},
	}
	d := c.Copy()
	if !c.Equal(d) {
		t.Fatal("copy isn't equal")
	}
	d["stack"].([]interface{})[0].(map[string]interface{})["x"] = "z"
	if c.Equal(d) {
		t.Fatal("copy is shallow")
	}
}

func TestEventString(t *testing.T) {
	if s := (Event{"symbol": "a"}).String(); s != `{"symbol":"a"}` {
		t.Fatal(s)
	}
}

/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Values that appear in Configurations and Events are limited to a
// closed set of types:
//
//    nil
//    bool
//    int64
//    float64
//    string
//    []interface{}
//    map[string]interface{}
//
// Normalize converts what decoders and evaluators hand us into that
// set.

// NotAValue occurs when Normalize meets something outside the value
// variant (a func, a channel, a struct, ...).
type NotAValue struct {
	X interface{}
}

func (e *NotAValue) Error() string {
	return fmt.Sprintf("%T is not a value", e.X)
}

// Normalize returns a deep copy of x that uses only the value types
// listed above.
//
// Maps with non-string keys (as produced by some YAML decoders) are
// accepted when every key is a string.
func Normalize(x interface{}) (interface{}, error) {
	switch vv := x.(type) {
	case nil:
		return nil, nil
	case bool:
		return vv, nil
	case string:
		return vv, nil
	case int:
		return int64(vv), nil
	case int8:
		return int64(vv), nil
	case int16:
		return int64(vv), nil
	case int32:
		return int64(vv), nil
	case int64:
		return vv, nil
	case uint:
		return int64(vv), nil
	case uint8:
		return int64(vv), nil
	case uint16:
		return int64(vv), nil
	case uint32:
		return int64(vv), nil
	case uint64:
		if vv > math.MaxInt64 {
			return float64(vv), nil
		}
		return int64(vv), nil
	case float32:
		return float64(vv), nil
	case float64:
		return vv, nil
	case json.Number:
		if n, err := vv.Int64(); err == nil {
			return n, nil
		}
		f, err := vv.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, y := range vv {
			z, err := Normalize(y)
			if err != nil {
				return nil, err
			}
			acc[i] = z
		}
		return acc, nil
	case []string:
		acc := make([]interface{}, len(vv))
		for i, s := range vv {
			acc[i] = s
		}
		return acc, nil
	case []map[string]interface{}:
		acc := make([]interface{}, len(vv))
		for i, m := range vv {
			z, err := Normalize(m)
			if err != nil {
				return nil, err
			}
			acc[i] = z
		}
		return acc, nil
	case map[string]interface{}:
		return normalizeMap(vv)
	case Configuration:
		return normalizeMap(vv)
	case Event:
		return normalizeMap(vv)
	case map[interface{}]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, y := range vv {
			s, is := k.(string)
			if !is {
				return nil, fmt.Errorf("map key %#v (%T) is not a string", k, k)
			}
			z, err := Normalize(y)
			if err != nil {
				return nil, err
			}
			acc[s] = z
		}
		return acc, nil
	default:
		return nil, &NotAValue{x}
	}
}

func normalizeMap(m map[string]interface{}) (map[string]interface{}, error) {
	acc := make(map[string]interface{}, len(m))
	for k, y := range m {
		z, err := Normalize(y)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		acc[k] = z
	}
	return acc, nil
}

// NormalizeMap is Normalize for a map, which is what Configurations and
// Events are made of.
func NormalizeMap(m map[string]interface{}) (map[string]interface{}, error) {
	if m == nil {
		return make(map[string]interface{}), nil
	}
	return normalizeMap(m)
}

// deepCopy copies maps and slices recursively.  Leaves are shared,
// which is fine since value leaves are immutable.
func deepCopy(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, y := range vv {
			acc[k] = deepCopy(y)
		}
		return acc
	case Configuration:
		return map[string]interface{}(vv.Copy())
	case Event:
		return map[string]interface{}(vv.Copy())
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, y := range vv {
			acc[i] = deepCopy(y)
		}
		return acc
	default:
		return x
	}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	acc := make(map[string]interface{}, len(m))
	for k, v := range m {
		acc[k] = deepCopy(v)
	}
	return acc
}

// ValueEqual reports whether two values are equal.
//
// Numbers compare by value, so int64(2) equals float64(2).
func ValueEqual(x, y interface{}) bool {
	if a, is := number(x); is {
		b, is := number(y)
		return is && a == b
	}
	switch vv := x.(type) {
	case nil:
		return y == nil
	case bool:
		b, is := y.(bool)
		return is && vv == b
	case string:
		s, is := y.(string)
		return is && vv == s
	case []interface{}:
		ys, is := y.([]interface{})
		if !is || len(vv) != len(ys) {
			return false
		}
		for i := range vv {
			if !ValueEqual(vv[i], ys[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		m, is := asMap(y)
		return is && mapEqual(vv, m)
	case Configuration:
		m, is := asMap(y)
		return is && mapEqual(vv, m)
	case Event:
		m, is := asMap(y)
		return is && mapEqual(vv, m)
	default:
		return false
	}
}

func asMap(x interface{}) (map[string]interface{}, bool) {
	switch vv := x.(type) {
	case map[string]interface{}:
		return vv, true
	case Configuration:
		return vv, true
	case Event:
		return vv, true
	}
	return nil, false
}

func mapEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, x := range a {
		y, have := b[k]
		if !have || !ValueEqual(x, y) {
			return false
		}
	}
	return true
}

// number returns the numeric value (if any) of x.
func number(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case int64:
		return float64(vv), true
	case int:
		return float64(vv), true
	case float64:
		return vv, true
	}
	return 0, false
}

// Number returns the float64 value of a numeric value or false.
func Number(x interface{}) (float64, bool) {
	return number(x)
}

// Configuration is the state of an Engine.
//
// An Engine never changes a Configuration that it has published.
// Successful transitions replace the whole thing.
type Configuration map[string]interface{}

// NewConfiguration makes an empty Configuration.
func NewConfiguration() Configuration {
	return make(Configuration, 8)
}

// Copy makes a deep copy.
func (c Configuration) Copy() Configuration {
	return Configuration(copyMap(c))
}

// Equal compares content.
func (c Configuration) Equal(other Configuration) bool {
	return mapEqual(c, other)
}

// String renders the Configuration as JSON.
func (c Configuration) String() string {
	return jsString(map[string]interface{}(c))
}

// Event is a stimulus, either given to an Engine or emitted by one.
type Event map[string]interface{}

// Copy makes a deep copy.
func (e Event) Copy() Event {
	return Event(copyMap(e))
}

// Equal compares content.
func (e Event) Equal(other Event) bool {
	return mapEqual(e, other)
}

func (e Event) String() string {
	return jsString(map[string]interface{}(e))
}

// copyEvents deep copies a list of events.
func copyEvents(es []Event) []Event {
	acc := make([]Event, len(es))
	for i, e := range es {
		acc[i] = e.Copy()
	}
	return acc
}

// jsString renders a map as JSON with sorted keys (which
// encoding/json does anyway).
func jsString(m map[string]interface{}) string {
	js, err := json.Marshal(m)
	if err != nil {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("%v", keys)
	}
	return string(js)
}

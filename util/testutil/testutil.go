/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package testutil

import (
	"encoding/json"
	"fmt"
)

// JS renders x as compact JSON with sorted map keys, which makes
// configurations and events easy to compare in tests.  If x can't be
// marshaled, JS returns a Go rendering that won't equal any JSON.
func JS(x interface{}) string {
	bs, err := json.Marshal(x)
	if err != nil {
		return fmt.Sprintf("!%#v", x)
	}
	return string(bs)
}

// Map parses the given JSON object.  Numbers that are integers come
// back as int64, which is what engines use.
//
// Panics if the JSON isn't an object.
func Map(js string) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(js), &m); err != nil {
		panic(err)
	}
	return ints(m).(map[string]interface{})
}

func ints(x interface{}) interface{} {
	switch vv := x.(type) {
	case float64:
		if vv == float64(int64(vv)) {
			return int64(vv)
		}
		return vv
	case map[string]interface{}:
		for k, y := range vv {
			vv[k] = ints(y)
		}
		return vv
	case []interface{}:
		for i, y := range vv {
			vv[i] = ints(y)
		}
		return vv
	default:
		return x
	}
}

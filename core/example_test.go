/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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
	"context"
	"fmt"
)

// Example demonstrates Consume()ing.
func Example() {

	ev := NewFuncEvaluator().
		Def("wants tacos", func(ctx context.Context, s *Scope) (interface{}, error) {
			return s.Event["want"] == "tacos", nil
		}).
		Def("count", func(ctx context.Context, s *Scope) (interface{}, error) {
			n, _ := s.Configuration["served"].(int64)
			s.Configuration["served"] = n + 1
			return nil, nil
		}).
		Def("serve", func(ctx context.Context, s *Scope) (interface{}, error) {
			s.Output = append(s.Output, map[string]interface{}{
				"serve": "tacos",
			})
			return nil, nil
		})

	e := NewEngine("taqueria", ev, nil)
	e.AddRule(&Rule{
		Id:      "order",
		Guards:  NewGuardSet("wants tacos"),
		Actions: []string{"count", "serve"},
	})

	ctx := context.Background()
	fmt.Println(e.Consume(ctx, Event{"want": "tacos"}))
	fmt.Println(e.Consume(ctx, Event{"want": "chips"}))
	fmt.Println(e.Configuration())
	fmt.Println(e.OutputEvents())

	// Output:
	// true
	// false
	// {"served":1}
	// [{"serve":"tacos"}]
}

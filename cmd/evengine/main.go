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

// Package main is evengine, a command-line tool for event engines.
//
// Run an engine over a list of events:
//
//    evengine run toggle.yaml toggle-events.yaml
//
// Poke at an engine interactively:
//
//    evengine console toggle.yaml
//
// Couple an engine to stdin/stdout, an MQTT broker, or a WebSocket
// server:
//
//    evengine serve --io mq --mq-topics 'orders:1' orders.yaml
//
// Check sessions of expectations:
//
//    evengine test taqueria.session.yaml
//
// Render an engine:
//
//    evengine render --as mermaid orders.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "evengine: %s\n", err)
		os.Exit(GetExitCode(err))
	}
}

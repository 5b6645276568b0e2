// Package eventengine provides rule-driven event processing.
//
// An engine holds a configuration and an ordered list of rules.  Each
// rule has guards and actions written in a pluggable expression
// language.  The engine consumes an event by evaluating guards,
// selecting one matching rule, and running its actions, which can
// update the configuration and emit output events for a downstream
// engine.
//
// The engine itself is in package 'core'.  Evaluators are in
// 'interpreters', YAML specs are read by 'loader', couplings to
// stdio, MQTT, and WebSockets are in 'sio', and the 'evengine'
// command is in cmd.
package eventengine

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

// Package goja provides a core.Evaluator for ECMAScript 5.1 guards and
// actions.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/Comcast/eventengine/core"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Eval if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// emitSrc defines emit(), which is output.push() that returns its
// argument.
var emitSrc = `function emit(x) { output.push(x); return x; }`

var emitProgram = goja.MustCompile("emit", emitSrc, true)

// Interpreter implements core.Evaluator using Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
//
// A guard is an expression whose value should be a boolean.  An
// action is a sequence of statements.  Both see these globals:
//
//    configuration: a copy of the configuration
//    event: the event being consumed
//    output: the array of events to emit (actions)
//    environment: the engine's environment (actions)
//    emit(obj): output.push(obj)
//    gensym(): a fresh, random string
//    cronNext(expr): the next time (RFC3339) for the cron expression
//    log(x): log x as JSON
//
// Each method in the Scope is also a global.
//
// An action can reassign configuration and output, and the new
// values are used.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.  With Testing, sleep(ms) is available.
	Testing bool

	// LibraryProvider resolves the names given to require().
	// When nil, require() is an error.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// ProvideLibrary resolves the library name into source.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider == nil {
		return "", fmt.Errorf("no library provider for '%s'", name)
	}
	return i.LibraryProvider(ctx, i, name)
}

// MakeFileLibraryProvider makes a library provider that reads
// libraries named "file://NAME" from the given directory.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		if parts[0] != "file" {
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
		filename := filepath.Clean("/" + parts[1])
		bs, err := ioutil.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return "", err
		}
		return string(bs), nil
	}
}

// MakeMapLibraryProvider makes a library provider from a map from
// names to sources.
func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

// Compile inlines any top-level require() calls and then calls
// goja.Compile.
//
// This method can block if the interpreter's LibraryProvider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, expr string) (interface{}, error) {
	code := expr
	if strings.Contains(code, "require(") {
		var err error
		if code, err = InlineRequires(ctx, code, i.ProvideLibrary); err != nil {
			return nil, err
		}
	}

	p, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Eval implements core.Evaluator.
//
// After the program runs, the scope's Configuration and Output are
// whatever the runtime's configuration and output are.  Guards
// (scope.ReadOnly) don't get output, environment, or methods.
func (i *Interpreter) Eval(ctx context.Context, expr string, compiled interface{}, scope *core.Scope) (interface{}, error) {
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, expr); err != nil {
			return nil, err
		}
	}
	p, is := compiled.(*goja.Program)
	if !is {
		return nil, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	o := goja.New()

	if scope.Configuration == nil {
		scope.Configuration = make(map[string]interface{})
	}
	if scope.Event == nil {
		scope.Event = make(map[string]interface{})
	}
	o.Set("configuration", native(o, scope.Configuration))
	o.Set("event", native(o, scope.Event))

	if !scope.ReadOnly {
		if scope.Environment == nil {
			scope.Environment = make(map[string]interface{})
		}
		o.Set("environment", native(o, scope.Environment))
		o.Set("output", native(o, scope.Output))
		for name, m := range scope.Methods {
			o.Set(name, m)
		}
		if _, err := o.RunProgram(emitProgram); err != nil {
			return nil, err
		}
	}

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	o.Set("gensym", func() interface{} {
		return uuid.New().String()
	})

	o.Set("cronNext", func(x interface{}) interface{} {
		cronExpr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}

		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	})

	o.Set("log", func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			log.Println("goja.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Println(string(js))
		}
		return x
	})

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If this Eval method calls cancel() after RunProgram
		// returns, then we'll never see this
		// InterruptedMessage, which is actually the behavior
		// we want.  In this case, we weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	if !scope.ReadOnly {
		if err = i.collect(o, scope); err != nil {
			return nil, err
		}
	}

	if v == nil {
		return nil, nil
	}
	return v.Export(), nil
}

// native builds plain ECMAScript objects and arrays from a value so
// that scripts can grow arrays and add properties.  Go maps and
// slices handed to goja directly are wrapped with fixed shapes.
func native(o *goja.Runtime, x interface{}) goja.Value {
	switch vv := x.(type) {
	case map[string]interface{}:
		obj := o.NewObject()
		for k, y := range vv {
			obj.Set(k, native(o, y))
		}
		return obj
	case []interface{}:
		ys := make([]interface{}, len(vv))
		for i, y := range vv {
			ys[i] = native(o, y)
		}
		return o.NewArray(ys...)
	default:
		return o.ToValue(x)
	}
}

// collect reads configuration and output back out of the runtime.
func (i *Interpreter) collect(o *goja.Runtime, scope *core.Scope) error {
	switch vv := exportGlobal(o, "configuration").(type) {
	case map[string]interface{}:
		scope.Configuration = vv
	default:
		return fmt.Errorf("configuration %#v (%T) isn't a map", vv, vv)
	}

	switch vv := exportGlobal(o, "output").(type) {
	case []interface{}:
		scope.Output = vv
	case nil:
		scope.Output = scope.Output[:0]
	default:
		return fmt.Errorf("output %#v (%T) isn't an array", vv, vv)
	}

	return nil
}

func exportGlobal(o *goja.Runtime, name string) interface{} {
	v := o.Get(name)
	if v == nil {
		return nil
	}
	return v.Export()
}

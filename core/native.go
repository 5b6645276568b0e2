package core

import (
	"context"
	"errors"
)

// UnknownExpression occurs when a FuncEvaluator is asked to compile an
// expression it doesn't have.
var UnknownExpression = errors.New("unknown expression")

// ExprFunc is a native expression implemented in Go.
type ExprFunc func(ctx context.Context, scope *Scope) (interface{}, error)

// FuncEvaluator is an Evaluator whose "expressions" are names of Go
// functions.
//
// Handy for tests and for engines built in Go rather than loaded from
// a spec.
type FuncEvaluator struct {
	Funcs map[string]ExprFunc
}

// NewFuncEvaluator makes an empty FuncEvaluator.
func NewFuncEvaluator() *FuncEvaluator {
	return &FuncEvaluator{
		Funcs: make(map[string]ExprFunc),
	}
}

// Def defines (or redefines) the named function and returns the
// receiver.
func (f *FuncEvaluator) Def(name string, fn ExprFunc) *FuncEvaluator {
	f.Funcs[name] = fn
	return f
}

func (f *FuncEvaluator) Compile(ctx context.Context, expr string) (interface{}, error) {
	fn, have := f.Funcs[expr]
	if !have {
		return nil, errors.New(UnknownExpression.Error() + ": " + expr)
	}
	return fn, nil
}

func (f *FuncEvaluator) Eval(ctx context.Context, expr string, compiled interface{}, scope *Scope) (interface{}, error) {
	fn, is := compiled.(ExprFunc)
	if !is {
		x, err := f.Compile(ctx, expr)
		if err != nil {
			return nil, err
		}
		fn = x.(ExprFunc)
	}
	return fn(ctx, scope)
}

package goja

import (
	"context"
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// InlineRequires generates new source code that replaces top-level
// require("NAME") statements with the source that the provider gives
// for NAME.
//
// Inlining at compile time (rather than offering a require() function
// at runtime) lets guards and actions that use libraries be compiled
// once.
func InlineRequires(ctx context.Context, src string, provider func(context.Context, string) (string, error)) (string, error) {

	p, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return "", err
	}

	type Required struct {
		// From and To are byte offsets into src.
		From, To int
		Name     string
	}

	requires := make([]Required, 0, 8)

	for _, s := range p.Body {
		exps, is := s.(*ast.ExpressionStatement)
		if !is {
			continue
		}

		call, is := exps.Expression.(*ast.CallExpression)
		if !is {
			continue
		}

		id, is := call.Callee.(*ast.Identifier)
		if !is {
			continue
		}
		if id.Name != "require" {
			continue
		}
		if len(call.ArgumentList) != 1 {
			return "", fmt.Errorf("bad require args: %#v", call.ArgumentList)
		}

		arg := call.ArgumentList[0]
		lit, is := arg.(*ast.StringLiteral)
		if !is {
			return "", fmt.Errorf("bad require arg: %#v", arg)
		}

		// File indexes start at 1.
		requires = append(requires, Required{
			From: int(call.Idx0()) - 1,
			To:   int(call.Idx1()) - 1,
			Name: lit.Value.String(),
		})
	}

	if len(requires) == 0 {
		return src, nil
	}

	var (
		inlined string
		at      int
	)
	for _, r := range requires {
		lib, err := provider(ctx, r.Name)
		if err != nil {
			return "", err
		}
		inlined += src[at:r.From] + "\n" + lib + "\n"
		at = r.To
	}
	inlined += src[at:]

	return inlined, nil
}

package typify

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/pass"
)

func typifyFuncallArg(c *pass.Context, n ast.Node) error {
	a := n.(*ast.FuncallArg)
	if a.Exp == nil {
		return nil
	}
	t, err := typeOf(a.Exp)
	if err != nil {
		return err
	}
	a.SetType(t)
	return nil
}

// typifyFuncall checks a call against the type of its callee. Named actuals
// are reordered into formal order, with placeholders for omitted optional
// formals, so that afterwards actual i is bound to formal i.
func typifyFuncall(c *pass.Context, n ast.Node) error {
	call := n.(*ast.Funcall)
	ft, err := typeOf(call.Function)
	if err != nil {
		return err
	}
	if !ft.IsFunction() {
		return fail(c, call.Function, "invalid callee: expected a function, got %s", ft)
	}

	named := 0
	for _, a := range call.Args {
		if a.Name != nil {
			named++
		}
	}
	switch {
	case named == 0:
		if err := bindPositional(c, call, ft); err != nil {
			return err
		}
	case named == len(call.Args):
		if err := bindNamed(c, call, ft); err != nil {
			return err
		}
	default:
		return fail(c, call, "mixed named and positional arguments in funcall")
	}

	fixed := len(ft.Args)
	if ft.HasVararg() {
		fixed--
		if len(call.Args) > fixed && call.Args[fixed].Exp != nil {
			call.Args[fixed].FirstVararg = true
		}
	}
	for i, a := range call.Args {
		if i >= fixed || a.Exp == nil {
			continue
		}
		at, err := typeOf(a)
		if err != nil {
			return err
		}
		formal := ft.Args[i]
		if !ast.Promotable(at, formal.ArgType) {
			return fail(c, a, "function argument %d has the wrong type: expected %s, got %s", i+1, formal.ArgType, at)
		}
	}

	if ft.Return.IsVoid() {
		if _, isStmt := c.Parent().(*ast.ExpStmt); !isStmt {
			return fail(c, call, "function doesn't return a value")
		}
	}
	call.SetType(ft.Return)
	return nil
}

func bindPositional(c *pass.Context, call *ast.Funcall, ft *ast.Type) error {
	if len(call.Args) < ft.MandatoryArgs() {
		return fail(c, call, "too few arguments passed to function")
	}
	fixed := len(ft.Args)
	if ft.HasVararg() {
		fixed--
	} else if len(call.Args) > fixed {
		return fail(c, call, "too many arguments passed to function")
	}
	for i := len(call.Args); i < fixed; i++ {
		call.Args = append(call.Args, ast.WithSpan(ast.NewFuncallArg(nil, nil), call.Span()))
	}
	return nil
}

func bindNamed(c *pass.Context, call *ast.Funcall, ft *ast.Type) error {
	for _, formal := range ft.Args {
		if formal.Name == nil {
			return fail(c, call, "function doesn't take named arguments")
		}
	}
	byName := make(map[string]*ast.FuncallArg, len(call.Args))
	for _, a := range call.Args {
		name := a.Name.Name
		if _, dup := byName[name]; dup {
			return fail(c, a, "duplicated argument `%s' in funcall", name)
		}
		idx := -1
		for i, formal := range ft.Args {
			if formal.ArgName() == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fail(c, a, "function doesn't take a `%s' argument", name)
		}
		if ft.Args[idx].Vararg {
			return fail(c, a, "vararg argument `%s' cannot be passed by name", name)
		}
		byName[name] = a
	}

	ordered := make([]*ast.FuncallArg, 0, len(ft.Args))
	for _, formal := range ft.Args {
		if formal.Vararg {
			break
		}
		if a, ok := byName[formal.ArgName()]; ok {
			ordered = append(ordered, a)
			continue
		}
		if !formal.Optional {
			return fail(c, call, "required argument `%s' not specified in funcall", formal.ArgName())
		}
		ordered = append(ordered, ast.WithSpan(ast.NewFuncallArg(formal.Name, nil), call.Span()))
	}
	call.Args = ordered
	return nil
}

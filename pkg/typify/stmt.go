package typify

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
)

// varargType is the type of the formal collecting the variable arguments.
func varargType() *ast.Type {
	return ast.NewArrayType(ast.NewAnyType(), nil)
}

// typifyFunc types a function on entry so that references to it from its own
// body already see its type.
func typifyFunc(c *pass.Context, n ast.Node) error {
	fn := n.(*ast.Func)
	if fn.RetType == nil {
		return diag.ICE(n, "function %q has no return type", fn.Name)
	}
	args := make([]*ast.FuncTypeArg, 0, len(fn.Args))
	for _, a := range fn.Args {
		if a.Vararg && a.ArgType == nil {
			a.ArgType = varargType()
		}
		if a.ArgType == nil {
			return diag.ICE(a, "formal argument has no type")
		}
		args = append(args, ast.NewFuncTypeArg(a.Name, a.ArgType, a.Initial != nil, a.Vararg))
	}
	fn.SetType(ast.WithSpan(ast.NewFunctionType(fn.RetType, args), fn.Span()))
	return nil
}

func typifyFuncArg(c *pass.Context, n ast.Node) error {
	a := n.(*ast.FuncArg)
	a.SetType(a.ArgType)
	if a.Initial == nil {
		return nil
	}
	t, err := typeOf(a.Initial)
	if err != nil {
		return err
	}
	if !ast.Promotable(t, a.ArgType) {
		return fail(c, a.Initial, "invalid default value for argument `%s': expected %s, got %s",
			a.Name.Name, a.ArgType, t)
	}
	return nil
}

func isLValue(n ast.Node) bool {
	switch n.(type) {
	case *ast.Var, *ast.Indexer, *ast.StructRef, *ast.Map:
		return true
	}
	return false
}

func typifyAssStmt(c *pass.Context, n ast.Node) error {
	ass := n.(*ast.AssStmt)
	if !isLValue(ass.LValue) {
		return fail(c, ass.LValue, "invalid l-value in assignment")
	}
	if v, ok := ass.LValue.(*ast.Var); ok && v.Decl != nil && v.Decl.Kind != ast.DeclVar {
		return fail(c, ass.LValue, "cannot assign to %s `%s'", v.Decl.Kind, v.Decl.DeclName())
	}
	lt, err := typeOf(ass.LValue)
	if err != nil {
		return err
	}
	rt, err := typeOf(ass.Exp)
	if err != nil {
		return err
	}
	if !ast.Promotable(rt, lt) {
		return fail(c, ass.Exp, "r-value in assignment has the wrong type: expected %s, got %s", lt, rt)
	}
	return nil
}

func checkCondition(c *pass.Context, cond ast.Node) error {
	if cond == nil {
		return nil
	}
	t, err := typeOf(cond)
	if err != nil {
		return err
	}
	if !t.IsIntegral() {
		return fail(c, cond, "invalid condition: expected integral, got %s", t)
	}
	return nil
}

func typifyIfStmt(c *pass.Context, n ast.Node) error {
	return checkCondition(c, n.(*ast.IfStmt).Cond)
}

func typifyLoopStmt(c *pass.Context, n ast.Node) error {
	return checkCondition(c, n.(*ast.LoopStmt).Cond)
}

// typifyLoopIterator types the container before the iterator variable, which
// precedes it in the traversal, and derives the variable's type from it.
func typifyLoopIterator(c *pass.Context, n ast.Node) error {
	it := n.(*ast.LoopStmtIterator)
	container, err := c.Subpass(it.Container)
	if err != nil {
		return err
	}
	it.Container = container
	t, err := typeOf(container)
	if err != nil {
		return err
	}
	switch {
	case t.IsArray():
		it.Decl.SetType(t.Elem)
	case t.IsString():
		it.Decl.SetType(ast.NewIntegralType(8, false))
	default:
		return fail(c, container, "invalid container in for-in loop: expected array or string, got %s", t)
	}
	c.Break()
	return nil
}

func typifyReturnStmt(c *pass.Context, n ast.Node) error {
	ret := n.(*ast.ReturnStmt)
	if ret.Function == nil {
		// Reported by anal1.
		return nil
	}
	want := ret.Function.RetType
	if ret.Exp == nil {
		if !want.IsVoid() {
			return fail(c, ret, "the function expects a return value of type %s", want)
		}
		return nil
	}
	if want.IsVoid() {
		return fail(c, ret.Exp, "returning a value in a void function")
	}
	t, err := typeOf(ret.Exp)
	if err != nil {
		return err
	}
	if !ast.Promotable(t, want) {
		return fail(c, ret.Exp, "returning an expression of the wrong type: expected %s, got %s", want, t)
	}
	return nil
}

func typifyRaiseStmt(c *pass.Context, n ast.Node) error {
	raise := n.(*ast.RaiseStmt)
	if raise.Exp == nil {
		return nil
	}
	t, err := typeOf(raise.Exp)
	if err != nil {
		return err
	}
	if !t.IsIntegral() {
		return fail(c, raise.Exp, "invalid exception code: expected integral, got %s", t)
	}
	return nil
}

func typifyPrintStmt(c *pass.Context, n ast.Node) error {
	t, err := typeOf(n.(*ast.PrintStmt).Exp)
	if err != nil {
		return err
	}
	if !t.IsString() {
		return fail(c, n, "invalid operand to print: expected string, got %s", t)
	}
	return nil
}

// typifyTryCatchStmt types the exception variable before the handler that
// uses it is visited.
func typifyTryCatchStmt(c *pass.Context, n ast.Node) error {
	tc := n.(*ast.TryCatchStmt)
	if tc.Arg != nil {
		tc.Arg.SetType(ast.NewIntegralType(32, true))
	}
	return nil
}

func typifyCatchCond(c *pass.Context, n ast.Node) error {
	return checkCondition(c, n.(*ast.TryCatchStmt).Cond)
}

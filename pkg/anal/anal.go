// Package anal holds the validation phases. Anal1 runs before type inference
// and checks the shape of the tree; it reports problems but never aborts the
// pass. Anal2 runs last and verifies that the earlier phases left the tree in
// the state the code generator expects.
package anal

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
)

// Phase1 returns the anal1 phase. Its payload is a *diag.Reporter.
func Phase1() *pass.Phase {
	return pass.NewPhase("anal1").
		OnKind(pass.Exit, ast.NodeStruct, checkStructLiteral).
		OnType(pass.Exit, ast.TypeStruct, checkStructType).
		OnType(pass.Exit, ast.TypeFunction, checkFunctionType).
		OnKind(pass.Exit, ast.NodeFunc, checkFunc).
		OnKind(pass.Exit, ast.NodeFuncall, checkFuncall).
		OnKind(pass.Exit, ast.NodeBreakStmt, checkBreak).
		OnKind(pass.Exit, ast.NodeContinueStmt, checkContinue).
		OnKind(pass.Exit, ast.NodeReturnStmt, checkReturn).
		OnKind(pass.Exit, ast.NodeCompStmt, checkUnreachable)
}

func reporter(c *pass.Context) *diag.Reporter {
	return c.Payload().(*diag.Reporter)
}

func checkStructLiteral(c *pass.Context, n ast.Node) error {
	seen := make(map[string]bool)
	for _, f := range n.(*ast.Struct).Fields {
		if f.Name == nil {
			continue
		}
		if seen[f.Name.Name] {
			reporter(c).Error(f, "duplicated field `%s' in struct literal", f.Name.Name)
		}
		seen[f.Name.Name] = true
	}
	return nil
}

func checkStructType(c *pass.Context, n ast.Node) error {
	seen := make(map[string]bool)
	for _, f := range n.(*ast.Type).Fields {
		name := f.FieldName()
		if name == "" {
			continue
		}
		if seen[name] {
			reporter(c).Error(f, "duplicated field `%s' in struct type", name)
		}
		seen[name] = true
	}
	return nil
}

func checkFunctionType(c *pass.Context, n ast.Node) error {
	seen := make(map[string]bool)
	for _, a := range n.(*ast.Type).Args {
		name := a.ArgName()
		if name == "" {
			continue
		}
		if seen[name] {
			reporter(c).Error(a, "duplicated argument `%s' in function type", name)
		}
		seen[name] = true
	}
	return nil
}

func checkFunc(c *pass.Context, n ast.Node) error {
	fn := n.(*ast.Func)
	seen := make(map[string]bool)
	optional := false
	for i, a := range fn.Args {
		if a.Name != nil {
			if seen[a.Name.Name] {
				reporter(c).Error(a, "duplicated argument `%s' in function", a.Name.Name)
			}
			seen[a.Name.Name] = true
		}
		if a.Vararg && i != len(fn.Args)-1 {
			reporter(c).Error(a, "vararg argument must be the last argument")
		}
		if a.Initial != nil {
			optional = true
		} else if optional && !a.Vararg {
			reporter(c).Error(a, "non-optional argument after optional arguments")
		}
	}
	return nil
}

func checkFuncall(c *pass.Context, n ast.Node) error {
	call := n.(*ast.Funcall)
	named := 0
	for _, a := range call.Args {
		if a.Name != nil {
			named++
		}
	}
	if named > 0 && named != len(call.Args) {
		reporter(c).Error(call, "mixed named and positional arguments in funcall")
	}
	return nil
}

func checkBreak(c *pass.Context, n ast.Node) error {
	if n.(*ast.BreakStmt).Entity == nil {
		reporter(c).Error(n, "`break' statement without a containing loop")
	}
	return nil
}

func checkContinue(c *pass.Context, n ast.Node) error {
	if n.(*ast.ContinueStmt).Entity == nil {
		reporter(c).Error(n, "`continue' statement without a containing loop")
	}
	return nil
}

func checkReturn(c *pass.Context, n ast.Node) error {
	if n.(*ast.ReturnStmt).Function == nil {
		reporter(c).Error(n, "`return' statement outside of a function")
	}
	return nil
}

// checkUnreachable warns once about the first statement following a jump.
func checkUnreachable(c *pass.Context, n ast.Node) error {
	stmts := n.(*ast.CompStmt).Stmts
	for i, stmt := range stmts[:max(len(stmts)-1, 0)] {
		switch stmt.(type) {
		case *ast.ReturnStmt, *ast.BreakStmt, *ast.ContinueStmt, *ast.RaiseStmt:
			reporter(c).Warning(stmts[i+1], "unreachable statement")
			return nil
		}
	}
	return nil
}

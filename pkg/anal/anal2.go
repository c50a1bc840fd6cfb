package anal

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
)

// Phase2 returns the anal2 phase. Every violation it finds is an internal
// compiler error.
func Phase2() *pass.Phase {
	return pass.NewPhase("anal2").
		OnDefault(pass.Exit, checkTyped).
		OnKind(pass.Exit, ast.NodeTypeNode, checkCompleteness).
		OnKind(pass.Exit, ast.NodeFuncall, checkActuals)
}

func mustBeTyped(n ast.Node) bool {
	switch n.(type) {
	case *ast.Exp, *ast.CondExp, *ast.Array, *ast.Struct, *ast.Offset, *ast.Map, *ast.Scons,
		*ast.Var, *ast.Funcall, *ast.Cast, *ast.Isa, *ast.Indexer, *ast.Trimmer, *ast.StructRef,
		*ast.Integer, *ast.String, *ast.Lambda:
		return true
	}
	return false
}

func checkTyped(c *pass.Context, n ast.Node) error {
	t := n.Type()
	if t == nil {
		if mustBeTyped(n) {
			return diag.ICE(n, "node has no type")
		}
		return nil
	}
	if t.Complete == ast.CompleteUnknown {
		return diag.ICE(n, "type %s of node has unknown completeness", t)
	}
	return nil
}

func checkCompleteness(c *pass.Context, n ast.Node) error {
	if t := n.(*ast.Type); t.Complete == ast.CompleteUnknown {
		return diag.ICE(n, "type %s has unknown completeness", t)
	}
	return nil
}

// checkActuals verifies that typify1 bound every actual to a formal.
func checkActuals(c *pass.Context, n ast.Node) error {
	call := n.(*ast.Funcall)
	fnType := call.Function.Type()
	if !fnType.IsFunction() {
		return diag.ICE(n, "callee of type %s is not a function", fnType)
	}
	if len(call.Args) > len(fnType.Args) && !fnType.HasVararg() {
		return diag.ICE(n, "funcall has %d actuals for %d formals", len(call.Args), len(fnType.Args))
	}
	for i, a := range call.Args {
		if a.Exp == nil && (i >= len(fnType.Args) || !fnType.Args[i].Optional) {
			return diag.ICE(a, "missing actual for mandatory formal %d", i)
		}
	}
	return nil
}

package typify

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
)

// Phase2 returns the typify2 phase. Its payload is a *diag.Reporter.
func Phase2() *pass.Phase {
	return pass.NewPhase("typify2").
		OnDefault(pass.Exit, completeAttached).
		OnKind(pass.Exit, ast.NodeTypeNode, completeType).
		OnOp(pass.Exit, ast.OpSizeof, checkSizeof)
}

func completeAttached(c *pass.Context, n ast.Node) error {
	if t := n.Type(); t != nil {
		ast.DeriveCompleteness(t)
	}
	return nil
}

func completeType(c *pass.Context, n ast.Node) error {
	t := n.(*ast.Type)
	ast.DeriveCompleteness(t)
	if !t.IsArray() || t.Bound == nil {
		return nil
	}
	var positive bool
	switch b := t.Bound.(type) {
	case *ast.Integer:
		positive = b.IsPositive()
	case *ast.Offset:
		mag, ok := b.Magnitude.(*ast.Integer)
		if !ok {
			return nil
		}
		positive = mag.IsPositive()
	default:
		return nil
	}
	if !positive {
		reporter(c).Error(t.Bound, "array dimensions must be greater than zero")
		return pass.ErrFailed
	}
	return nil
}

func checkSizeof(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	var t *ast.Type
	switch op := exp.Operands[0].(type) {
	case *ast.Type:
		t = op
	default:
		t = op.Type()
	}
	if t == nil {
		return diag.ICE(exp, "sizeof operand has no type")
	}
	if ast.DeriveCompleteness(t) != ast.CompleteYes {
		reporter(c).Error(exp, "invalid operand to sizeof: type %s is not complete", t)
		return pass.ErrFailed
	}
	return nil
}

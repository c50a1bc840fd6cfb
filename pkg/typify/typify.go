// Package typify implements the type inference phases.
//
// Typify1 attaches a type to every expression, checks that operators are
// applied to operands they accept and binds function call actuals to formals.
// A type error is reported, counted in the phase payload and aborts the pass.
// Typify2 runs after constant folding and settles the completeness of every
// type, now that array bounds may have become literals.
package typify

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
)

// Phase1 returns the typify1 phase. Its payload is a *diag.Reporter.
func Phase1() *pass.Phase {
	p := pass.NewPhase("typify1").
		OnKind(pass.Exit, ast.NodeInteger, typifyInteger).
		OnKind(pass.Exit, ast.NodeString, typifyString).
		OnKind(pass.Exit, ast.NodeVar, typifyVar).
		OnKind(pass.Exit, ast.NodeCondExp, typifyCondExp).
		OnKind(pass.Exit, ast.NodeArray, typifyArray).
		OnKind(pass.Exit, ast.NodeArrayInitializer, typifyArrayInitializer).
		OnKind(pass.Exit, ast.NodeStruct, typifyStruct).
		OnKind(pass.Exit, ast.NodeStructField, typifyStructField).
		OnKind(pass.Exit, ast.NodeStructRef, typifyStructRef).
		OnKind(pass.Exit, ast.NodeIndexer, typifyIndexer).
		OnKind(pass.Exit, ast.NodeTrimmer, typifyTrimmer).
		OnKind(pass.Exit, ast.NodeOffset, typifyOffset).
		OnKind(pass.Exit, ast.NodeCast, typifyCast).
		OnKind(pass.Exit, ast.NodeIsa, typifyIsa).
		OnKind(pass.Exit, ast.NodeMap, typifyMap).
		OnKind(pass.Exit, ast.NodeScons, typifyScons).
		OnKind(pass.Exit, ast.NodeFuncall, typifyFuncall).
		OnKind(pass.Exit, ast.NodeFuncallArg, typifyFuncallArg).
		OnKind(pass.Exit, ast.NodeLambda, typifyLambda).
		OnKind(pass.Entry, ast.NodeFunc, typifyFunc).
		OnKind(pass.Exit, ast.NodeFuncArg, typifyFuncArg).
		OnKind(pass.Exit, ast.NodeDecl, typifyDecl).
		OnType(pass.Exit, ast.TypeArray, typifyArrayType).
		OnType(pass.Exit, ast.TypeOffset, typifyOffsetType).
		OnKind(pass.Exit, ast.NodeStructTypeField, typifyStructTypeField).
		OnKind(pass.Exit, ast.NodeAssStmt, typifyAssStmt).
		OnKind(pass.Exit, ast.NodeIfStmt, typifyIfStmt).
		OnKind(pass.Exit, ast.NodeLoopStmt, typifyLoopStmt).
		OnKind(pass.Entry, ast.NodeLoopStmtIterator, typifyLoopIterator).
		OnKind(pass.Exit, ast.NodeReturnStmt, typifyReturnStmt).
		OnKind(pass.Exit, ast.NodeRaiseStmt, typifyRaiseStmt).
		OnKind(pass.Exit, ast.NodePrintStmt, typifyPrintStmt).
		OnKind(pass.Entry, ast.NodeTryCatchStmt, typifyTryCatchStmt).
		OnKind(pass.Exit, ast.NodeTryCatchStmt, typifyCatchCond)
	registerOperators(p)
	return p
}

func reporter(c *pass.Context) *diag.Reporter {
	return c.Payload().(*diag.Reporter)
}

// fail reports a type error about n and aborts the pass.
func fail(c *pass.Context, n ast.Node, format string, args ...any) error {
	reporter(c).Error(n, format, args...)
	return pass.ErrFailed
}

// typeOf returns the type typify1 attached to n, which must exist because
// children are typed before their parents.
func typeOf(n ast.Node) (*ast.Type, error) {
	if t := n.Type(); t != nil {
		return t, nil
	}
	return nil, diag.ICE(n, "expression reached its parent untyped")
}

func boolType() *ast.Type {
	return ast.NewBoolType()
}

func uint64Type() *ast.Type {
	return ast.NewIntegralType(64, false)
}

// bitOffsetType is offset<uint<64>,1>, the type of sizes.
func bitOffsetType() *ast.Type {
	return ast.NewOffsetTypeUnit(uint64Type(), 1)
}

// Widen returns the integral type both a and b convert to in arithmetic:
// the widest width, signed only if both are signed.
func Widen(a, b *ast.Type) *ast.Type {
	return ast.NewIntegralType(max(a.Size, b.Size), a.Signed && b.Signed)
}

// WidenOffsets returns the offset type two offset operands convert to: the
// magnitudes widen like integers and the unit is the GCD of both units.
func WidenOffsets(a, b *ast.Type) (*ast.Type, bool) {
	ua, ok := a.UnitValue()
	if !ok {
		return nil, false
	}
	ub, ok := b.UnitValue()
	if !ok {
		return nil, false
	}
	return ast.NewOffsetTypeUnit(Widen(a.Base, b.Base), ast.GCD(ua, ub)), true
}

func typifyInteger(c *pass.Context, n ast.Node) error {
	if n.Type() == nil {
		n.SetType(ast.NewIntegralType(32, true))
	}
	return nil
}

func typifyString(c *pass.Context, n ast.Node) error {
	if n.Type() == nil {
		n.SetType(ast.NewStringType())
	}
	return nil
}

// DeclType returns the type of the entity a declaration introduces.
func DeclType(decl *ast.Decl) *ast.Type {
	if t := decl.Type(); t != nil {
		return t
	}
	switch init := decl.Initial.(type) {
	case nil:
		return nil
	case *ast.Type:
		return init
	default:
		return init.Type()
	}
}

func typifyVar(c *pass.Context, n ast.Node) error {
	v := n.(*ast.Var)
	if v.Decl == nil {
		return diag.ICE(n, "variable %q is not bound to a declaration", v.Name.Name)
	}
	t := DeclType(v.Decl)
	if t == nil {
		return diag.ICE(n, "variable %q refers to an untyped declaration", v.Name.Name)
	}
	n.SetType(t)
	return nil
}

func typifyDecl(c *pass.Context, n ast.Node) error {
	decl := n.(*ast.Decl)
	switch decl.Kind {
	case ast.DeclUnit:
		decl.SetType(uint64Type())
	case ast.DeclType:
		t, ok := decl.Initial.(*ast.Type)
		if !ok {
			return diag.ICE(n, "type declaration %q has no type", decl.DeclName())
		}
		decl.SetType(t)
	default:
		if decl.Initial == nil {
			// Iterator and exception variables were typed by their statement.
			if decl.Type() == nil {
				return diag.ICE(n, "declaration %q has neither value nor type", decl.DeclName())
			}
			return nil
		}
		t, err := typeOf(decl.Initial)
		if err != nil {
			return err
		}
		if decl.Kind == ast.DeclVar && t.IsVoid() {
			return fail(c, decl.Initial, "initializing `%s' with a void value", decl.DeclName())
		}
		decl.SetType(t)
	}
	return nil
}

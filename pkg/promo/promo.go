// Package promo implements the promotion phase. After typify1 has decided
// the type every operator works in, promo wraps each operand whose type
// differs in an explicit Cast, so that the code generator finds identical
// types on both sides of every operation. A node whose operands were wrapped
// is restarted so that the phases that follow, constant folding in
// particular, see the new casts.
package promo

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
	"pkl/compiler-go/pkg/typify"
)

// Phase returns the promotion phase. It takes no payload.
func Phase() *pass.Phase {
	p := pass.NewPhase("promo").
		OnKind(pass.Exit, ast.NodeCondExp, promoteCondExp).
		OnKind(pass.Exit, ast.NodeIndexer, promoteIndexer).
		OnKind(pass.Exit, ast.NodeTrimmer, promoteTrimmer).
		OnKind(pass.Exit, ast.NodeMap, promoteMap).
		OnKind(pass.Exit, ast.NodeScons, promoteScons).
		OnKind(pass.Exit, ast.NodeFuncall, promoteFuncall).
		OnKind(pass.Exit, ast.NodeFuncArg, promoteFuncArg).
		OnType(pass.Exit, ast.TypeArray, promoteArrayBound).
		OnKind(pass.Exit, ast.NodeAssStmt, promoteAssStmt).
		OnKind(pass.Exit, ast.NodeReturnStmt, promoteReturnStmt).
		OnKind(pass.Exit, ast.NodeIfStmt, promoteIfStmt).
		OnKind(pass.Exit, ast.NodeLoopStmt, promoteLoopStmt).
		OnKind(pass.Exit, ast.NodeTryCatchStmt, promoteCatchCond)
	for _, op := range []ast.Operator{ast.OpAdd, ast.OpSub, ast.OpMod, ast.OpIor, ast.OpXor, ast.OpBand} {
		p.OnOp(pass.Exit, op, promoteArith)
	}
	p.OnOp(pass.Exit, ast.OpMul, promoteMul)
	for _, op := range []ast.Operator{ast.OpDiv, ast.OpCeilDiv} {
		p.OnOp(pass.Exit, op, promoteDiv)
	}
	for _, op := range []ast.Operator{ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe} {
		p.OnOp(pass.Exit, op, promoteRelational)
	}
	for _, op := range []ast.Operator{ast.OpAnd, ast.OpOr, ast.OpNot} {
		p.OnOp(pass.Exit, op, promoteLogical)
	}
	for _, op := range []ast.Operator{ast.OpSl, ast.OpSr, ast.OpPow} {
		p.OnOp(pass.Exit, op, promoteShift)
	}
	p.OnOp(pass.Exit, ast.OpIn, promoteIn)
	return p
}

func boolType() *ast.Type { return ast.NewBoolType() }

func indexType() *ast.Type { return ast.NewIntegralType(64, false) }

// promoter accumulates the casts inserted under one node.
type promoter struct {
	changed bool
}

// to wraps the expression in slot in a cast to typ unless it already has
// that type.
func (p *promoter) to(slot *ast.Node, typ *ast.Type) error {
	exp := *slot
	if exp == nil {
		return nil
	}
	from := exp.Type()
	if from == nil {
		return diag.ICE(exp, "operand reached promotion untyped")
	}
	if ast.Equal(from, typ) && sameUnit(from, typ) {
		return nil
	}
	if !ast.Promotable(from, typ) {
		return diag.ICE(exp, "cannot promote %s to %s", from, typ)
	}
	target := ast.DupType(typ)
	cast := ast.WithSpan(ast.NewCast(target, exp), exp.Span())
	cast.SetType(target)
	*slot = cast
	p.changed = true
	return nil
}

// sameUnit tells apart offset types that Equal considers equal because one
// of the units is not a literal.
func sameUnit(a, b *ast.Type) bool {
	if !a.IsOffset() || !b.IsOffset() {
		return true
	}
	ua, okA := a.UnitValue()
	ub, okB := b.UnitValue()
	return okA == okB && ua == ub
}

// done restarts n if any of its operands was wrapped.
func (p *promoter) done(c *pass.Context, n ast.Node) error {
	if p.changed {
		c.Restart(n)
	}
	return nil
}

func promoteArith(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	t := exp.Type()
	if t.IsString() {
		return nil
	}
	var p promoter
	for i := range exp.Operands {
		if err := p.to(&exp.Operands[i], t); err != nil {
			return err
		}
	}
	return p.done(c, n)
}

func promoteMul(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	t := exp.Type()
	var p promoter
	for i := range exp.Operands {
		target := t
		if t.IsOffset() && exp.Operands[i].Type().IsIntegral() {
			target = t.Base
		}
		if err := p.to(&exp.Operands[i], target); err != nil {
			return err
		}
	}
	return p.done(c, n)
}

func promoteDiv(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	l, r := exp.Operands[0].Type(), exp.Operands[1].Type()
	target := exp.Type()
	if l.IsOffset() && r.IsOffset() {
		var ok bool
		if target, ok = typify.WidenOffsets(l, r); !ok {
			return diag.ICE(exp, "offset division with non-constant units")
		}
	}
	var p promoter
	for i := range exp.Operands {
		if err := p.to(&exp.Operands[i], target); err != nil {
			return err
		}
	}
	return p.done(c, n)
}

func promoteRelational(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	l, r := exp.Operands[0].Type(), exp.Operands[1].Type()
	var target *ast.Type
	switch {
	case l.IsIntegral() && r.IsIntegral():
		target = typify.Widen(l, r)
	case l.IsOffset() && r.IsOffset():
		var ok bool
		if target, ok = typify.WidenOffsets(l, r); !ok {
			return diag.ICE(exp, "offset comparison with non-constant units")
		}
	default:
		return nil
	}
	var p promoter
	for i := range exp.Operands {
		if err := p.to(&exp.Operands[i], target); err != nil {
			return err
		}
	}
	return p.done(c, n)
}

func promoteLogical(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	var p promoter
	for i := range exp.Operands {
		if err := p.to(&exp.Operands[i], boolType()); err != nil {
			return err
		}
	}
	return p.done(c, n)
}

// promoteShift converts the shift count or the exponent to uint<32>.
func promoteShift(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	var p promoter
	if err := p.to(&exp.Operands[1], ast.NewIntegralType(32, false)); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteIn(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	var p promoter
	if err := p.to(&exp.Operands[0], exp.Operands[1].Type().Elem); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteCondExp(c *pass.Context, n ast.Node) error {
	cond := n.(*ast.CondExp)
	var p promoter
	if err := p.to(&cond.Cond, boolType()); err != nil {
		return err
	}
	if err := p.to(&cond.Then, cond.Type()); err != nil {
		return err
	}
	if err := p.to(&cond.Else, cond.Type()); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteIndexer(c *pass.Context, n ast.Node) error {
	idx := n.(*ast.Indexer)
	var p promoter
	if err := p.to(&idx.Index, indexType()); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteTrimmer(c *pass.Context, n ast.Node) error {
	trim := n.(*ast.Trimmer)
	var p promoter
	if err := p.to(&trim.From, indexType()); err != nil {
		return err
	}
	if err := p.to(&trim.To, indexType()); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteMap(c *pass.Context, n ast.Node) error {
	m := n.(*ast.Map)
	var p promoter
	if err := p.to(&m.Offset, ast.NewOffsetTypeUnit(indexType(), 1)); err != nil {
		return err
	}
	if err := p.to(&m.IOS, ast.NewIntegralType(32, true)); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteScons(c *pass.Context, n ast.Node) error {
	s := n.(*ast.Scons)
	var p promoter
	for _, f := range s.Value.Fields {
		tf, _ := s.SconsType.FieldByName(f.Name.Name)
		if tf == nil {
			return diag.ICE(f, "struct constructor field %q not in type", f.Name.Name)
		}
		if err := p.to(&f.Exp, tf.FieldType); err != nil {
			return err
		}
		f.SetType(f.Exp.Type())
	}
	return p.done(c, n)
}

func promoteFuncall(c *pass.Context, n ast.Node) error {
	call := n.(*ast.Funcall)
	ft := call.Function.Type()
	fixed := len(ft.Args)
	if ft.HasVararg() {
		fixed--
	}
	var p promoter
	for i, a := range call.Args {
		if i >= fixed {
			break
		}
		if err := p.to(&a.Exp, ft.Args[i].ArgType); err != nil {
			return err
		}
		if a.Exp != nil {
			a.SetType(a.Exp.Type())
		}
	}
	return p.done(c, n)
}

func promoteFuncArg(c *pass.Context, n ast.Node) error {
	a := n.(*ast.FuncArg)
	var p promoter
	if err := p.to(&a.Initial, a.ArgType); err != nil {
		return err
	}
	return p.done(c, n)
}

// promoteArrayBound converts a bound to uint<64>, or to a bit offset when
// the bound is a size.
func promoteArrayBound(c *pass.Context, n ast.Node) error {
	t := n.(*ast.Type)
	if t.Bound == nil || t.Bound.Type() == nil {
		return nil
	}
	target := indexType()
	if t.Bound.Type().IsOffset() {
		target = ast.NewOffsetTypeUnit(indexType(), 1)
	}
	var p promoter
	if err := p.to(&t.Bound, target); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteAssStmt(c *pass.Context, n ast.Node) error {
	ass := n.(*ast.AssStmt)
	var p promoter
	if err := p.to(&ass.Exp, ass.LValue.Type()); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteReturnStmt(c *pass.Context, n ast.Node) error {
	ret := n.(*ast.ReturnStmt)
	if ret.Exp == nil || ret.Function == nil {
		return nil
	}
	var p promoter
	if err := p.to(&ret.Exp, ret.Function.RetType); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteIfStmt(c *pass.Context, n ast.Node) error {
	var p promoter
	if err := p.to(&n.(*ast.IfStmt).Cond, boolType()); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteLoopStmt(c *pass.Context, n ast.Node) error {
	var p promoter
	if err := p.to(&n.(*ast.LoopStmt).Cond, boolType()); err != nil {
		return err
	}
	return p.done(c, n)
}

func promoteCatchCond(c *pass.Context, n ast.Node) error {
	var p promoter
	if err := p.to(&n.(*ast.TryCatchStmt).Cond, boolType()); err != nil {
		return err
	}
	return p.done(c, n)
}

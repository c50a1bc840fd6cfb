// Package fold implements constant folding. Operator nodes whose operands are
// literals are evaluated at compile time and replaced by a literal of the
// node's type. Folding is an optimization: a node it does not know how to
// evaluate is left as it is.
package fold

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
)

// Phase returns the folding phase. Its payload is a *diag.Reporter.
func Phase() *pass.Phase {
	p := pass.NewPhase("fold").
		OnKind(pass.Exit, ast.NodeCast, foldCast).
		OnKind(pass.Exit, ast.NodeCondExp, foldCondExp).
		OnOp(pass.Exit, ast.OpSizeof, foldSizeof).
		OnOp(pass.Exit, ast.OpAttr, foldAttr)
	for _, op := range []ast.Operator{
		ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpCeilDiv, ast.OpMod, ast.OpPow,
		ast.OpSl, ast.OpSr, ast.OpIor, ast.OpXor, ast.OpBand, ast.OpAnd, ast.OpOr, ast.OpBconc,
	} {
		p.OnOp(pass.Exit, op, foldBinary)
	}
	for _, op := range []ast.Operator{ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe} {
		p.OnOp(pass.Exit, op, foldRelational)
	}
	for _, op := range []ast.Operator{ast.OpNeg, ast.OpPos, ast.OpBnot, ast.OpNot} {
		p.OnOp(pass.Exit, op, foldUnary)
	}
	return p
}

func reporter(c *pass.Context) *diag.Reporter {
	return c.Payload().(*diag.Reporter)
}

// replace substitutes lit for the current node. Offset literals have
// children, so they are restarted to let the remaining phases see them.
func replace(c *pass.Context, lit ast.Node) {
	lit = ast.WithSpan(lit, c.Node().Span())
	if _, ok := lit.(*ast.Offset); ok {
		c.Restart(lit)
		return
	}
	c.Replace(lit)
}

func integer(n ast.Node) (*ast.Integer, bool) {
	lit, ok := n.(*ast.Integer)
	if !ok || !lit.Type().IsIntegral() {
		return nil, false
	}
	return lit, true
}

// offsetLiteral returns the magnitude and unit of an offset whose magnitude
// and unit are both literals.
func offsetLiteral(n ast.Node) (*ast.Integer, uint64, bool) {
	off, ok := n.(*ast.Offset)
	if !ok || !off.Type().IsOffset() {
		return nil, 0, false
	}
	unit, ok := off.Unit.(*ast.Integer)
	if !ok || unit.Value == 0 {
		return nil, 0, false
	}
	mag, ok := integer(off.Magnitude)
	if !ok {
		return nil, 0, false
	}
	return mag, unit.Value, true
}

func newOffset(mag uint64, unit uint64, t *ast.Type) *ast.Offset {
	off := ast.NewOffset(
		ast.NewInteger(ast.Truncate(mag, t.Base.Size), t.Base),
		ast.NewInteger(unit, ast.NewIntegralType(64, false)),
	)
	off.SetType(t)
	return off
}

func boolean(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func divisionByZero(c *pass.Context, n ast.Node) error {
	reporter(c).Error(n, "division by zero")
	return pass.ErrFailed
}

// evaluate computes op on two integral literals in type t. The second result
// is false when the operation is not folded.
func evaluate(c *pass.Context, n ast.Node, op ast.Operator, a, b *ast.Integer, t *ast.Type) (uint64, bool, error) {
	sx, sy := a.Int64(), b.Int64()
	x, y := uint64(sx), uint64(sy)

	switch op {
	case ast.OpSl, ast.OpSr:
		if sy < 0 || sy >= int64(t.Size) {
			return 0, false, nil
		}
		if op == ast.OpSl {
			return x << uint(sy), true, nil
		}
		if t.Signed {
			return uint64(ast.SignExtend(x, t.Size) >> uint(sy)), true, nil
		}
		return ast.Truncate(x, t.Size) >> uint(sy), true, nil
	case ast.OpPow:
		if b.Type().Signed && sy < 0 {
			return 0, false, nil
		}
		result := uint64(1)
		for e := y; e > 0; e >>= 1 {
			if e&1 == 1 {
				result *= x
			}
			x *= x
		}
		return result, true, nil
	case ast.OpBconc:
		lsize, rsize := a.Type().Size, b.Type().Size
		return ast.Truncate(x, lsize)<<uint(rsize) | ast.Truncate(y, rsize), true, nil
	}

	if !t.Signed {
		x, y = ast.Truncate(x, t.Size), ast.Truncate(y, t.Size)
	}
	switch op {
	case ast.OpAdd:
		return x + y, true, nil
	case ast.OpSub:
		return x - y, true, nil
	case ast.OpMul:
		return x * y, true, nil
	case ast.OpIor:
		return x | y, true, nil
	case ast.OpXor:
		return x ^ y, true, nil
	case ast.OpBand:
		return x & y, true, nil
	case ast.OpAnd:
		return boolean(x != 0 && y != 0), true, nil
	case ast.OpOr:
		return boolean(x != 0 || y != 0), true, nil
	case ast.OpDiv, ast.OpCeilDiv, ast.OpMod:
		if y == 0 {
			return 0, false, divisionByZero(c, n)
		}
		if t.Signed {
			return uint64(signedDivision(op, sx, sy)), true, nil
		}
		switch op {
		case ast.OpDiv:
			return x / y, true, nil
		case ast.OpCeilDiv:
			q := x / y
			if x%y != 0 {
				q++
			}
			return q, true, nil
		default:
			return x % y, true, nil
		}
	}
	return 0, false, nil
}

func signedDivision(op ast.Operator, x, y int64) int64 {
	switch op {
	case ast.OpMod:
		return x % y
	case ast.OpCeilDiv:
		q := x / y
		if x%y != 0 && (x < 0) == (y < 0) {
			q++
		}
		return q
	}
	return x / y
}

func foldBinary(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	t := exp.Type()
	l, r := exp.Operands[0], exp.Operands[1]

	if a, ok := integer(l); ok {
		if b, ok := integer(r); ok && t.IsIntegral() {
			v, folded, err := evaluate(c, exp, exp.Op, a, b, t)
			if err != nil || !folded {
				return err
			}
			replace(c, ast.NewInteger(ast.Truncate(v, t.Size), t))
			return nil
		}
	}

	if a, ok := l.(*ast.String); ok {
		if b, ok := r.(*ast.String); ok && exp.Op == ast.OpAdd {
			s := ast.NewString(a.Value + b.Value)
			s.SetType(t)
			replace(c, s)
		}
		return nil
	}

	return foldOffsets(c, exp)
}

func foldOffsets(c *pass.Context, exp *ast.Exp) error {
	t := exp.Type()
	l, r := exp.Operands[0], exp.Operands[1]
	lm, lu, lok := offsetLiteral(l)
	rm, ru, rok := offsetLiteral(r)

	switch {
	case lok && rok:
		if lu != ru {
			return nil
		}
		switch exp.Op {
		case ast.OpAdd, ast.OpSub, ast.OpMod, ast.OpIor, ast.OpXor, ast.OpBand:
			if unit, ok := t.UnitValue(); !ok || unit != lu {
				return nil
			}
			v, folded, err := evaluate(c, exp, exp.Op, lm, rm, t.Base)
			if err != nil || !folded {
				return err
			}
			replace(c, newOffset(v, lu, t))
		case ast.OpDiv, ast.OpCeilDiv:
			if !t.IsIntegral() {
				return nil
			}
			v, folded, err := evaluate(c, exp, exp.Op, lm, rm, t)
			if err != nil || !folded {
				return err
			}
			replace(c, ast.NewInteger(ast.Truncate(v, t.Size), t))
		}
	case exp.Op == ast.OpMul && t.IsOffset():
		mag, unit, ok := lm, lu, lok
		factor, isInt := integer(r)
		if !ok {
			mag, unit, ok = rm, ru, rok
			factor, isInt = integer(l)
		}
		if !ok || !isInt {
			return nil
		}
		v, _, err := evaluate(c, exp, ast.OpMul, mag, factor, t.Base)
		if err != nil {
			return err
		}
		replace(c, newOffset(v, unit, t))
	}
	return nil
}

func foldRelational(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	t := exp.Type()
	l, r := exp.Operands[0], exp.Operands[1]

	var cmp int
	switch {
	case isInteger(l) && isInteger(r):
		cmp = compareIntegers(l.(*ast.Integer), r.(*ast.Integer))
	case isString(l) && isString(r):
		a, b := l.(*ast.String).Value, r.(*ast.String).Value
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	default:
		lm, lu, lok := offsetLiteral(l)
		rm, ru, rok := offsetLiteral(r)
		if !lok || !rok || lu != ru {
			return nil
		}
		cmp = compareIntegers(lm, rm)
	}

	var result bool
	switch exp.Op {
	case ast.OpEq:
		result = cmp == 0
	case ast.OpNe:
		result = cmp != 0
	case ast.OpLt:
		result = cmp < 0
	case ast.OpGt:
		result = cmp > 0
	case ast.OpLe:
		result = cmp <= 0
	case ast.OpGe:
		result = cmp >= 0
	}
	replace(c, ast.NewInteger(boolean(result), t))
	return nil
}

func isInteger(n ast.Node) bool {
	_, ok := integer(n)
	return ok
}

func isString(n ast.Node) bool {
	_, ok := n.(*ast.String)
	return ok
}

// compareIntegers compares signed when both literals are signed.
func compareIntegers(a, b *ast.Integer) int {
	if a.Type().Signed && b.Type().Signed {
		x, y := a.Int64(), b.Int64()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	x, y := ast.Truncate(a.Value, a.Type().Size), ast.Truncate(b.Value, b.Type().Size)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func foldUnary(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	t := exp.Type()
	operand := exp.Operands[0]

	if a, ok := integer(operand); ok && t.IsIntegral() {
		x := uint64(a.Int64())
		var v uint64
		switch exp.Op {
		case ast.OpNeg:
			v = -x
		case ast.OpPos:
			v = x
		case ast.OpBnot:
			v = ^x
		case ast.OpNot:
			v = boolean(ast.Truncate(a.Value, a.Type().Size) == 0)
		}
		replace(c, ast.NewInteger(ast.Truncate(v, t.Size), t))
		return nil
	}

	if mag, unit, ok := offsetLiteral(operand); ok && t.IsOffset() {
		switch exp.Op {
		case ast.OpNeg:
			replace(c, newOffset(-uint64(mag.Int64()), unit, t))
		case ast.OpPos:
			replace(c, newOffset(uint64(mag.Int64()), unit, t))
		}
	}
	return nil
}

// foldCast converts literals. Offset literals are converted only when the
// new unit divides the value exactly.
func foldCast(c *pass.Context, n ast.Node) error {
	cast := n.(*ast.Cast)
	to := cast.Type()
	if to == nil {
		return nil
	}
	if lit, ok := integer(cast.Exp); ok {
		if to.IsIntegral() {
			replace(c, ast.NewInteger(ast.Truncate(uint64(lit.Int64()), to.Size), to))
		}
		return nil
	}
	mag, unit, ok := offsetLiteral(cast.Exp)
	if !ok || !to.IsOffset() || !to.Base.IsIntegral() {
		return nil
	}
	newUnit, ok := to.UnitValue()
	if !ok || newUnit == 0 {
		return nil
	}
	total := mag.Int64() * int64(unit)
	if total%int64(newUnit) != 0 {
		return nil
	}
	replace(c, newOffset(uint64(total/int64(newUnit)), newUnit, to))
	return nil
}

func foldCondExp(c *pass.Context, n ast.Node) error {
	cond := n.(*ast.CondExp)
	lit, ok := integer(cond.Cond)
	if !ok {
		return nil
	}
	if ast.Truncate(lit.Value, lit.Type().Size) != 0 {
		c.Replace(cond.Then)
	} else {
		c.Replace(cond.Else)
	}
	return nil
}

func foldSizeof(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	t, ok := exp.Operands[0].(*ast.Type)
	if !ok {
		t = exp.Operands[0].Type()
	}
	if ast.DeriveCompleteness(t) != ast.CompleteYes || !exp.Type().IsOffset() {
		return nil
	}
	size, ok := ast.SizeOf(t)
	if !ok {
		return nil
	}
	replace(c, newOffset(size, 1, exp.Type()))
	return nil
}

func foldAttr(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	t := exp.Type()
	operand := exp.Operands[0]

	switch exp.Attr {
	case ast.AttrSigned:
		if lit, ok := integer(operand); ok {
			replace(c, ast.NewInteger(boolean(lit.Type().Signed), t))
		}
	case ast.AttrSize:
		if !t.IsOffset() {
			return nil
		}
		switch lit := operand.(type) {
		case *ast.Integer, *ast.Offset:
			if !ast.IsLiteral(lit) {
				return nil
			}
			if size, ok := ast.SizeOf(lit.Type()); ok {
				replace(c, newOffset(size, 1, t))
			}
		case *ast.String:
			replace(c, newOffset(uint64(len(lit.Value)+1)*8, 1, t))
		}
	case ast.AttrLength:
		if lit, ok := operand.(*ast.String); ok {
			replace(c, ast.NewInteger(uint64(len(lit.Value)), t))
		}
	case ast.AttrUnit:
		if _, unit, ok := offsetLiteral(operand); ok {
			replace(c, ast.NewInteger(unit, t))
		}
	case ast.AttrMagnitude:
		if mag, _, ok := offsetLiteral(operand); ok && t.IsIntegral() {
			replace(c, ast.NewInteger(ast.Truncate(mag.Value, t.Size), t))
		}
	}
	return nil
}

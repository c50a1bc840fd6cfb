package typify

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
)

func registerOperators(p *pass.Phase) {
	for _, op := range []ast.Operator{ast.OpNeg, ast.OpPos} {
		p.OnOp(pass.Exit, op, typifyNeg)
	}
	p.OnOp(pass.Exit, ast.OpBnot, typifyBnot)
	p.OnOp(pass.Exit, ast.OpNot, typifyNot)
	p.OnOp(pass.Exit, ast.OpUnmap, typifyUnmap)
	for _, op := range []ast.Operator{ast.OpAnd, ast.OpOr} {
		p.OnOp(pass.Exit, op, typifyLogical)
	}
	for _, op := range []ast.Operator{ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe} {
		p.OnOp(pass.Exit, op, typifyRelational)
	}
	p.OnOp(pass.Exit, ast.OpIn, typifyIn)
	for _, op := range []ast.Operator{ast.OpAdd, ast.OpSub, ast.OpMod, ast.OpIor, ast.OpXor, ast.OpBand} {
		p.OnOp(pass.Exit, op, typifyAdditive)
	}
	p.OnOp(pass.Exit, ast.OpMul, typifyMul)
	for _, op := range []ast.Operator{ast.OpDiv, ast.OpCeilDiv} {
		p.OnOp(pass.Exit, op, typifyDiv)
	}
	for _, op := range []ast.Operator{ast.OpSl, ast.OpSr, ast.OpPow} {
		p.OnOp(pass.Exit, op, typifyShift)
	}
	p.OnOp(pass.Exit, ast.OpBconc, typifyBconc)
	p.OnOp(pass.Exit, ast.OpSizeof, typifySizeof)
	p.OnOp(pass.Exit, ast.OpAttr, typifyAttr)
}

// operands returns the types of the operands of an expression.
func operands(exp *ast.Exp) ([]*ast.Type, error) {
	if len(exp.Operands) != exp.Op.Arity() {
		return nil, diag.ICE(exp, "operator %s expects %d operands, got %d", exp.Op, exp.Op.Arity(), len(exp.Operands))
	}
	types := make([]*ast.Type, len(exp.Operands))
	for i, op := range exp.Operands {
		if _, isType := op.(*ast.Type); isType {
			continue
		}
		t, err := typeOf(op)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

func invalidOperand(c *pass.Context, exp *ast.Exp, i int, expected string, got *ast.Type) error {
	return fail(c, exp.Operands[i], "invalid operand in expression: expected %s, got %s", expected, got)
}

func typifyNeg(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	if !ts[0].IsIntegral() && !ts[0].IsOffset() {
		return invalidOperand(c, exp, 0, "integral or offset", ts[0])
	}
	exp.SetType(ts[0])
	return nil
}

func typifyBnot(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	if !ts[0].IsIntegral() {
		return invalidOperand(c, exp, 0, "integral", ts[0])
	}
	exp.SetType(ts[0])
	return nil
}

func typifyNot(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	if !ts[0].IsIntegral() {
		return invalidOperand(c, exp, 0, "integral", ts[0])
	}
	exp.SetType(boolType())
	return nil
}

func typifyUnmap(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	exp.SetType(ts[0])
	return nil
}

func typifyLogical(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	for i, t := range ts {
		if !t.IsIntegral() {
			return invalidOperand(c, exp, i, "integral", t)
		}
	}
	exp.SetType(boolType())
	return nil
}

func typifyRelational(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	l, r := ts[0], ts[1]
	switch {
	case l.IsIntegral() && r.IsIntegral():
	case l.IsString() && r.IsString():
	case l.IsOffset() && r.IsOffset():
		if _, ok := WidenOffsets(l, r); !ok {
			return fail(c, exp, "offset units must be constant")
		}
	default:
		return fail(c, exp, "invalid operands in relational expression: %s and %s", l, r)
	}
	exp.SetType(boolType())
	return nil
}

func typifyIn(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	if !ts[1].IsArray() {
		return invalidOperand(c, exp, 1, "array", ts[1])
	}
	if !ast.Promotable(ts[0], ts[1].Elem) {
		return invalidOperand(c, exp, 0, ts[1].Elem.String(), ts[0])
	}
	exp.SetType(boolType())
	return nil
}

// typifyAdditive handles add, sub, mod and the bitwise or/xor/and, which
// share their typing rules. Only add concatenates strings.
func typifyAdditive(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	l, r := ts[0], ts[1]
	switch {
	case l.IsIntegral() && r.IsIntegral():
		exp.SetType(Widen(l, r))
	case l.IsOffset() && r.IsOffset():
		t, ok := WidenOffsets(l, r)
		if !ok {
			return fail(c, exp, "offset units must be constant")
		}
		exp.SetType(t)
	case l.IsString() && r.IsString() && exp.Op == ast.OpAdd:
		exp.SetType(ast.NewStringType())
	case l.IsIntegral() || l.IsOffset() || (l.IsString() && exp.Op == ast.OpAdd):
		return invalidOperand(c, exp, 1, l.String(), r)
	default:
		return invalidOperand(c, exp, 0, "integral or offset", l)
	}
	return nil
}

func typifyMul(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	l, r := ts[0], ts[1]
	switch {
	case l.IsIntegral() && r.IsIntegral():
		exp.SetType(Widen(l, r))
	case l.IsOffset() && r.IsIntegral():
		exp.SetType(ast.NewOffsetType(Widen(l.Base, r), l.Unit))
	case l.IsIntegral() && r.IsOffset():
		exp.SetType(ast.NewOffsetType(Widen(l, r.Base), r.Unit))
	case l.IsOffset() && r.IsOffset():
		return fail(c, exp, "invalid operands in expression: offsets cannot be multiplied")
	case l.IsIntegral() || l.IsOffset():
		return invalidOperand(c, exp, 1, "integral or offset", r)
	default:
		return invalidOperand(c, exp, 0, "integral or offset", l)
	}
	return nil
}

func typifyDiv(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	l, r := ts[0], ts[1]
	switch {
	case l.IsIntegral() && r.IsIntegral():
		exp.SetType(Widen(l, r))
	case l.IsOffset() && r.IsOffset():
		if _, ok := WidenOffsets(l, r); !ok {
			return fail(c, exp, "offset units must be constant")
		}
		exp.SetType(Widen(l.Base, r.Base))
	case l.IsOffset():
		return invalidOperand(c, exp, 1, "offset", r)
	case l.IsIntegral():
		return invalidOperand(c, exp, 1, "integral", r)
	default:
		return invalidOperand(c, exp, 0, "integral or offset", l)
	}
	return nil
}

// typifyShift handles the shifts and pow: the result has the type of the
// left operand.
func typifyShift(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	for i, t := range ts {
		if !t.IsIntegral() {
			return invalidOperand(c, exp, i, "integral", t)
		}
	}
	exp.SetType(ts[0])
	return nil
}

func typifyBconc(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	for i, t := range ts {
		if !t.IsIntegral() {
			return invalidOperand(c, exp, i, "integral", t)
		}
	}
	size := ts[0].Size + ts[1].Size
	if size > 64 {
		return fail(c, exp, "the sum of the operand sizes in a bit-concatenation shall not exceed 64 bits")
	}
	exp.SetType(ast.NewIntegralType(size, ts[0].Signed))
	return nil
}

func typifySizeof(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	if len(exp.Operands) != 1 {
		return diag.ICE(exp, "sizeof expects one operand")
	}
	var t *ast.Type
	switch op := exp.Operands[0].(type) {
	case *ast.Type:
		t = op
	default:
		var err error
		if t, err = typeOf(op); err != nil {
			return err
		}
	}
	if t.Complete == ast.CompleteNo {
		return fail(c, exp, "invalid operand to sizeof: type %s is not complete", t)
	}
	exp.SetType(bitOffsetType())
	return nil
}

// attributeRule says which operand types accept an attribute and the type it
// yields for a given operand type.
type attributeRule struct {
	accepts func(*ast.Type) bool
	result  func(operand *ast.Type) *ast.Type
}

func anyOf(preds ...func(*ast.Type) bool) func(*ast.Type) bool {
	return func(t *ast.Type) bool {
		for _, p := range preds {
			if p(t) {
				return true
			}
		}
		return false
	}
}

var attributeRules = map[ast.Attribute]attributeRule{
	ast.AttrSize: {
		accepts: anyOf((*ast.Type).IsIntegral, (*ast.Type).IsOffset, (*ast.Type).IsString, (*ast.Type).IsArray, (*ast.Type).IsStruct),
		result:  func(*ast.Type) *ast.Type { return bitOffsetType() },
	},
	ast.AttrSigned: {
		accepts: (*ast.Type).IsIntegral,
		result:  func(*ast.Type) *ast.Type { return boolType() },
	},
	ast.AttrMagnitude: {
		accepts: (*ast.Type).IsOffset,
		result:  func(t *ast.Type) *ast.Type { return t.Base },
	},
	ast.AttrUnit: {
		accepts: (*ast.Type).IsOffset,
		result:  func(*ast.Type) *ast.Type { return uint64Type() },
	},
	ast.AttrLength: {
		accepts: anyOf((*ast.Type).IsArray, (*ast.Type).IsString, (*ast.Type).IsStruct),
		result:  func(*ast.Type) *ast.Type { return uint64Type() },
	},
	ast.AttrAlignment: {
		accepts: anyOf((*ast.Type).IsIntegral, (*ast.Type).IsOffset, (*ast.Type).IsArray, (*ast.Type).IsStruct),
		result:  func(*ast.Type) *ast.Type { return uint64Type() },
	},
	ast.AttrOffset: {
		accepts: anyOf((*ast.Type).IsArray, (*ast.Type).IsStruct),
		result:  func(*ast.Type) *ast.Type { return bitOffsetType() },
	},
	ast.AttrMapped: {
		accepts: anyOf((*ast.Type).IsArray, (*ast.Type).IsStruct),
		result:  func(*ast.Type) *ast.Type { return boolType() },
	},
}

func typifyAttr(c *pass.Context, n ast.Node) error {
	exp := n.(*ast.Exp)
	ts, err := operands(exp)
	if err != nil {
		return err
	}
	rule, ok := attributeRules[exp.Attr]
	if !ok {
		return fail(c, exp, "invalid attribute '%s", exp.Attr)
	}
	if !rule.accepts(ts[0]) {
		return fail(c, exp, "attribute '%s is not applicable to values of type %s", exp.Attr, ts[0])
	}
	exp.SetType(rule.result(ts[0]))
	return nil
}

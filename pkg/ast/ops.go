package ast

// Operator identifies the operation of an Exp node.
type Operator string

const (
	OpOr      Operator = "||"
	OpAnd     Operator = "&&"
	OpEq      Operator = "=="
	OpNe      Operator = "!="
	OpLt      Operator = "<"
	OpGt      Operator = ">"
	OpLe      Operator = "<="
	OpGe      Operator = ">="
	OpIor     Operator = "|"
	OpXor     Operator = "^"
	OpBand    Operator = "&"
	OpIn      Operator = "in"
	OpSl      Operator = "<<."
	OpSr      Operator = ".>>"
	OpAdd     Operator = "+"
	OpSub     Operator = "-"
	OpMul     Operator = "*"
	OpDiv     Operator = "/"
	OpCeilDiv Operator = "/^"
	OpMod     Operator = "%"
	OpPow     Operator = "**"
	OpBconc   Operator = ":::"
	OpNeg     Operator = "neg"
	OpPos     Operator = "pos"
	OpNot     Operator = "!"
	OpBnot    Operator = "~"
	OpUnmap   Operator = "unmap"
	OpSizeof  Operator = "sizeof"
	OpAttr    Operator = "'"
)

// Operators lists every operator code.
var Operators = []Operator{
	OpOr, OpAnd, OpEq, OpNe, OpLt, OpGt, OpLe, OpGe, OpIor, OpXor, OpBand, OpIn,
	OpSl, OpSr, OpAdd, OpSub, OpMul, OpDiv, OpCeilDiv, OpMod, OpPow, OpBconc,
	OpNeg, OpPos, OpNot, OpBnot, OpUnmap, OpSizeof, OpAttr,
}

// Arity returns the number of operands taken by op.
func (op Operator) Arity() int {
	switch op {
	case OpNeg, OpPos, OpNot, OpBnot, OpUnmap, OpSizeof, OpAttr:
		return 1
	default:
		return 2
	}
}

func (op Operator) IsRelational() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
		return true
	}
	return false
}

// Attribute names the attribute applied by an OpAttr expression.
type Attribute string

const (
	AttrSize      Attribute = "size"
	AttrSigned    Attribute = "signed"
	AttrMagnitude Attribute = "magnitude"
	AttrUnit      Attribute = "unit"
	AttrLength    Attribute = "length"
	AttrAlignment Attribute = "alignment"
	AttrOffset    Attribute = "offset"
	AttrMapped    Attribute = "mapped"
)

// LookupAttribute maps an attribute name to its code.
func LookupAttribute(name string) (Attribute, bool) {
	switch a := Attribute(name); a {
	case AttrSize, AttrSigned, AttrMagnitude, AttrUnit, AttrLength, AttrAlignment, AttrOffset, AttrMapped:
		return a, true
	}
	return "", false
}

package ast

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

// Int returns an int<32> literal.
func Int(value int64) *Integer {
	return IntTyped(value, 32, true)
}

// Long returns an int<64> literal.
func Long(value int64) *Integer {
	return IntTyped(value, 64, true)
}

func UInt(value uint64) *Integer {
	return NewInteger(Truncate(value, 32), NewIntegralType(32, false))
}

func IntTyped(value int64, size int, signed bool) *Integer {
	return NewInteger(Truncate(uint64(value), size), NewIntegralType(size, signed))
}

func Str(value string) *String {
	return NewString(value)
}

// Off returns an offset literal with an int<32> magnitude and unit bits.
func Off(magnitude int64, unit uint64) *Offset {
	return NewOffset(Int(magnitude), NewInteger(unit, NewIntegralType(64, false)))
}

// Expression helpers.

func Bin(op Operator, left, right Node) *Exp {
	return NewExp(op, left, right)
}

func Un(op Operator, operand Node) *Exp {
	return NewExp(op, operand)
}

func Attr(attr Attribute, operand Node) *Exp {
	return NewAttrExp(attr, operand)
}

func Sizeof(t *Type) *Exp {
	return NewExp(OpSizeof, t)
}

func Arr(elements ...Node) *Array {
	inits := make([]*ArrayInitializer, 0, len(elements))
	for _, el := range elements {
		inits = append(inits, NewArrayInitializer(nil, el))
	}
	return NewArray(inits)
}

func Field(name string, exp Node) *StructField {
	var id *Identifier
	if name != "" {
		id = ID(name)
	}
	return NewStructField(id, exp)
}

func StructLit(fields ...*StructField) *Struct {
	return NewStruct(fields)
}

func Arg(exp Node) *FuncallArg {
	return NewFuncallArg(nil, exp)
}

func NamedArg(name string, exp Node) *FuncallArg {
	return NewFuncallArg(ID(name), exp)
}

func Call(function Node, args ...*FuncallArg) *Funcall {
	return NewFuncall(function, args)
}

// Type helpers.

func IntTy(size int) *Type {
	return NewIntegralType(size, true)
}

func UintTy(size int) *Type {
	return NewIntegralType(size, false)
}

func StrTy() *Type {
	return NewStringType()
}

func AnyTy() *Type {
	return NewAnyType()
}

func VoidTy() *Type {
	return NewVoidType()
}

// ArrTy builds an array type; a negative bound means unbounded.
func ArrTy(elem *Type, bound int64) *Type {
	if bound < 0 {
		return NewArrayType(elem, nil)
	}
	return NewArrayType(elem, NewInteger(uint64(bound), NewIntegralType(64, false)))
}

func OffTy(base *Type, unit uint64) *Type {
	return NewOffsetTypeUnit(base, unit)
}

func StructTy(fields ...*StructTypeField) *Type {
	return NewStructType(fields)
}

func FieldTy(name string, t *Type) *StructTypeField {
	var id *Identifier
	if name != "" {
		id = ID(name)
	}
	return NewStructTypeField(id, t, nil, nil)
}

// Formal builds a function type argument.
func Formal(name string, t *Type, optional bool) *FuncTypeArg {
	var id *Identifier
	if name != "" {
		id = ID(name)
	}
	return NewFuncTypeArg(id, t, optional, false)
}

func FnTy(ret *Type, args ...*FuncTypeArg) *Type {
	return NewFunctionType(ret, args)
}

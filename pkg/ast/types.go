package ast

import (
	"fmt"
	"strings"
)

// TypeCode classifies a Type node.
type TypeCode string

const (
	TypeIntegral TypeCode = "integral"
	TypeString   TypeCode = "string"
	TypeVoid     TypeCode = "void"
	TypeArray    TypeCode = "array"
	TypeStruct   TypeCode = "struct"
	TypeOffset   TypeCode = "offset"
	TypeFunction TypeCode = "function"
	TypeAny      TypeCode = "any"
)

// TypeCodes lists every type code.
var TypeCodes = []TypeCode{
	TypeIntegral, TypeString, TypeVoid, TypeArray, TypeStruct, TypeOffset, TypeFunction, TypeAny,
}

// Completeness tells whether the size of values of a type is statically known.
type Completeness uint8

const (
	CompleteUnknown Completeness = iota
	CompleteYes
	CompleteNo
)

func (c Completeness) String() string {
	switch c {
	case CompleteYes:
		return "yes"
	case CompleteNo:
		return "no"
	default:
		return "unknown"
	}
}

// Type is both a node of the tree (type specifiers written in the program)
// and the value typify1 attaches to expressions.
type Type struct {
	nodeImpl

	Code TypeCode
	// Name is set for types introduced by a type declaration.
	Name     string
	Complete Completeness

	// Integral types.
	Size   int
	Signed bool

	// Array types. Bound is nil for unbounded arrays; it is either an
	// integral expression (number of elements) or an offset (size).
	Elem  *Type
	Bound Node

	// Struct types.
	Fields []*StructTypeField

	// Offset types. Unit is an integral expression counting bits.
	Base *Type
	Unit Node

	// Function types.
	Return *Type
	Args   []*FuncTypeArg
}

type StructTypeField struct {
	nodeImpl

	Name       *Identifier
	FieldType  *Type
	Constraint Node
	// Label is an offset expression fixing the position of the field.
	Label Node
}

func NewStructTypeField(name *Identifier, fieldType *Type, constraint, label Node) *StructTypeField {
	return &StructTypeField{
		nodeImpl:   newNodeImpl(NodeStructTypeField),
		Name:       name,
		FieldType:  fieldType,
		Constraint: constraint,
		Label:      label,
	}
}

func (f *StructTypeField) FieldName() string {
	if f == nil || f.Name == nil {
		return ""
	}
	return f.Name.Name
}

type FuncTypeArg struct {
	nodeImpl

	Name     *Identifier
	ArgType  *Type
	Optional bool
	Vararg   bool
}

func NewFuncTypeArg(name *Identifier, argType *Type, optional, vararg bool) *FuncTypeArg {
	return &FuncTypeArg{
		nodeImpl: newNodeImpl(NodeFuncTypeArg),
		Name:     name,
		ArgType:  argType,
		Optional: optional,
		Vararg:   vararg,
	}
}

func (a *FuncTypeArg) ArgName() string {
	if a == nil || a.Name == nil {
		return ""
	}
	return a.Name.Name
}

func newType(code TypeCode) *Type {
	return &Type{nodeImpl: newNodeImpl(NodeTypeNode), Code: code}
}

func NewIntegralType(size int, signed bool) *Type {
	t := newType(TypeIntegral)
	t.Size = size
	t.Signed = signed
	t.Complete = CompleteYes
	return t
}

// NewBoolType returns the type of boolean values, int<32>.
func NewBoolType() *Type {
	return NewIntegralType(32, true)
}

func NewStringType() *Type {
	t := newType(TypeString)
	t.Complete = CompleteNo
	return t
}

func NewVoidType() *Type {
	t := newType(TypeVoid)
	t.Complete = CompleteNo
	return t
}

func NewAnyType() *Type {
	t := newType(TypeAny)
	t.Complete = CompleteNo
	return t
}

func NewArrayType(elem *Type, bound Node) *Type {
	t := newType(TypeArray)
	t.Elem = elem
	t.Bound = bound
	return t
}

func NewStructType(fields []*StructTypeField) *Type {
	t := newType(TypeStruct)
	t.Fields = fields
	return t
}

func NewOffsetType(base *Type, unit Node) *Type {
	t := newType(TypeOffset)
	t.Base = base
	t.Unit = unit
	t.Complete = CompleteYes
	return t
}

// NewOffsetTypeUnit builds an offset type whose unit is the literal unit bits.
func NewOffsetTypeUnit(base *Type, unit uint64) *Type {
	return NewOffsetType(base, NewInteger(unit, NewIntegralType(64, false)))
}

func NewFunctionType(ret *Type, args []*FuncTypeArg) *Type {
	t := newType(TypeFunction)
	t.Return = ret
	t.Args = args
	t.Complete = CompleteYes
	return t
}

func (t *Type) IsIntegral() bool { return t != nil && t.Code == TypeIntegral }
func (t *Type) IsOffset() bool   { return t != nil && t.Code == TypeOffset }
func (t *Type) IsString() bool   { return t != nil && t.Code == TypeString }
func (t *Type) IsArray() bool    { return t != nil && t.Code == TypeArray }
func (t *Type) IsStruct() bool   { return t != nil && t.Code == TypeStruct }
func (t *Type) IsFunction() bool { return t != nil && t.Code == TypeFunction }
func (t *Type) IsVoid() bool     { return t != nil && t.Code == TypeVoid }
func (t *Type) IsAny() bool      { return t != nil && t.Code == TypeAny }

// UnitValue returns the unit of an offset type when it is a literal.
func (t *Type) UnitValue() (uint64, bool) {
	if !t.IsOffset() {
		return 0, false
	}
	if lit, ok := t.Unit.(*Integer); ok {
		return lit.Value, true
	}
	return 0, false
}

// BoundValue returns the number of elements of an array type whose bound is
// an integral literal.
func (t *Type) BoundValue() (uint64, bool) {
	if !t.IsArray() {
		return 0, false
	}
	if lit, ok := t.Bound.(*Integer); ok {
		return lit.Value, true
	}
	return 0, false
}

// FieldByName looks up a struct type field.
func (t *Type) FieldByName(name string) (*StructTypeField, int) {
	if !t.IsStruct() {
		return nil, -1
	}
	for i, f := range t.Fields {
		if f.FieldName() == name {
			return f, i
		}
	}
	return nil, -1
}

// MandatoryArgs counts the formals of a function type that must be passed.
func (t *Type) MandatoryArgs() int {
	count := 0
	for _, arg := range t.Args {
		if !arg.Optional && !arg.Vararg {
			count++
		}
	}
	return count
}

// HasVararg reports whether the last formal of a function type is a vararg.
func (t *Type) HasVararg() bool {
	return len(t.Args) > 0 && t.Args[len(t.Args)-1].Vararg
}

// literalOffsetBits returns the value in bits of an offset literal.
func literalOffsetBits(n Node) (uint64, bool) {
	off, ok := n.(*Offset)
	if !ok {
		return 0, false
	}
	unit, ok := off.Unit.(*Integer)
	if !ok {
		return 0, false
	}
	mag := uint64(1)
	if off.Magnitude != nil {
		lit, ok := off.Magnitude.(*Integer)
		if !ok {
			return 0, false
		}
		mag = lit.Value
	}
	return mag * unit.Value, true
}

// DeriveCompleteness recomputes the completeness of t bottom-up and records
// it on t and every type reachable from it.
func DeriveCompleteness(t *Type) Completeness {
	if t == nil {
		return CompleteUnknown
	}
	var c Completeness
	switch t.Code {
	case TypeIntegral, TypeOffset:
		if t.Base != nil {
			DeriveCompleteness(t.Base)
		}
		c = CompleteYes
	case TypeString, TypeVoid, TypeAny:
		c = CompleteNo
	case TypeFunction:
		if t.Return != nil {
			DeriveCompleteness(t.Return)
		}
		for _, arg := range t.Args {
			DeriveCompleteness(arg.ArgType)
		}
		c = CompleteYes
	case TypeArray:
		elem := DeriveCompleteness(t.Elem)
		c = CompleteNo
		if elem == CompleteYes {
			if _, ok := t.Bound.(*Integer); ok {
				c = CompleteYes
			} else if _, ok := literalOffsetBits(t.Bound); ok {
				c = CompleteYes
			}
		}
	case TypeStruct:
		c = CompleteYes
		for _, f := range t.Fields {
			if DeriveCompleteness(f.FieldType) != CompleteYes {
				c = CompleteNo
			}
		}
	default:
		c = CompleteNo
	}
	t.Complete = c
	return c
}

// SizeOf returns the size in bits of values of a complete type.
func SizeOf(t *Type) (uint64, bool) {
	if t == nil {
		return 0, false
	}
	switch t.Code {
	case TypeIntegral:
		return uint64(t.Size), true
	case TypeOffset:
		return SizeOf(t.Base)
	case TypeArray:
		if bits, ok := literalOffsetBits(t.Bound); ok {
			return bits, true
		}
		n, ok := t.BoundValue()
		if !ok {
			return 0, false
		}
		elem, ok := SizeOf(t.Elem)
		if !ok {
			return 0, false
		}
		return n * elem, true
	case TypeStruct:
		var pos, size uint64
		for _, f := range t.Fields {
			fsize, ok := SizeOf(f.FieldType)
			if !ok {
				return 0, false
			}
			if f.Label != nil {
				label, ok := literalOffsetBits(f.Label)
				if !ok {
					return 0, false
				}
				pos = label
			}
			pos += fsize
			if pos > size {
				size = pos
			}
		}
		return size, true
	}
	return 0, false
}

func literalEqual(a, b Node) (equal bool, comparable bool) {
	la, ok := a.(*Integer)
	if !ok {
		return false, false
	}
	lb, ok := b.(*Integer)
	if !ok {
		return false, false
	}
	return la.Value == lb.Value, true
}

// Equal reports whether two types are structurally equal. Array bounds and
// offset units are only compared when both are literals.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Code != b.Code {
		return false
	}
	switch a.Code {
	case TypeIntegral:
		return a.Size == b.Size && a.Signed == b.Signed
	case TypeString, TypeVoid, TypeAny:
		return true
	case TypeArray:
		if a.Bound != nil && b.Bound != nil {
			if eq, ok := literalEqual(a.Bound, b.Bound); ok && !eq {
				return false
			}
		}
		return Equal(a.Elem, b.Elem)
	case TypeStruct:
		if a.Name != "" && b.Name != "" {
			return a.Name == b.Name
		}
		if a.Name != b.Name || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].FieldName() != b.Fields[i].FieldName() {
				return false
			}
			if !Equal(a.Fields[i].FieldType, b.Fields[i].FieldType) {
				return false
			}
		}
		return true
	case TypeOffset:
		if eq, ok := literalEqual(a.Unit, b.Unit); ok && !eq {
			return false
		}
		return Equal(a.Base, b.Base)
	case TypeFunction:
		if len(a.Args) != len(b.Args) || !Equal(a.Return, b.Return) {
			return false
		}
		for i := range a.Args {
			x, y := a.Args[i], b.Args[i]
			if x.Optional != y.Optional || x.Vararg != y.Vararg {
				return false
			}
			if !Equal(x.ArgType, y.ArgType) {
				return false
			}
		}
		return true
	}
	return false
}

// Promotable reports whether a value of type from can be converted to type to
// by inserting a conversion.
func Promotable(from, to *Type) bool {
	if from == nil || to == nil {
		return false
	}
	if Equal(from, to) || to.IsAny() {
		return true
	}
	switch {
	case from.IsIntegral() && to.IsIntegral():
		return true
	case from.IsOffset() && to.IsOffset():
		return from.Base.IsIntegral() && to.Base.IsIntegral()
	case from.IsArray() && to.IsArray():
		if from.Bound != nil && to.Bound != nil {
			if eq, ok := literalEqual(from.Bound, to.Bound); ok && !eq {
				return false
			}
		}
		if to.Elem.IsAny() {
			return true
		}
		return Equal(from.Elem, to.Elem)
	}
	return false
}

// DupType returns a deep copy of t. Literal bounds and units are copied;
// other bound expressions are shared with the original.
func DupType(t *Type) *Type {
	if t == nil {
		return nil
	}
	d := newType(t.Code)
	d.span = t.span
	d.Name = t.Name
	d.Complete = t.Complete
	d.Size = t.Size
	d.Signed = t.Signed
	d.Elem = DupType(t.Elem)
	d.Bound = dupLiteral(t.Bound)
	d.Base = DupType(t.Base)
	d.Unit = dupLiteral(t.Unit)
	d.Return = DupType(t.Return)
	for _, f := range t.Fields {
		nf := NewStructTypeField(f.Name, DupType(f.FieldType), f.Constraint, f.Label)
		nf.span = f.span
		d.Fields = append(d.Fields, nf)
	}
	for _, a := range t.Args {
		na := NewFuncTypeArg(a.Name, DupType(a.ArgType), a.Optional, a.Vararg)
		na.span = a.span
		d.Args = append(d.Args, na)
	}
	return d
}

func dupLiteral(n Node) Node {
	if lit, ok := n.(*Integer); ok {
		return NewInteger(lit.Value, DupType(lit.Type()))
	}
	return n
}

var unitNames = map[uint64]string{1: "b", 4: "N", 8: "B"}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	switch t.Code {
	case TypeIntegral:
		if t.Signed {
			return fmt.Sprintf("int<%d>", t.Size)
		}
		return fmt.Sprintf("uint<%d>", t.Size)
	case TypeString, TypeVoid, TypeAny:
		return string(t.Code)
	case TypeArray:
		bound := ""
		if n, ok := t.BoundValue(); ok {
			bound = fmt.Sprintf("%d", n)
		} else if bits, ok := literalOffsetBits(t.Bound); ok {
			bound = fmt.Sprintf("%d#b", bits)
		} else if t.Bound != nil {
			bound = "?"
		}
		return fmt.Sprintf("%s[%s]", t.Elem, bound)
	case TypeStruct:
		var b strings.Builder
		b.WriteString("struct {")
		for _, f := range t.Fields {
			b.WriteString(f.FieldType.String())
			if name := f.FieldName(); name != "" {
				b.WriteString(" ")
				b.WriteString(name)
			}
			b.WriteString(";")
		}
		b.WriteString("}")
		return b.String()
	case TypeOffset:
		unit := "?"
		if u, ok := t.UnitValue(); ok {
			if name, ok := unitNames[u]; ok {
				unit = name
			} else {
				unit = fmt.Sprintf("%d", u)
			}
		}
		return fmt.Sprintf("offset<%s,%s>", t.Base, unit)
	case TypeFunction:
		parts := make([]string, 0, len(t.Args))
		for _, a := range t.Args {
			s := a.ArgType.String()
			switch {
			case a.Vararg:
				s = "..."
			case a.Optional:
				s += "?"
			}
			parts = append(parts, s)
		}
		return fmt.Sprintf("(%s)%s", strings.Join(parts, ","), t.Return)
	}
	return string(t.Code)
}

package typify

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
)

// Unify returns the type two alternatives of a conditional expression
// convert to, if any.
func Unify(a, b *ast.Type) (*ast.Type, bool) {
	switch {
	case ast.Equal(a, b):
		return a, true
	case a.IsIntegral() && b.IsIntegral():
		return Widen(a, b), true
	case a.IsOffset() && b.IsOffset():
		return WidenOffsets(a, b)
	}
	return nil, false
}

func typifyCondExp(c *pass.Context, n ast.Node) error {
	cond := n.(*ast.CondExp)
	ct, err := typeOf(cond.Cond)
	if err != nil {
		return err
	}
	if !ct.IsIntegral() {
		return fail(c, cond.Cond, "invalid condition: expected integral, got %s", ct)
	}
	tt, err := typeOf(cond.Then)
	if err != nil {
		return err
	}
	et, err := typeOf(cond.Else)
	if err != nil {
		return err
	}
	t, ok := Unify(tt, et)
	if !ok {
		return fail(c, cond, "alternatives in conditional expression have different types: %s and %s", tt, et)
	}
	cond.SetType(t)
	return nil
}

func typifyArrayInitializer(c *pass.Context, n ast.Node) error {
	init := n.(*ast.ArrayInitializer)
	t, err := typeOf(init.Exp)
	if err != nil {
		return err
	}
	if init.Index != nil {
		it, err := typeOf(init.Index)
		if err != nil {
			return err
		}
		if !it.IsIntegral() {
			return fail(c, init.Index, "invalid array initializer index: expected integral, got %s", it)
		}
	}
	init.SetType(t)
	return nil
}

func typifyArray(c *pass.Context, n ast.Node) error {
	arr := n.(*ast.Array)
	if len(arr.Initializers) == 0 {
		return fail(c, arr, "array literals must have at least one element")
	}
	var elem *ast.Type
	var next, nelem uint64
	for _, init := range arr.Initializers {
		t, err := typeOf(init)
		if err != nil {
			return err
		}
		if elem == nil {
			elem = t
		} else if !ast.Equal(elem, t) {
			return fail(c, init, "array initializers should be of the same type: expected %s, got %s", elem, t)
		}
		if init.Index != nil {
			idx, ok := init.Index.(*ast.Integer)
			if !ok {
				return fail(c, init.Index, "array initializer indexes must be constant")
			}
			if idx.IsNegative() {
				return fail(c, init.Index, "array initializer indexes must be non-negative")
			}
			next = idx.Value
		}
		next++
		nelem = max(nelem, next)
	}
	arr.NElem = nelem
	arr.SetType(ast.NewArrayType(elem, ast.NewInteger(nelem, uint64Type())))
	return nil
}

func typifyStructField(c *pass.Context, n ast.Node) error {
	f := n.(*ast.StructField)
	t, err := typeOf(f.Exp)
	if err != nil {
		return err
	}
	f.SetType(t)
	return nil
}

func typifyStruct(c *pass.Context, n ast.Node) error {
	s := n.(*ast.Struct)
	fields := make([]*ast.StructTypeField, 0, len(s.Fields))
	for _, f := range s.Fields {
		t, err := typeOf(f)
		if err != nil {
			return err
		}
		fields = append(fields, ast.NewStructTypeField(f.Name, t, nil, nil))
	}
	s.SetType(ast.NewStructType(fields))
	return nil
}

func typifyStructRef(c *pass.Context, n ast.Node) error {
	ref := n.(*ast.StructRef)
	st, err := typeOf(ref.Struct)
	if err != nil {
		return err
	}
	if !st.IsStruct() {
		return fail(c, ref.Struct, "invalid operand in field reference: expected struct, got %s", st)
	}
	f, _ := st.FieldByName(ref.Field.Name)
	if f == nil {
		return fail(c, ref.Field, "field `%s' not found in struct %s", ref.Field.Name, st)
	}
	ref.SetType(f.FieldType)
	return nil
}

func typifyIndexer(c *pass.Context, n ast.Node) error {
	idx := n.(*ast.Indexer)
	et, err := typeOf(idx.Entity)
	if err != nil {
		return err
	}
	it, err := typeOf(idx.Index)
	if err != nil {
		return err
	}
	if !it.IsIntegral() {
		return fail(c, idx.Index, "invalid index: expected integral, got %s", it)
	}
	switch {
	case et.IsArray():
		idx.SetType(et.Elem)
	case et.IsString():
		idx.SetType(ast.NewIntegralType(8, false))
	default:
		return fail(c, idx.Entity, "invalid operand to []: expected array or string, got %s", et)
	}
	return nil
}

func typifyTrimmer(c *pass.Context, n ast.Node) error {
	trim := n.(*ast.Trimmer)
	et, err := typeOf(trim.Entity)
	if err != nil {
		return err
	}
	for _, bound := range []ast.Node{trim.From, trim.To} {
		if bound == nil {
			continue
		}
		bt, err := typeOf(bound)
		if err != nil {
			return err
		}
		if !bt.IsIntegral() {
			return fail(c, bound, "invalid trimmer bound: expected integral, got %s", bt)
		}
	}
	switch {
	case et.IsArray():
		trim.SetType(ast.NewArrayType(et.Elem, nil))
	case et.IsString():
		trim.SetType(ast.NewStringType())
	default:
		return fail(c, trim.Entity, "invalid operand to [:]: expected array or string, got %s", et)
	}
	return nil
}

// unitBits turns the unit of an offset into a literal number of bits.
func unitBits(c *pass.Context, owner ast.Node, unit ast.Node) (*ast.Integer, error) {
	switch u := unit.(type) {
	case *ast.Integer:
		if !u.IsPositive() {
			return nil, fail(c, u, "offset unit must be greater than zero")
		}
		return u, nil
	case *ast.Type:
		ast.DeriveCompleteness(u)
		size, ok := ast.SizeOf(u)
		if !ok {
			return nil, fail(c, u, "type %s used as offset unit is not complete", u)
		}
		if size == 0 {
			return nil, fail(c, u, "offset unit must be greater than zero")
		}
		return ast.WithSpan(ast.NewInteger(size, uint64Type()), u.Span()), nil
	case nil:
		return nil, diag.ICE(owner, "offset without unit")
	}
	t, err := typeOf(unit)
	if err != nil {
		return nil, err
	}
	if !t.IsIntegral() {
		return nil, fail(c, unit, "invalid offset unit: expected integral, got %s", t)
	}
	return nil, fail(c, unit, "offset unit must be constant")
}

func typifyOffset(c *pass.Context, n ast.Node) error {
	off := n.(*ast.Offset)
	if off.Magnitude == nil {
		off.Magnitude = ast.WithSpan(ast.Int(1), off.Span())
	}
	mt, err := typeOf(off.Magnitude)
	if err != nil {
		return err
	}
	if !mt.IsIntegral() {
		return fail(c, off.Magnitude, "invalid offset magnitude: expected integral, got %s", mt)
	}
	unit, err := unitBits(c, off, off.Unit)
	if err != nil {
		return err
	}
	off.Unit = unit
	off.SetType(ast.NewOffsetType(mt, unit))
	return nil
}

func typifyOffsetType(c *pass.Context, n ast.Node) error {
	t := n.(*ast.Type)
	if !t.Base.IsIntegral() {
		return fail(c, t.Base, "invalid offset type: magnitude must be integral, got %s", t.Base)
	}
	unit, err := unitBits(c, t, t.Unit)
	if err != nil {
		return err
	}
	t.Unit = unit
	return nil
}

func typifyArrayType(c *pass.Context, n ast.Node) error {
	t := n.(*ast.Type)
	if t.Bound == nil {
		return nil
	}
	bt, err := typeOf(t.Bound)
	if err != nil {
		return err
	}
	if !bt.IsIntegral() && !bt.IsOffset() {
		return fail(c, t.Bound, "invalid array bound: expected integral or offset, got %s", bt)
	}
	return nil
}

func typifyStructTypeField(c *pass.Context, n ast.Node) error {
	f := n.(*ast.StructTypeField)
	if f.Constraint != nil {
		t, err := typeOf(f.Constraint)
		if err != nil {
			return err
		}
		if !t.IsIntegral() {
			return fail(c, f.Constraint, "invalid field constraint: expected integral, got %s", t)
		}
	}
	if f.Label != nil {
		t, err := typeOf(f.Label)
		if err != nil {
			return err
		}
		if !t.IsOffset() {
			return fail(c, f.Label, "invalid field label: expected offset, got %s", t)
		}
	}
	return nil
}

// CastAllowed reports whether an explicit conversion from one type to
// another is legal.
func CastAllowed(from, to *ast.Type) bool {
	switch {
	case ast.Equal(from, to), from.IsAny(), to.IsAny():
		return true
	case from.IsIntegral() && to.IsIntegral():
		return true
	case from.IsOffset() && to.IsOffset():
		return true
	case from.IsArray() && to.IsArray():
		return ast.Equal(from.Elem, to.Elem) || to.Elem.IsAny()
	}
	return false
}

func typifyCast(c *pass.Context, n ast.Node) error {
	cast := n.(*ast.Cast)
	from, err := typeOf(cast.Exp)
	if err != nil {
		return err
	}
	if !CastAllowed(from, cast.CastType) {
		return fail(c, cast, "invalid cast from %s to %s", from, cast.CastType)
	}
	cast.SetType(cast.CastType)
	return nil
}

// typifyIsa decides the test at compile time whenever the static type of the
// operand settles it.
func typifyIsa(c *pass.Context, n ast.Node) error {
	isa := n.(*ast.Isa)
	t, err := typeOf(isa.Exp)
	if err != nil {
		return err
	}
	isa.SetType(boolType())
	if !isa.IsaType.IsAny() && t.IsAny() {
		return nil
	}
	var v uint64
	if isa.IsaType.IsAny() || ast.Equal(t, isa.IsaType) {
		v = 1
	}
	c.Replace(ast.WithSpan(ast.NewInteger(v, boolType()), isa.Span()))
	return nil
}

func mappable(t *ast.Type) bool {
	return t.IsIntegral() || t.IsOffset() || t.IsString() || t.IsArray() || t.IsStruct()
}

func typifyMap(c *pass.Context, n ast.Node) error {
	m := n.(*ast.Map)
	if !mappable(m.MapType) {
		return fail(c, m, "type %s cannot be mapped", m.MapType)
	}
	ot, err := typeOf(m.Offset)
	if err != nil {
		return err
	}
	if !ot.IsOffset() {
		return fail(c, m.Offset, "invalid map offset: expected offset, got %s", ot)
	}
	if m.IOS != nil {
		it, err := typeOf(m.IOS)
		if err != nil {
			return err
		}
		if !it.IsIntegral() {
			return fail(c, m.IOS, "invalid IO space: expected integral, got %s", it)
		}
	}
	m.SetType(m.MapType)
	return nil
}

func typifyScons(c *pass.Context, n ast.Node) error {
	s := n.(*ast.Scons)
	if !s.SconsType.IsStruct() {
		return fail(c, s, "invalid struct constructor: %s is not a struct type", s.SconsType)
	}
	for _, f := range s.Value.Fields {
		if f.Name == nil {
			return fail(c, f, "struct constructor fields must be named")
		}
		tf, _ := s.SconsType.FieldByName(f.Name.Name)
		if tf == nil {
			return fail(c, f, "invalid struct constructor: field `%s' not found in %s", f.Name.Name, s.SconsType)
		}
		ft, err := typeOf(f)
		if err != nil {
			return err
		}
		if !ast.Promotable(ft, tf.FieldType) {
			return fail(c, f, "invalid initial value for field `%s': expected %s, got %s", f.Name.Name, tf.FieldType, ft)
		}
	}
	s.SetType(s.SconsType)
	return nil
}

func typifyLambda(c *pass.Context, n ast.Node) error {
	l := n.(*ast.Lambda)
	t, err := typeOf(l.Function)
	if err != nil {
		return err
	}
	l.SetType(t)
	return nil
}

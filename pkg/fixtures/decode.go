// Package fixtures reads the YAML program fixtures the command line and the
// tests compile, and the markdown documents that bundle such programs with
// their expected outcome.
//
// A program is a YAML sequence of statements. Every statement and most
// expressions are mappings with a "kind" key:
//
//	- kind: var
//	  name: x
//	  value: {kind: bin, op: "+", left: {kind: int, value: 1, size: 64}, right: 2}
//	- kind: exp
//	  exp: {kind: call, fn: f, args: [x, {kind: named, name: b, value: 3}]}
//
// A bare integer is an int<32> literal and a bare string names a variable.
// Types are written as names (int, uint<16>, Packet) or as mappings of kind
// array, offset, struct or function.
package fixtures

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/build"
)

// DecodeError locates a problem in a program fixture.
type DecodeError struct {
	Line   int
	Column int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func errorf(n *yaml.Node, format string, args ...any) error {
	return &DecodeError{Line: n.Line, Column: n.Column, Err: fmt.Errorf(format, args...)}
}

func wrap(n *yaml.Node, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Line: n.Line, Column: n.Column, Err: err}
}

// DecodeProgram decodes a program fixture. Names are declared and resolved
// through b, as the parser would do.
func DecodeProgram(data []byte, b *build.Builder) (*ast.Program, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	if len(doc.Content) == 0 {
		return ast.NewProgram(nil), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, errorf(root, "a program is a sequence of statements")
	}
	d := &decoder{b: b}
	elems, err := d.stmts(root)
	if err != nil {
		return nil, err
	}
	return ast.WithSpan(ast.NewProgram(elems), span(root)), nil
}

type decoder struct {
	b *build.Builder
}

func span(n *yaml.Node) ast.Span {
	pos := ast.Position{Line: n.Line, Column: n.Column}
	return ast.Span{Start: pos, End: pos}
}

type object struct {
	node   *yaml.Node
	fields map[string]*yaml.Node
}

func newObject(n *yaml.Node) (*object, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "expected a mapping")
	}
	o := &object{node: n, fields: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		o.fields[n.Content[i].Value] = n.Content[i+1]
	}
	return o, nil
}

func (o *object) get(key string) (*yaml.Node, bool) {
	n, ok := o.fields[key]
	if !ok || n.Tag == "!!null" {
		return nil, false
	}
	return n, true
}

func (o *object) required(key string) (*yaml.Node, error) {
	n, ok := o.get(key)
	if !ok {
		return nil, errorf(o.node, "missing %q", key)
	}
	return n, nil
}

func (o *object) str(key string) (string, error) {
	n, err := o.required(key)
	if err != nil {
		return "", err
	}
	if n.Kind != yaml.ScalarNode {
		return "", errorf(n, "%q must be a scalar", key)
	}
	return n.Value, nil
}

func (o *object) optStr(key string) string {
	if n, ok := o.get(key); ok && n.Kind == yaml.ScalarNode {
		return n.Value
	}
	return ""
}

func (o *object) integer(key string, def int64) (int64, error) {
	n, ok := o.get(key)
	if !ok {
		return def, nil
	}
	return parseInt(n)
}

func (o *object) boolean(key string) (bool, error) {
	n, ok := o.get(key)
	if !ok {
		return false, nil
	}
	var v bool
	if err := n.Decode(&v); err != nil {
		return false, wrap(n, err)
	}
	return v, nil
}

// kind reads the "kind" key. The null statement is spelled kind: null, which
// YAML resolves to a null scalar.
func (o *object) kind() (string, error) {
	n, ok := o.fields["kind"]
	if !ok || n.Kind != yaml.ScalarNode {
		return "", errorf(o.node, `missing "kind"`)
	}
	return n.Value, nil
}

func parseInt(n *yaml.Node) (int64, error) {
	if v, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
		return v, nil
	}
	v, err := strconv.ParseUint(n.Value, 0, 64)
	if err != nil {
		return 0, errorf(n, "invalid integer %q", n.Value)
	}
	return int64(v), nil
}

func (d *decoder) stmts(n *yaml.Node) ([]ast.Node, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errorf(n, "expected a sequence of statements")
	}
	out := make([]ast.Node, 0, len(n.Content))
	for _, item := range n.Content {
		stmt, err := d.stmt(item)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// block decodes a compound statement, which opens a frame.
func (d *decoder) block(n *yaml.Node) (*ast.CompStmt, error) {
	d.b.PushFrame()
	stmts, err := d.stmts(n)
	if perr := d.b.PopFrame(); err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}
	return ast.WithSpan(ast.NewCompStmt(stmts), span(n)), nil
}

func (d *decoder) optBlock(o *object, key string) (ast.Node, error) {
	n, ok := o.get(key)
	if !ok {
		return nil, nil
	}
	return d.block(n)
}

func (d *decoder) optExp(o *object, key string) (ast.Node, error) {
	n, ok := o.get(key)
	if !ok {
		return nil, nil
	}
	return d.exp(n)
}

func (d *decoder) requiredExp(o *object, key string) (ast.Node, error) {
	n, err := o.required(key)
	if err != nil {
		return nil, err
	}
	return d.exp(n)
}

func (d *decoder) requiredType(o *object, key string) (*ast.Type, error) {
	n, err := o.required(key)
	if err != nil {
		return nil, err
	}
	return d.typ(n)
}

func (d *decoder) stmt(n *yaml.Node) (ast.Node, error) {
	o, err := newObject(n)
	if err != nil {
		return nil, err
	}
	kind, err := o.kind()
	if err != nil {
		return nil, err
	}
	stmt, err := d.stmtOf(kind, o)
	if err != nil {
		return nil, wrap(n, err)
	}
	return ast.WithSpan(stmt, span(n)), nil
}

func (d *decoder) stmtOf(kind string, o *object) (ast.Node, error) {
	switch kind {
	case "var":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		value, err := d.requiredExp(o, "value")
		if err != nil {
			return nil, err
		}
		return d.b.DeclareVar(name, value)
	case "type":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		t, err := d.requiredType(o, "type")
		if err != nil {
			return nil, err
		}
		return d.b.DeclareType(name, t)
	case "unit":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		bits, err := o.integer("bits", 0)
		if err != nil {
			return nil, err
		}
		return d.b.DeclareUnit(name, uint64(bits))
	case "func":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		_, decl, err := d.function(name, o)
		return decl, err
	case "exp":
		exp, err := d.requiredExp(o, "exp")
		if err != nil {
			return nil, err
		}
		return ast.NewExpStmt(exp), nil
	case "assign":
		lvalue, err := d.requiredExp(o, "lvalue")
		if err != nil {
			return nil, err
		}
		exp, err := d.requiredExp(o, "exp")
		if err != nil {
			return nil, err
		}
		return ast.NewAssStmt(lvalue, exp), nil
	case "if":
		cond, err := d.requiredExp(o, "cond")
		if err != nil {
			return nil, err
		}
		then, err := d.optBlock(o, "then")
		if err != nil {
			return nil, err
		}
		if then == nil {
			then = ast.NewNullStmt()
		}
		els, err := d.optBlock(o, "else")
		if err != nil {
			return nil, err
		}
		return ast.NewIfStmt(cond, then, els), nil
	case "while":
		loop := d.b.BeginLoop()
		cond, err := d.optExp(o, "cond")
		if err != nil {
			return nil, err
		}
		body, err := d.loopBody(o)
		if err != nil {
			return nil, err
		}
		loop.Cond, loop.Body = cond, body
		return d.b.EndLoop()
	case "for":
		name, err := o.str("var")
		if err != nil {
			return nil, err
		}
		container, err := d.requiredExp(o, "in")
		if err != nil {
			return nil, err
		}
		loop, err := d.b.BeginForIn(name, container)
		if err != nil {
			return nil, err
		}
		cond, err := d.optExp(o, "where")
		if err != nil {
			return nil, err
		}
		body, err := d.loopBody(o)
		if err != nil {
			return nil, err
		}
		loop.Cond, loop.Body = cond, body
		return d.b.EndLoop()
	case "return":
		exp, err := d.optExp(o, "exp")
		if err != nil {
			return nil, err
		}
		return d.b.Return(exp), nil
	case "break":
		return d.b.Break(), nil
	case "continue":
		return d.b.Continue(), nil
	case "raise":
		exp, err := d.optExp(o, "exp")
		if err != nil {
			return nil, err
		}
		return ast.NewRaiseStmt(exp), nil
	case "print":
		exp, err := d.requiredExp(o, "exp")
		if err != nil {
			return nil, err
		}
		return ast.NewPrintStmt(exp), nil
	case "try":
		return d.tryCatch(o)
	case "block":
		body, err := o.required("body")
		if err != nil {
			return nil, err
		}
		return d.block(body)
	case "null":
		return ast.NewNullStmt(), nil
	}
	return nil, fmt.Errorf("unknown statement kind %q", kind)
}

func (d *decoder) loopBody(o *object) (ast.Node, error) {
	body, err := d.optBlock(o, "body")
	if err != nil || body != nil {
		return body, err
	}
	return ast.NewNullStmt(), nil
}

func (d *decoder) tryCatch(o *object) (ast.Node, error) {
	codeNode, err := o.required("body")
	if err != nil {
		return nil, err
	}
	code, err := d.block(codeNode)
	if err != nil {
		return nil, err
	}
	arg, err := d.b.BeginCatch(o.optStr("arg"))
	if err != nil {
		return nil, err
	}
	cond, err := d.optExp(o, "if")
	if err != nil {
		return nil, err
	}
	handler, err := d.optBlock(o, "catch")
	if err != nil {
		return nil, err
	}
	if err := d.b.EndCatch(); err != nil {
		return nil, err
	}
	if handler == nil {
		handler = ast.NewNullStmt()
	}
	return ast.NewTryCatchStmt(code, handler, arg, cond), nil
}

// function decodes the formals and body of a function or lambda.
func (d *decoder) function(name string, o *object) (*ast.Func, *ast.Decl, error) {
	ret := ast.NewVoidType()
	if n, ok := o.get("ret"); ok {
		t, err := d.typ(n)
		if err != nil {
			return nil, nil, err
		}
		ret = t
	}
	var args []*ast.FuncArg
	if n, ok := o.get("args"); ok {
		if n.Kind != yaml.SequenceNode {
			return nil, nil, errorf(n, "args must be a sequence")
		}
		for _, item := range n.Content {
			arg, err := d.formal(item)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, arg)
		}
	}
	fn, decl, err := d.b.BeginFunc(name, ret, args)
	if err != nil {
		return nil, nil, err
	}
	fn.SetSpan(span(o.node))
	var body *ast.CompStmt
	if n, ok := o.get("body"); ok {
		body, err = d.block(n)
	} else {
		body = ast.NewCompStmt(nil)
	}
	if _, endErr := d.b.EndFunc(body); err == nil {
		err = endErr
	}
	if err != nil {
		return nil, nil, err
	}
	if decl != nil {
		decl.SetSpan(span(o.node))
	}
	return fn, decl, nil
}

func (d *decoder) formal(n *yaml.Node) (*ast.FuncArg, error) {
	o, err := newObject(n)
	if err != nil {
		return nil, err
	}
	name, err := o.str("name")
	if err != nil {
		return nil, err
	}
	vararg, err := o.boolean("vararg")
	if err != nil {
		return nil, err
	}
	var t *ast.Type
	if tn, ok := o.get("type"); ok {
		if t, err = d.typ(tn); err != nil {
			return nil, err
		}
	} else if !vararg {
		return nil, errorf(n, "argument %q has no type", name)
	}
	def, err := d.optExp(o, "default")
	if err != nil {
		return nil, err
	}
	return ast.WithSpan(ast.NewFuncArg(ast.ID(name), t, def, vararg), span(n)), nil
}

func lookupOperator(name string, arity int) (ast.Operator, bool) {
	for _, op := range ast.Operators {
		if string(op) == name && op.Arity() == arity && op != ast.OpAttr && op != ast.OpSizeof {
			return op, true
		}
	}
	return "", false
}

func (d *decoder) exp(n *yaml.Node) (ast.Node, error) {
	if n.Kind == yaml.ScalarNode {
		switch n.Tag {
		case "!!int":
			v, err := parseInt(n)
			if err != nil {
				return nil, err
			}
			return ast.WithSpan(ast.Int(v), span(n)), nil
		case "!!str":
			v, err := d.b.Ref(n.Value)
			if err != nil {
				return nil, wrap(n, err)
			}
			return ast.WithSpan(v, span(n)), nil
		}
		return nil, errorf(n, "invalid expression %q", n.Value)
	}
	o, err := newObject(n)
	if err != nil {
		return nil, err
	}
	kind, err := o.kind()
	if err != nil {
		return nil, err
	}
	exp, err := d.expOf(kind, o)
	if err != nil {
		return nil, wrap(n, err)
	}
	return ast.WithSpan(exp, span(n)), nil
}

func (d *decoder) expOf(kind string, o *object) (ast.Node, error) {
	switch kind {
	case "int":
		v, err := o.integer("value", 0)
		if err != nil {
			return nil, err
		}
		size, err := o.integer("size", 32)
		if err != nil {
			return nil, err
		}
		if size < 1 || size > 64 {
			return nil, fmt.Errorf("invalid integer size %d", size)
		}
		signed := true
		if _, ok := o.get("signed"); ok {
			if signed, err = o.boolean("signed"); err != nil {
				return nil, err
			}
		}
		return ast.IntTyped(v, int(size), signed), nil
	case "str":
		v, err := o.str("value")
		if err != nil {
			return nil, err
		}
		return ast.Str(v), nil
	case "ref":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		return d.b.Ref(name)
	case "bin":
		opName, err := o.str("op")
		if err != nil {
			return nil, err
		}
		op, ok := lookupOperator(opName, 2)
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", opName)
		}
		l, err := d.requiredExp(o, "left")
		if err != nil {
			return nil, err
		}
		r, err := d.requiredExp(o, "right")
		if err != nil {
			return nil, err
		}
		return ast.Bin(op, l, r), nil
	case "un":
		opName, err := o.str("op")
		if err != nil {
			return nil, err
		}
		op, ok := lookupOperator(opName, 1)
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", opName)
		}
		operand, err := d.requiredExp(o, "operand")
		if err != nil {
			return nil, err
		}
		return ast.Un(op, operand), nil
	case "attr":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		attr, ok := ast.LookupAttribute(name)
		if !ok {
			return nil, fmt.Errorf("unknown attribute '%s", name)
		}
		operand, err := d.requiredExp(o, "operand")
		if err != nil {
			return nil, err
		}
		return ast.Attr(attr, operand), nil
	case "sizeof":
		if _, ok := o.get("type"); ok {
			t, err := d.requiredType(o, "type")
			if err != nil {
				return nil, err
			}
			return ast.Sizeof(t), nil
		}
		operand, err := d.requiredExp(o, "exp")
		if err != nil {
			return nil, err
		}
		return ast.NewExp(ast.OpSizeof, operand), nil
	case "cond":
		cond, err := d.requiredExp(o, "cond")
		if err != nil {
			return nil, err
		}
		then, err := d.requiredExp(o, "then")
		if err != nil {
			return nil, err
		}
		els, err := d.requiredExp(o, "else")
		if err != nil {
			return nil, err
		}
		return ast.NewCondExp(cond, then, els), nil
	case "array":
		return d.array(o)
	case "index":
		entity, err := d.requiredExp(o, "entity")
		if err != nil {
			return nil, err
		}
		index, err := d.requiredExp(o, "index")
		if err != nil {
			return nil, err
		}
		return ast.NewIndexer(entity, index), nil
	case "trim":
		entity, err := d.requiredExp(o, "entity")
		if err != nil {
			return nil, err
		}
		from, err := d.requiredExp(o, "from")
		if err != nil {
			return nil, err
		}
		to, err := d.requiredExp(o, "to")
		if err != nil {
			return nil, err
		}
		return ast.NewTrimmer(entity, from, to), nil
	case "struct":
		return d.structLiteral(o)
	case "field":
		strct, err := d.requiredExp(o, "struct")
		if err != nil {
			return nil, err
		}
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		return ast.NewStructRef(strct, ast.ID(name)), nil
	case "offset":
		mag, err := d.optExp(o, "magnitude")
		if err != nil {
			return nil, err
		}
		unitNode, err := o.required("unit")
		if err != nil {
			return nil, err
		}
		unit, err := d.unit(unitNode)
		if err != nil {
			return nil, err
		}
		return ast.NewOffset(mag, unit), nil
	case "cast", "isa":
		t, err := d.requiredType(o, "type")
		if err != nil {
			return nil, err
		}
		exp, err := d.requiredExp(o, "exp")
		if err != nil {
			return nil, err
		}
		if kind == "cast" {
			return ast.NewCast(t, exp), nil
		}
		return ast.NewIsa(t, exp), nil
	case "map":
		t, err := d.requiredType(o, "type")
		if err != nil {
			return nil, err
		}
		ios, err := d.optExp(o, "ios")
		if err != nil {
			return nil, err
		}
		off, err := d.requiredExp(o, "offset")
		if err != nil {
			return nil, err
		}
		return ast.NewMap(t, ios, off), nil
	case "scons":
		t, err := d.requiredType(o, "type")
		if err != nil {
			return nil, err
		}
		value, err := d.structLiteral(o)
		if err != nil {
			return nil, err
		}
		return ast.NewScons(t, value), nil
	case "call":
		return d.call(o)
	case "lambda":
		fn, _, err := d.function("", o)
		if err != nil {
			return nil, err
		}
		return ast.NewLambda(fn), nil
	}
	return nil, fmt.Errorf("unknown expression kind %q", kind)
}

func (d *decoder) array(o *object) (*ast.Array, error) {
	n, err := o.required("elems")
	if err != nil {
		return nil, err
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errorf(n, "elems must be a sequence")
	}
	inits := make([]*ast.ArrayInitializer, 0, len(n.Content))
	for _, item := range n.Content {
		var index, exp ast.Node
		if item.Kind == yaml.MappingNode {
			io, err := newObject(item)
			if err != nil {
				return nil, err
			}
			if io.optStr("kind") == "init" {
				if index, err = d.optExp(io, "index"); err != nil {
					return nil, err
				}
				if exp, err = d.requiredExp(io, "value"); err != nil {
					return nil, err
				}
			}
		}
		if exp == nil {
			if exp, err = d.exp(item); err != nil {
				return nil, err
			}
		}
		inits = append(inits, ast.WithSpan(ast.NewArrayInitializer(index, exp), span(item)))
	}
	return ast.NewArray(inits), nil
}

func (d *decoder) structLiteral(o *object) (*ast.Struct, error) {
	var fields []*ast.StructField
	if n, ok := o.get("fields"); ok {
		if n.Kind != yaml.SequenceNode {
			return nil, errorf(n, "fields must be a sequence")
		}
		for _, item := range n.Content {
			fo, err := newObject(item)
			if err != nil {
				return nil, err
			}
			value, err := d.requiredExp(fo, "value")
			if err != nil {
				return nil, err
			}
			fields = append(fields, ast.WithSpan(ast.Field(fo.optStr("name"), value), span(item)))
		}
	}
	return ast.WithSpan(ast.NewStruct(fields), span(o.node)), nil
}

func (d *decoder) call(o *object) (*ast.Funcall, error) {
	fn, err := d.requiredExp(o, "fn")
	if err != nil {
		return nil, err
	}
	var args []*ast.FuncallArg
	if n, ok := o.get("args"); ok {
		if n.Kind != yaml.SequenceNode {
			return nil, errorf(n, "args must be a sequence")
		}
		for _, item := range n.Content {
			arg, err := d.actual(item)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}
	return ast.NewFuncall(fn, args), nil
}

func (d *decoder) actual(n *yaml.Node) (*ast.FuncallArg, error) {
	if n.Kind == yaml.MappingNode {
		o, err := newObject(n)
		if err != nil {
			return nil, err
		}
		if o.optStr("kind") == "named" {
			name, err := o.str("name")
			if err != nil {
				return nil, err
			}
			value, err := d.requiredExp(o, "value")
			if err != nil {
				return nil, err
			}
			return ast.WithSpan(ast.NamedArg(name, value), span(n)), nil
		}
	}
	exp, err := d.exp(n)
	if err != nil {
		return nil, err
	}
	return ast.WithSpan(ast.Arg(exp), span(n)), nil
}

// unit decodes the unit of an offset or offset type: a number of bits, a
// unit name or a type name.
func (d *decoder) unit(n *yaml.Node) (ast.Node, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!int" {
		v, err := parseInt(n)
		if err != nil {
			return nil, err
		}
		return ast.NewInteger(uint64(v), ast.NewIntegralType(64, false)), nil
	}
	if n.Kind == yaml.ScalarNode {
		if lit, err := d.b.Unit(n.Value); err == nil {
			return lit, nil
		}
	}
	t, err := d.typ(n)
	if err != nil {
		return nil, wrap(n, fmt.Errorf("%w unit `%s'", build.ErrUndefined, n.Value))
	}
	return t, nil
}

func parseIntegralName(name string) (*ast.Type, bool) {
	var signed bool
	switch {
	case strings.HasPrefix(name, "int<"):
		signed, name = true, strings.TrimPrefix(name, "int<")
	case strings.HasPrefix(name, "uint<"):
		name = strings.TrimPrefix(name, "uint<")
	default:
		return nil, false
	}
	size, err := strconv.Atoi(strings.TrimSuffix(name, ">"))
	if err != nil || !strings.HasSuffix(name, ">") || size < 1 || size > 64 {
		return nil, false
	}
	return ast.NewIntegralType(size, signed), true
}

func (d *decoder) typ(n *yaml.Node) (*ast.Type, error) {
	if n.Kind == yaml.ScalarNode {
		if t, ok := parseIntegralName(n.Value); ok {
			return ast.WithSpan(t, span(n)), nil
		}
		t, err := d.b.TypeRef(n.Value)
		if err != nil {
			return nil, wrap(n, err)
		}
		return ast.WithSpan(t, span(n)), nil
	}
	o, err := newObject(n)
	if err != nil {
		return nil, err
	}
	kind, err := o.kind()
	if err != nil {
		return nil, err
	}
	t, err := d.typeOf(kind, o)
	if err != nil {
		return nil, wrap(n, err)
	}
	return ast.WithSpan(t, span(n)), nil
}

func (d *decoder) typeOf(kind string, o *object) (*ast.Type, error) {
	switch kind {
	case "array":
		elem, err := d.requiredType(o, "elem")
		if err != nil {
			return nil, err
		}
		bound, err := d.optExp(o, "bound")
		if err != nil {
			return nil, err
		}
		return ast.NewArrayType(elem, bound), nil
	case "offset":
		base, err := d.requiredType(o, "base")
		if err != nil {
			return nil, err
		}
		unitNode, err := o.required("unit")
		if err != nil {
			return nil, err
		}
		unit, err := d.unit(unitNode)
		if err != nil {
			return nil, err
		}
		return ast.NewOffsetType(base, unit), nil
	case "struct":
		var fields []*ast.StructTypeField
		if n, ok := o.get("fields"); ok {
			if n.Kind != yaml.SequenceNode {
				return nil, errorf(n, "fields must be a sequence")
			}
			for _, item := range n.Content {
				f, err := d.structTypeField(item)
				if err != nil {
					return nil, err
				}
				fields = append(fields, f)
			}
		}
		return ast.NewStructType(fields), nil
	case "function":
		ret := ast.NewVoidType()
		if n, ok := o.get("ret"); ok {
			t, err := d.typ(n)
			if err != nil {
				return nil, err
			}
			ret = t
		}
		var args []*ast.FuncTypeArg
		if n, ok := o.get("args"); ok {
			for _, item := range n.Content {
				ao, err := newObject(item)
				if err != nil {
					return nil, err
				}
				t, err := d.requiredType(ao, "type")
				if err != nil {
					return nil, err
				}
				optional, err := ao.boolean("optional")
				if err != nil {
					return nil, err
				}
				vararg, err := ao.boolean("vararg")
				if err != nil {
					return nil, err
				}
				var id *ast.Identifier
				if name := ao.optStr("name"); name != "" {
					id = ast.ID(name)
				}
				args = append(args, ast.WithSpan(ast.NewFuncTypeArg(id, t, optional, vararg), span(item)))
			}
		}
		return ast.NewFunctionType(ret, args), nil
	}
	return nil, fmt.Errorf("unknown type kind %q", kind)
}

func (d *decoder) structTypeField(n *yaml.Node) (*ast.StructTypeField, error) {
	o, err := newObject(n)
	if err != nil {
		return nil, err
	}
	t, err := d.requiredType(o, "type")
	if err != nil {
		return nil, err
	}
	constraint, err := d.optExp(o, "constraint")
	if err != nil {
		return nil, err
	}
	label, err := d.optExp(o, "label")
	if err != nil {
		return nil, err
	}
	var id *ast.Identifier
	if name := o.optStr("name"); name != "" {
		id = ast.ID(name)
	}
	return ast.WithSpan(ast.NewStructTypeField(id, t, constraint, label), span(n)), nil
}

// Package build performs the semantic actions a parser runs while it builds
// the tree: it declares names in the compile-time environment, resolves
// identifiers to variable references carrying their lexical address, and
// binds break, continue and return statements to the loop or function
// enclosing them.
package build

import (
	"errors"
	"fmt"

	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/env"
)

var (
	ErrUndefined = errors.New("undefined")
	ErrRedefined = errors.New("already defined")
	ErrNotAType  = errors.New("not a type")
)

type loopContext struct {
	loop   *ast.LoopStmt
	framed bool
}

// Builder tracks the environment and the enclosing loops and functions of
// the construct being built.
type Builder struct {
	env   *env.Env
	loops []loopContext
	funcs []*ast.Func
}

// New returns a builder declaring into e, usually the environment of a
// compilation unit.
func New(e *env.Env) *Builder {
	return &Builder{env: e}
}

// Env returns the innermost environment.
func (b *Builder) Env() *env.Env { return b.env }

func (b *Builder) PushFrame() {
	b.env = b.env.Push()
}

// PopFrame leaves the innermost frame. The top-level frame is never popped.
func (b *Builder) PopFrame() error {
	if b.env.IsToplevel() {
		return errors.New("build: pop of the top-level frame")
	}
	b.env = b.env.Pop()
	return nil
}

func (b *Builder) register(decl *ast.Decl) error {
	name := decl.DeclName()
	if !b.env.Register(name, decl) {
		return fmt.Errorf("%s `%s' is %w in this scope", decl.Kind, name, ErrRedefined)
	}
	return nil
}

// DeclareVar declares a variable with an initial value.
func (b *Builder) DeclareVar(name string, initial ast.Node) (*ast.Decl, error) {
	decl := ast.WithSpan(ast.NewDecl(ast.DeclVar, ast.ID(name), initial), spanOf(initial))
	return decl, b.register(decl)
}

// DeclareType declares a named type. Struct types take the name, so that they
// compare by it.
func (b *Builder) DeclareType(name string, t *ast.Type) (*ast.Decl, error) {
	if t.IsStruct() {
		t.Name = name
	}
	decl := ast.WithSpan(ast.NewDecl(ast.DeclType, ast.ID(name), t), t.Span())
	return decl, b.register(decl)
}

// DeclareUnit declares an offset unit worth bits bits.
func (b *Builder) DeclareUnit(name string, bits uint64) (*ast.Decl, error) {
	value := ast.NewInteger(bits, ast.NewIntegralType(64, false))
	decl := ast.NewDecl(ast.DeclUnit, ast.ID(name), value)
	return decl, b.register(decl)
}

// BeginFunc declares a function and opens the frame of its formals. The
// declaration is registered before the body is built so that the function
// can call itself. An empty name builds a lambda, which declares nothing.
func (b *Builder) BeginFunc(name string, ret *ast.Type, args []*ast.FuncArg) (*ast.Func, *ast.Decl, error) {
	fn := ast.NewFunc(name, ret, args, nil)
	var decl *ast.Decl
	if name != "" {
		decl = ast.NewDecl(ast.DeclFunc, ast.ID(name), fn)
		if err := b.register(decl); err != nil {
			return nil, nil, err
		}
	}
	b.PushFrame()
	for _, a := range args {
		formal := ast.WithSpan(ast.NewDecl(ast.DeclVar, a.Name, a), a.Span())
		if err := b.register(formal); err != nil {
			b.env = b.env.Pop()
			return nil, nil, err
		}
	}
	b.funcs = append(b.funcs, fn)
	return fn, decl, nil
}

// EndFunc attaches the body to the innermost function and closes its frame.
func (b *Builder) EndFunc(body *ast.CompStmt) (*ast.Func, error) {
	if len(b.funcs) == 0 {
		return nil, errors.New("build: EndFunc without BeginFunc")
	}
	fn := b.funcs[len(b.funcs)-1]
	b.funcs = b.funcs[:len(b.funcs)-1]
	fn.Body = body
	return fn, b.PopFrame()
}

// BeginLoop opens a while loop. Its condition and body are set by the
// caller before EndLoop.
func (b *Builder) BeginLoop() *ast.LoopStmt {
	loop := ast.NewLoopStmt(nil, nil, nil)
	b.loops = append(b.loops, loopContext{loop: loop})
	return loop
}

// BeginForIn opens a for-in loop, declaring the iteration variable in a
// frame of its own.
func (b *Builder) BeginForIn(name string, container ast.Node) (*ast.LoopStmt, error) {
	b.PushFrame()
	decl := ast.WithSpan(ast.NewDecl(ast.DeclVar, ast.ID(name), nil), spanOf(container))
	if err := b.register(decl); err != nil {
		b.env = b.env.Pop()
		return nil, err
	}
	loop := ast.NewLoopStmt(ast.NewLoopStmtIterator(decl, container), nil, nil)
	b.loops = append(b.loops, loopContext{loop: loop, framed: true})
	return loop, nil
}

// EndLoop closes the innermost loop.
func (b *Builder) EndLoop() (*ast.LoopStmt, error) {
	if len(b.loops) == 0 {
		return nil, errors.New("build: EndLoop without BeginLoop")
	}
	ctx := b.loops[len(b.loops)-1]
	b.loops = b.loops[:len(b.loops)-1]
	if ctx.framed {
		return ctx.loop, b.PopFrame()
	}
	return ctx.loop, nil
}

// BeginCatch opens the frame of a catch handler binding the exception code
// to name. An empty name binds nothing.
func (b *Builder) BeginCatch(name string) (*ast.Decl, error) {
	b.PushFrame()
	if name == "" {
		return nil, nil
	}
	decl := ast.NewDecl(ast.DeclVar, ast.ID(name), nil)
	if err := b.register(decl); err != nil {
		b.env = b.env.Pop()
		return nil, err
	}
	return decl, nil
}

func (b *Builder) EndCatch() error {
	return b.PopFrame()
}

// Break builds a break statement targeting the innermost loop. Outside
// loops the target is nil, which the validators report.
func (b *Builder) Break() *ast.BreakStmt {
	return ast.NewBreakStmt(b.innermostLoop())
}

func (b *Builder) Continue() *ast.ContinueStmt {
	return ast.NewContinueStmt(b.innermostLoop())
}

func (b *Builder) innermostLoop() ast.Node {
	if len(b.loops) == 0 {
		return nil
	}
	return b.loops[len(b.loops)-1].loop
}

// Return builds a return statement from the innermost function.
func (b *Builder) Return(exp ast.Node) *ast.ReturnStmt {
	var fn *ast.Func
	if len(b.funcs) > 0 {
		fn = b.funcs[len(b.funcs)-1]
	}
	return ast.NewReturnStmt(exp, fn)
}

// Ref resolves a variable or function name.
func (b *Builder) Ref(name string) (*ast.Var, error) {
	decl, back, over, ok := b.env.Lookup(env.NSMain, name)
	if !ok {
		return nil, fmt.Errorf("%w variable `%s'", ErrUndefined, name)
	}
	return ast.NewVar(ast.ID(name), decl, back, over), nil
}

// TypeRef resolves a type name to a copy of the declared type.
func (b *Builder) TypeRef(name string) (*ast.Type, error) {
	decl, _, _, ok := b.env.Lookup(env.NSType, name)
	if !ok {
		return nil, fmt.Errorf("%w type `%s'", ErrUndefined, name)
	}
	t, ok := decl.Initial.(*ast.Type)
	if !ok {
		return nil, fmt.Errorf("`%s' is %w", name, ErrNotAType)
	}
	return ast.DupType(t), nil
}

// Unit resolves a unit name to its value in bits, as a uint<64> literal.
func (b *Builder) Unit(name string) (*ast.Integer, error) {
	decl, _, _, ok := b.env.Lookup(env.NSUnit, name)
	if !ok {
		return nil, fmt.Errorf("%w unit `%s'", ErrUndefined, name)
	}
	value, ok := decl.Initial.(*ast.Integer)
	if !ok {
		return nil, fmt.Errorf("unit `%s' has no constant value", name)
	}
	return ast.NewInteger(value.Value, ast.NewIntegralType(64, false)), nil
}

// Offset builds an offset literal whose unit is a unit name or, failing
// that, a type name.
func (b *Builder) Offset(magnitude ast.Node, unit string) (*ast.Offset, error) {
	if lit, err := b.Unit(unit); err == nil {
		return ast.NewOffset(magnitude, lit), nil
	}
	t, err := b.TypeRef(unit)
	if err != nil {
		return nil, fmt.Errorf("%w unit `%s'", ErrUndefined, unit)
	}
	return ast.NewOffset(magnitude, t), nil
}

func spanOf(n ast.Node) ast.Span {
	if n == nil {
		return ast.Span{}
	}
	return n.Span()
}

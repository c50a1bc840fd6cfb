package build

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"

	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/env"
)

func TestRefCarriesLexicalAddress(t *testing.T) {
	b := New(env.New())
	_, err := b.DeclareVar("g", ast.Int(1))
	be.Err(t, err, nil)
	_, err = b.DeclareVar("h", ast.Int(2))
	be.Err(t, err, nil)

	b.PushFrame()
	x, err := b.DeclareVar("x", ast.Int(3))
	be.Err(t, err, nil)

	v, err := b.Ref("x")
	be.Err(t, err, nil)
	be.True(t, v.Decl == x)
	be.Equal(t, v.Back, 0)
	be.Equal(t, v.Over, 0)

	v, err = b.Ref("h")
	be.Err(t, err, nil)
	be.Equal(t, v.Back, 1)
	be.Equal(t, v.Over, 1)

	be.Err(t, b.PopFrame(), nil)
	_, err = b.Ref("x")
	be.Err(t, err, ErrUndefined)
	be.Err(t, err, "undefined variable `x'")
}

func TestRedefinitionInSameFrame(t *testing.T) {
	b := New(env.New())
	_, err := b.DeclareVar("x", ast.Int(1))
	be.Err(t, err, nil)
	_, err = b.DeclareVar("x", ast.Int(2))
	be.Err(t, err, ErrRedefined)

	b.PushFrame()
	_, err = b.DeclareVar("x", ast.Int(3))
	be.Err(t, err, nil)
}

func TestPopToplevel(t *testing.T) {
	b := New(env.New())
	be.Err(t, b.PopFrame(), "top-level")
}

func TestSelfRecursiveFunction(t *testing.T) {
	b := New(env.New())
	arg := ast.NewFuncArg(ast.ID("n"), ast.IntTy(32), nil, false)
	fn, decl, err := b.BeginFunc("fact", ast.IntTy(32), []*ast.FuncArg{arg})
	be.Err(t, err, nil)

	self, err := b.Ref("fact")
	be.Err(t, err, nil)
	be.True(t, self.Decl == decl)
	be.Equal(t, self.Back, 1)

	n, err := b.Ref("n")
	be.Err(t, err, nil)
	be.Equal(t, n.Back, 0)
	be.True(t, n.Decl.Initial == ast.Node(arg))

	ret := b.Return(n)
	be.True(t, ret.Function == fn)

	body := ast.NewCompStmt([]ast.Node{ret})
	got, err := b.EndFunc(body)
	be.Err(t, err, nil)
	be.True(t, got == fn)
	be.True(t, fn.Body == body)
	be.True(t, b.Env().IsToplevel())

	be.True(t, b.Return(nil).Function == nil)
}

func TestDuplicateFormal(t *testing.T) {
	b := New(env.New())
	args := []*ast.FuncArg{
		ast.NewFuncArg(ast.ID("a"), ast.IntTy(32), nil, false),
		ast.NewFuncArg(ast.ID("a"), ast.IntTy(32), nil, false),
	}
	_, _, err := b.BeginFunc("f", ast.VoidTy(), args)
	be.Err(t, err, ErrRedefined)
	be.True(t, b.Env().IsToplevel())
}

func TestBreakTargetsInnermostLoop(t *testing.T) {
	b := New(env.New())
	be.True(t, b.Break().Entity == nil)

	outer := b.BeginLoop()
	inner, err := b.BeginForIn("c", ast.Str("abc"))
	be.Err(t, err, nil)

	be.True(t, b.Break().Entity == ast.Node(inner))
	be.True(t, b.Continue().Entity == ast.Node(inner))
	c, err := b.Ref("c")
	be.Err(t, err, nil)
	be.True(t, c.Decl == inner.Iterator.Decl)

	got, err := b.EndLoop()
	be.Err(t, err, nil)
	be.True(t, got == inner)
	_, err = b.Ref("c")
	be.Err(t, err, ErrUndefined)

	be.True(t, b.Break().Entity == ast.Node(outer))
	_, err = b.EndLoop()
	be.Err(t, err, nil)
	_, err = b.EndLoop()
	be.True(t, err != nil)
}

func TestCatchBindsException(t *testing.T) {
	b := New(env.New())
	decl, err := b.BeginCatch("e")
	be.Err(t, err, nil)
	v, err := b.Ref("e")
	be.Err(t, err, nil)
	be.True(t, v.Decl == decl)
	be.Err(t, b.EndCatch(), nil)
	be.True(t, b.Env().IsToplevel())
}

func TestTypesAndUnits(t *testing.T) {
	b := New(env.NewToplevel())

	intType, err := b.TypeRef("int")
	be.Err(t, err, nil)
	be.Equal(t, intType.String(), "int<32>")

	st := ast.StructTy(ast.FieldTy("a", ast.IntTy(8)))
	_, err = b.DeclareType("Packet", st)
	be.Err(t, err, nil)
	ref, err := b.TypeRef("Packet")
	be.Err(t, err, nil)
	be.True(t, ref != st)
	be.Equal(t, ref.String(), "Packet")

	unit, err := b.Unit("KiB")
	be.Err(t, err, nil)
	be.Equal(t, unit.Value, uint64(8*1024))

	off, err := b.Offset(ast.Int(2), "B")
	be.Err(t, err, nil)
	be.Equal(t, off.Unit.(*ast.Integer).Value, uint64(8))

	off, err = b.Offset(ast.Int(2), "Packet")
	be.Err(t, err, nil)
	_, isType := off.Unit.(*ast.Type)
	be.True(t, isType)

	_, err = b.Offset(ast.Int(2), "parsec")
	be.Err(t, err, ErrUndefined)

	_, err = b.DeclareUnit("W", 16)
	be.Err(t, err, nil)
	unit, err = b.Unit("W")
	be.Err(t, err, nil)
	be.Equal(t, unit.Value, uint64(16))
}

func TestErrorsAreDistinguishable(t *testing.T) {
	b := New(env.New())
	_, err := b.TypeRef("missing")
	be.True(t, errors.Is(err, ErrUndefined))
	be.True(t, !errors.Is(err, ErrRedefined))
}

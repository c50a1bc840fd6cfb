package env

import (
	"testing"

	"github.com/nalgeon/be"

	"pkl/compiler-go/pkg/ast"
)

func varDecl(name string) *ast.Decl {
	return ast.NewDecl(ast.DeclVar, ast.ID(name), ast.Int(0))
}

func TestRegisterAssignsSlotsInOrder(t *testing.T) {
	e := New()
	a, b := varDecl("a"), varDecl("b")
	be.True(t, e.Register("a", a))
	be.True(t, e.Register("b", b))
	be.Equal(t, a.Order, 0)
	be.Equal(t, b.Order, 1)
	be.Equal(t, e.Len(NSMain), 2)
}

func TestRegisterRejectsDuplicatesInSameFrame(t *testing.T) {
	e := New()
	be.True(t, e.Register("x", varDecl("x")))
	be.True(t, !e.Register("x", varDecl("x")))

	inner := e.Push()
	be.True(t, inner.Register("x", varDecl("x")))
}

func TestNamespacesAreIndependent(t *testing.T) {
	e := New()
	be.True(t, e.Register("Foo", varDecl("Foo")))
	typeDecl := ast.NewDecl(ast.DeclType, ast.ID("Foo"), ast.IntTy(8))
	be.True(t, e.Register("Foo", typeDecl))
	be.Equal(t, typeDecl.Order, 0)

	decl, _, _, ok := e.Lookup(NSType, "Foo")
	be.True(t, ok)
	be.True(t, decl == typeDecl)
}

func TestLookupReturnsLexicalAddress(t *testing.T) {
	e := New()
	g := varDecl("g")
	e.Register("g", g)
	e.Register("h", varDecl("h"))

	fn := e.Push()
	x := varDecl("x")
	fn.Register("x", x)
	block := fn.Push()
	y := varDecl("y")
	block.Register("y", y)

	decl, back, over, ok := block.Lookup(NSMain, "y")
	be.True(t, ok)
	be.True(t, decl == y)
	be.Equal(t, back, 0)
	be.Equal(t, over, 0)

	decl, back, over, ok = block.Lookup(NSMain, "x")
	be.True(t, ok)
	be.True(t, decl == x)
	be.Equal(t, back, 1)
	be.Equal(t, over, 0)

	_, back, over, ok = block.Lookup(NSMain, "h")
	be.True(t, ok)
	be.Equal(t, back, 2)
	be.Equal(t, over, 1)

	_, _, _, ok = block.Lookup(NSMain, "missing")
	be.True(t, !ok)

	be.Equal(t, block.Depth(), 3)
	be.True(t, block.Pop().Pop() == e)
}

func TestShadowingFindsInnermost(t *testing.T) {
	e := New()
	outer := varDecl("v")
	e.Register("v", outer)
	inner := e.Push()
	shadow := varDecl("v")
	inner.Register("v", shadow)

	decl, back, _, _ := inner.Lookup(NSMain, "v")
	be.True(t, decl == shadow)
	be.Equal(t, back, 0)
}

func TestDupToplevelIsolatesNewDeclarations(t *testing.T) {
	e := New()
	e.Register("a", varDecl("a"))

	dup := e.DupToplevel()
	be.True(t, dup.Register("b", varDecl("b")))
	b, _, _, _ := dup.Lookup(NSMain, "b")
	be.Equal(t, b.Order, 1)

	_, _, _, ok := e.Lookup(NSMain, "b")
	be.True(t, !ok)
	be.Equal(t, e.Len(NSMain), 1)
	be.Equal(t, dup.Len(NSMain), 2)
}

func TestEachVisitsInRegistrationOrder(t *testing.T) {
	e := New()
	for _, name := range []string{"c", "a", "b"} {
		e.Register(name, varDecl(name))
	}
	var names []string
	e.Each(NSMain, func(decl *ast.Decl) bool {
		names = append(names, decl.DeclName())
		return true
	})
	be.Equal(t, names, []string{"c", "a", "b"})
}

func TestToplevelBuiltins(t *testing.T) {
	e := NewToplevel()
	decl, _, _, ok := e.Lookup(NSType, "ulong")
	be.True(t, ok)
	typ := decl.Initial.(*ast.Type)
	be.Equal(t, typ.String(), "uint<64>")

	unit, _, _, ok := e.Lookup(NSUnit, "KiB")
	be.True(t, ok)
	be.Equal(t, unit.Initial.(*ast.Integer).Value, uint64(8192))

	b, _, _, _ := e.Lookup(NSUnit, "b")
	be.Equal(t, b.Order, 0)
}

package env

import (
	"sort"

	"pkl/compiler-go/pkg/ast"
)

type builtinType struct {
	name string
	make func() *ast.Type
}

var builtinTypes = []builtinType{
	{"bit", func() *ast.Type { return ast.NewIntegralType(1, false) }},
	{"nibble", func() *ast.Type { return ast.NewIntegralType(4, false) }},
	{"byte", func() *ast.Type { return ast.NewIntegralType(8, false) }},
	{"char", func() *ast.Type { return ast.NewIntegralType(8, false) }},
	{"int", func() *ast.Type { return ast.NewIntegralType(32, true) }},
	{"uint", func() *ast.Type { return ast.NewIntegralType(32, false) }},
	{"long", func() *ast.Type { return ast.NewIntegralType(64, true) }},
	{"ulong", func() *ast.Type { return ast.NewIntegralType(64, false) }},
	{"string", ast.NewStringType},
	{"void", ast.NewVoidType},
	{"any", ast.NewAnyType},
}

// NewToplevel returns a top-level environment holding the predefined type
// aliases and offset units.
func NewToplevel() *Env {
	e := New()
	for _, bt := range builtinTypes {
		decl := ast.NewDecl(ast.DeclType, ast.ID(bt.name), bt.make())
		e.Register(bt.name, decl)
	}
	names := make([]string, 0, len(ast.Units))
	for name := range ast.Units {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if ast.Units[names[i]] != ast.Units[names[j]] {
			return ast.Units[names[i]] < ast.Units[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		value := ast.NewInteger(ast.Units[name], ast.NewIntegralType(64, false))
		e.Register(name, ast.NewDecl(ast.DeclUnit, ast.ID(name), value))
	}
	return e
}

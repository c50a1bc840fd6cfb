// Package env implements the compile-time environment: a stack of lexical
// frames mapping names to declarations. Looking a name up yields the lexical
// address (back, over) the code generator uses to reach the variable.
package env

import "pkl/compiler-go/pkg/ast"

// Namespace separates names that may coexist in one frame.
type Namespace int

const (
	NSMain Namespace = iota // variables and functions
	NSType
	NSUnit
	numNamespaces
)

func (ns Namespace) String() string {
	switch ns {
	case NSMain:
		return "main"
	case NSType:
		return "type"
	case NSUnit:
		return "unit"
	}
	return "unknown"
}

// NamespaceOf returns the namespace a declaration is registered in.
func NamespaceOf(decl *ast.Decl) Namespace {
	switch decl.Kind {
	case ast.DeclType:
		return NSType
	case ast.DeclUnit:
		return NSUnit
	default:
		return NSMain
	}
}

type frame struct {
	tables [numNamespaces]map[string]*ast.Decl
	order  [numNamespaces][]*ast.Decl
}

func newFrame() *frame {
	f := &frame{}
	for i := range f.tables {
		f.tables[i] = make(map[string]*ast.Decl)
	}
	return f
}

func (f *frame) clone() *frame {
	c := newFrame()
	for i := range f.tables {
		for name, decl := range f.tables[i] {
			c.tables[i][name] = decl
		}
		c.order[i] = append([]*ast.Decl(nil), f.order[i]...)
	}
	return c
}

// Env is a chain of frames; the receiver is the innermost one.
type Env struct {
	up    *Env
	frame *frame
}

// New returns an environment with a single, empty top-level frame.
func New() *Env {
	return &Env{frame: newFrame()}
}

// Push returns a new environment with an empty frame on top of e.
func (e *Env) Push() *Env {
	return &Env{up: e, frame: newFrame()}
}

// Pop discards the innermost frame and returns the enclosing environment.
// Popping the top-level frame returns nil.
func (e *Env) Pop() *Env {
	return e.up
}

// Depth is the number of frames in the chain.
func (e *Env) Depth() int {
	depth := 0
	for cur := e; cur != nil; cur = cur.up {
		depth++
	}
	return depth
}

// IsToplevel reports whether e has no enclosing frame.
func (e *Env) IsToplevel() bool {
	return e.up == nil
}

// Register binds name to decl in the innermost frame. It returns false if the
// name is already bound in that frame; on success the declaration receives
// the next slot of its namespace.
func (e *Env) Register(name string, decl *ast.Decl) bool {
	ns := NamespaceOf(decl)
	table := e.frame.tables[ns]
	if _, exists := table[name]; exists {
		return false
	}
	decl.Order = len(e.frame.order[ns])
	table[name] = decl
	e.frame.order[ns] = append(e.frame.order[ns], decl)
	return true
}

// Lookup searches name from the innermost frame outwards. back is the number
// of frames crossed and over the slot of the declaration in its frame.
func (e *Env) Lookup(ns Namespace, name string) (decl *ast.Decl, back, over int, ok bool) {
	for cur := e; cur != nil; cur = cur.up {
		if d, found := cur.frame.tables[ns][name]; found {
			return d, back, d.Order, true
		}
		back++
	}
	return nil, 0, 0, false
}

// DupToplevel returns a copy of a top-level environment whose frame can be
// extended without affecting e. The declarations themselves are shared.
func (e *Env) DupToplevel() *Env {
	return &Env{frame: e.frame.clone()}
}

// Each calls fn for every declaration of namespace ns in the innermost frame,
// in registration order, until fn returns false.
func (e *Env) Each(ns Namespace, fn func(decl *ast.Decl) bool) {
	for _, decl := range e.frame.order[ns] {
		if !fn(decl) {
			return
		}
	}
}

// Len returns the number of declarations of ns in the innermost frame.
func (e *Env) Len(ns Namespace) int {
	return len(e.frame.order[ns])
}

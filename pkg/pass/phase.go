package pass

import (
	"sync"

	"pkl/compiler-go/pkg/ast"
)

// Stage selects when a handler runs relative to the node's children.
type Stage int

const (
	Entry Stage = iota
	Exit
)

func (s Stage) String() string {
	if s == Entry {
		return "entry"
	}
	return "exit"
}

// Handler processes node n. The returned error is either nil, ErrExit,
// ErrFailed or an internal error; any of the latter unwinds the pass.
type Handler func(c *Context, n ast.Node) error

type dispatchKey struct {
	kind ast.NodeType
	// sub is the operator of an Exp or the code of a Type.
	sub string
}

type registry struct {
	byKind  map[ast.NodeType]Handler
	byOp    map[ast.Operator]Handler
	byType  map[ast.TypeCode]Handler
	deflt   Handler
	handled map[dispatchKey][]Handler
}

func newRegistry() registry {
	return registry{
		byKind: make(map[ast.NodeType]Handler),
		byOp:   make(map[ast.Operator]Handler),
		byType: make(map[ast.TypeCode]Handler),
	}
}

// Phase is a named set of handlers. Handlers are looked up by operator (for
// Exp nodes), by type code (for Type nodes), by node kind, and finally by the
// default handler; every one that matches runs, in that order.
type Phase struct {
	name   string
	stages [2]registry

	once sync.Once
}

func NewPhase(name string) *Phase {
	return &Phase{name: name, stages: [2]registry{newRegistry(), newRegistry()}}
}

func (p *Phase) Name() string { return p.name }

// OnKind registers h for every node of the given kind.
func (p *Phase) OnKind(stage Stage, kind ast.NodeType, h Handler) *Phase {
	p.stages[stage].byKind[kind] = h
	return p
}

// OnOp registers h for Exp nodes with the given operator.
func (p *Phase) OnOp(stage Stage, op ast.Operator, h Handler) *Phase {
	p.stages[stage].byOp[op] = h
	return p
}

// OnType registers h for Type nodes with the given code.
func (p *Phase) OnType(stage Stage, code ast.TypeCode, h Handler) *Phase {
	p.stages[stage].byType[code] = h
	return p
}

// OnDefault registers h for every node.
func (p *Phase) OnDefault(stage Stage, h Handler) *Phase {
	p.stages[stage].deflt = h
	return p
}

// build computes the handler lists of every node kind, operator and type
// code. Registration after the phase has first run is not supported.
func (p *Phase) build() {
	for s := range p.stages {
		r := &p.stages[s]
		r.handled = make(map[dispatchKey][]Handler)
		for _, kind := range ast.NodeTypes {
			switch kind {
			case ast.NodeExp:
				for _, op := range ast.Operators {
					r.handled[dispatchKey{kind, string(op)}] = collect(r.byOp[op], r.byKind[kind], r.deflt)
				}
			case ast.NodeTypeNode:
				for _, code := range ast.TypeCodes {
					r.handled[dispatchKey{kind, string(code)}] = collect(r.byType[code], r.byKind[kind], r.deflt)
				}
			default:
				r.handled[dispatchKey{kind: kind}] = collect(nil, r.byKind[kind], r.deflt)
			}
		}
	}
}

func collect(hs ...Handler) []Handler {
	var out []Handler
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (p *Phase) handlers(stage Stage, n ast.Node) []Handler {
	p.once.Do(p.build)
	key := dispatchKey{kind: n.NodeType()}
	switch node := n.(type) {
	case *ast.Exp:
		key.sub = string(node.Op)
	case *ast.Type:
		key.sub = string(node.Code)
	}
	return p.stages[stage].handled[key]
}

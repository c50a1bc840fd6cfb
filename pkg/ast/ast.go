package ast

import "sync/atomic"

type NodeType string

const (
	NodeProgram          NodeType = "Program"
	NodeIdentifier       NodeType = "Identifier"
	NodeInteger          NodeType = "Integer"
	NodeString           NodeType = "String"
	NodeExp              NodeType = "Exp"
	NodeCondExp          NodeType = "CondExp"
	NodeArray            NodeType = "Array"
	NodeArrayInitializer NodeType = "ArrayInitializer"
	NodeIndexer          NodeType = "Indexer"
	NodeTrimmer          NodeType = "Trimmer"
	NodeStruct           NodeType = "Struct"
	NodeStructField      NodeType = "StructField"
	NodeStructRef        NodeType = "StructRef"
	NodeTypeNode         NodeType = "Type"
	NodeStructTypeField  NodeType = "StructTypeField"
	NodeFuncTypeArg      NodeType = "FuncTypeArg"
	NodeFunc             NodeType = "Func"
	NodeFuncArg          NodeType = "FuncArg"
	NodeFuncall          NodeType = "Funcall"
	NodeFuncallArg       NodeType = "FuncallArg"
	NodeDecl             NodeType = "Decl"
	NodeOffset           NodeType = "Offset"
	NodeCast             NodeType = "Cast"
	NodeIsa              NodeType = "Isa"
	NodeMap              NodeType = "Map"
	NodeScons            NodeType = "Scons"
	NodeLambda           NodeType = "Lambda"
	NodeVar              NodeType = "Var"
	NodeCompStmt         NodeType = "CompStmt"
	NodeNullStmt         NodeType = "NullStmt"
	NodeAssStmt          NodeType = "AssStmt"
	NodeIfStmt           NodeType = "IfStmt"
	NodeLoopStmt         NodeType = "LoopStmt"
	NodeLoopStmtIterator NodeType = "LoopStmtIterator"
	NodeReturnStmt       NodeType = "ReturnStmt"
	NodeExpStmt          NodeType = "ExpStmt"
	NodeBreakStmt        NodeType = "BreakStmt"
	NodeContinueStmt     NodeType = "ContinueStmt"
	NodeRaiseStmt        NodeType = "RaiseStmt"
	NodePrintStmt        NodeType = "PrintStmt"
	NodeTryCatchStmt     NodeType = "TryCatchStmt"
)

// NodeTypes lists every node kind. Dispatch tables are built over it.
var NodeTypes = []NodeType{
	NodeProgram, NodeIdentifier, NodeInteger, NodeString, NodeExp, NodeCondExp,
	NodeArray, NodeArrayInitializer, NodeIndexer, NodeTrimmer, NodeStruct,
	NodeStructField, NodeStructRef, NodeTypeNode, NodeStructTypeField, NodeFuncTypeArg,
	NodeFunc, NodeFuncArg, NodeFuncall, NodeFuncallArg, NodeDecl, NodeOffset,
	NodeCast, NodeIsa, NodeMap, NodeScons, NodeLambda, NodeVar, NodeCompStmt,
	NodeNullStmt, NodeAssStmt, NodeIfStmt, NodeLoopStmt, NodeLoopStmtIterator,
	NodeReturnStmt, NodeExpStmt, NodeBreakStmt, NodeContinueStmt, NodeRaiseStmt,
	NodePrintStmt, NodeTryCatchStmt,
}

// Node is implemented by every AST node, types included.
type Node interface {
	ID() uint64
	NodeType() NodeType
	Span() Span
	SetSpan(Span)
	// Type is the type inferred for the node, nil until typify1 assigns it.
	Type() *Type
	SetType(*Type)
	isNode()
}

type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

type Span struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

var nextID atomic.Uint64

type nodeImpl struct {
	id   uint64
	kind NodeType
	span Span
	typ  *Type
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{id: nextID.Add(1), kind: kind}
}

func (n *nodeImpl) ID() uint64         { return n.id }
func (n *nodeImpl) NodeType() NodeType { return n.kind }
func (n *nodeImpl) Span() Span         { return n.span }
func (n *nodeImpl) SetSpan(span Span)  { n.span = span }
func (n *nodeImpl) Type() *Type        { return n.typ }
func (n *nodeImpl) SetType(t *Type)    { n.typ = t }
func (*nodeImpl) isNode()              {}

// WithSpan sets the span of n and returns it, for chaining in constructors.
func WithSpan[T Node](n T, span Span) T {
	n.SetSpan(span)
	return n
}

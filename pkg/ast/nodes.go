package ast

// Program is the root of a compilation unit.
type Program struct {
	nodeImpl

	Elems []Node
}

func NewProgram(elems []Node) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Elems: elems}
}

type Identifier struct {
	nodeImpl

	Name string
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type Integer struct {
	nodeImpl

	// Value holds the bit pattern; its meaning depends on the node type.
	Value uint64
}

func NewInteger(value uint64, typ *Type) *Integer {
	n := &Integer{nodeImpl: newNodeImpl(NodeInteger), Value: value}
	n.typ = typ
	return n
}

type String struct {
	nodeImpl

	Value string
}

func NewString(value string) *String {
	return &String{nodeImpl: newNodeImpl(NodeString), Value: value}
}

// Expressions

type Exp struct {
	nodeImpl

	Op       Operator
	Attr     Attribute
	Operands []Node
}

func NewExp(op Operator, operands ...Node) *Exp {
	return &Exp{nodeImpl: newNodeImpl(NodeExp), Op: op, Operands: operands}
}

func NewAttrExp(attr Attribute, operand Node) *Exp {
	return &Exp{nodeImpl: newNodeImpl(NodeExp), Op: OpAttr, Attr: attr, Operands: []Node{operand}}
}

type CondExp struct {
	nodeImpl

	Cond Node
	Then Node
	Else Node
}

func NewCondExp(cond, then, els Node) *CondExp {
	return &CondExp{nodeImpl: newNodeImpl(NodeCondExp), Cond: cond, Then: then, Else: els}
}

type Array struct {
	nodeImpl

	Initializers []*ArrayInitializer
	// NElem is the number of elements, computed by typify1.
	NElem uint64
}

func NewArray(initializers []*ArrayInitializer) *Array {
	return &Array{nodeImpl: newNodeImpl(NodeArray), Initializers: initializers}
}

type ArrayInitializer struct {
	nodeImpl

	// Index is nil for positional initializers.
	Index Node
	Exp   Node
}

func NewArrayInitializer(index, exp Node) *ArrayInitializer {
	return &ArrayInitializer{nodeImpl: newNodeImpl(NodeArrayInitializer), Index: index, Exp: exp}
}

type Indexer struct {
	nodeImpl

	Entity Node
	Index  Node
}

func NewIndexer(entity, index Node) *Indexer {
	return &Indexer{nodeImpl: newNodeImpl(NodeIndexer), Entity: entity, Index: index}
}

type Trimmer struct {
	nodeImpl

	Entity Node
	From   Node
	To     Node
}

func NewTrimmer(entity, from, to Node) *Trimmer {
	return &Trimmer{nodeImpl: newNodeImpl(NodeTrimmer), Entity: entity, From: from, To: to}
}

type Struct struct {
	nodeImpl

	Fields []*StructField
}

func NewStruct(fields []*StructField) *Struct {
	return &Struct{nodeImpl: newNodeImpl(NodeStruct), Fields: fields}
}

type StructField struct {
	nodeImpl

	// Name is nil for anonymous fields.
	Name *Identifier
	Exp  Node
}

func NewStructField(name *Identifier, exp Node) *StructField {
	return &StructField{nodeImpl: newNodeImpl(NodeStructField), Name: name, Exp: exp}
}

type StructRef struct {
	nodeImpl

	Struct Node
	Field  *Identifier
}

func NewStructRef(strct Node, field *Identifier) *StructRef {
	return &StructRef{nodeImpl: newNodeImpl(NodeStructRef), Struct: strct, Field: field}
}

type Offset struct {
	nodeImpl

	// Magnitude is nil for offsets written as a bare unit.
	Magnitude Node
	// Unit is an integral expression, or a *Type whose size is the unit.
	Unit Node
}

func NewOffset(magnitude, unit Node) *Offset {
	return &Offset{nodeImpl: newNodeImpl(NodeOffset), Magnitude: magnitude, Unit: unit}
}

type Cast struct {
	nodeImpl

	CastType *Type
	Exp      Node
}

func NewCast(castType *Type, exp Node) *Cast {
	return &Cast{nodeImpl: newNodeImpl(NodeCast), CastType: castType, Exp: exp}
}

type Isa struct {
	nodeImpl

	IsaType *Type
	Exp     Node
}

func NewIsa(isaType *Type, exp Node) *Isa {
	return &Isa{nodeImpl: newNodeImpl(NodeIsa), IsaType: isaType, Exp: exp}
}

type Map struct {
	nodeImpl

	MapType *Type
	// IOS is nil when mapping on the current IO space.
	IOS    Node
	Offset Node
}

func NewMap(mapType *Type, ios, offset Node) *Map {
	return &Map{nodeImpl: newNodeImpl(NodeMap), MapType: mapType, IOS: ios, Offset: offset}
}

type Scons struct {
	nodeImpl

	SconsType *Type
	Value     *Struct
}

func NewScons(sconsType *Type, value *Struct) *Scons {
	return &Scons{nodeImpl: newNodeImpl(NodeScons), SconsType: sconsType, Value: value}
}

type Funcall struct {
	nodeImpl

	Function Node
	Args     []*FuncallArg
}

func NewFuncall(function Node, args []*FuncallArg) *Funcall {
	return &Funcall{nodeImpl: newNodeImpl(NodeFuncall), Function: function, Args: args}
}

type FuncallArg struct {
	nodeImpl

	// Name is set for named actuals.
	Name *Identifier
	// Exp is nil for an omitted optional actual.
	Exp Node
	// FirstVararg marks the first actual bound to a vararg formal.
	FirstVararg bool
}

func NewFuncallArg(name *Identifier, exp Node) *FuncallArg {
	return &FuncallArg{nodeImpl: newNodeImpl(NodeFuncallArg), Name: name, Exp: exp}
}

type Lambda struct {
	nodeImpl

	Function *Func
}

func NewLambda(function *Func) *Lambda {
	return &Lambda{nodeImpl: newNodeImpl(NodeLambda), Function: function}
}

// Var is a reference to a declaration, addressed lexically.
type Var struct {
	nodeImpl

	Name *Identifier
	Decl *Decl
	// Back is the number of frames between the reference and the declaration.
	Back int
	// Over is the slot of the declaration within its frame.
	Over int
}

func NewVar(name *Identifier, decl *Decl, back, over int) *Var {
	return &Var{nodeImpl: newNodeImpl(NodeVar), Name: name, Decl: decl, Back: back, Over: over}
}

// Declarations

type DeclKind string

const (
	DeclVar  DeclKind = "var"
	DeclFunc DeclKind = "func"
	DeclType DeclKind = "type"
	DeclUnit DeclKind = "unit"
)

type Decl struct {
	nodeImpl

	Kind DeclKind
	Name *Identifier
	// Initial is the value of a variable, the *Func of a function, the *Type of
	// a type, or the integral value of a unit. Loop iterator variables have
	// no initial value; their type is set directly on the declaration.
	Initial Node
	// Order is the slot assigned by the environment.
	Order int
}

func NewDecl(kind DeclKind, name *Identifier, initial Node) *Decl {
	return &Decl{nodeImpl: newNodeImpl(NodeDecl), Kind: kind, Name: name, Initial: initial, Order: -1}
}

func (d *Decl) DeclName() string {
	if d == nil || d.Name == nil {
		return ""
	}
	return d.Name.Name
}

type Func struct {
	nodeImpl

	Name    string
	RetType *Type
	Args    []*FuncArg
	Body    *CompStmt
}

func NewFunc(name string, retType *Type, args []*FuncArg, body *CompStmt) *Func {
	return &Func{nodeImpl: newNodeImpl(NodeFunc), Name: name, RetType: retType, Args: args, Body: body}
}

type FuncArg struct {
	nodeImpl

	Name    *Identifier
	ArgType *Type
	// Initial is the default value of an optional argument.
	Initial Node
	Vararg  bool
}

func NewFuncArg(name *Identifier, argType *Type, initial Node, vararg bool) *FuncArg {
	return &FuncArg{nodeImpl: newNodeImpl(NodeFuncArg), Name: name, ArgType: argType, Initial: initial, Vararg: vararg}
}

// Statements

type CompStmt struct {
	nodeImpl

	Stmts []Node
}

func NewCompStmt(stmts []Node) *CompStmt {
	return &CompStmt{nodeImpl: newNodeImpl(NodeCompStmt), Stmts: stmts}
}

type NullStmt struct {
	nodeImpl
}

func NewNullStmt() *NullStmt {
	return &NullStmt{nodeImpl: newNodeImpl(NodeNullStmt)}
}

type AssStmt struct {
	nodeImpl

	LValue Node
	Exp    Node
}

func NewAssStmt(lvalue, exp Node) *AssStmt {
	return &AssStmt{nodeImpl: newNodeImpl(NodeAssStmt), LValue: lvalue, Exp: exp}
}

type IfStmt struct {
	nodeImpl

	Cond Node
	Then Node
	Else Node
}

func NewIfStmt(cond, then, els Node) *IfStmt {
	return &IfStmt{nodeImpl: newNodeImpl(NodeIfStmt), Cond: cond, Then: then, Else: els}
}

type LoopStmt struct {
	nodeImpl

	// Iterator is set for `for (x in container)` loops.
	Iterator *LoopStmtIterator
	// Cond is the while condition, or the `where` filter of a for-in loop.
	Cond Node
	Body Node
}

func NewLoopStmt(iterator *LoopStmtIterator, cond, body Node) *LoopStmt {
	return &LoopStmt{nodeImpl: newNodeImpl(NodeLoopStmt), Iterator: iterator, Cond: cond, Body: body}
}

type LoopStmtIterator struct {
	nodeImpl

	Decl      *Decl
	Container Node
}

func NewLoopStmtIterator(decl *Decl, container Node) *LoopStmtIterator {
	return &LoopStmtIterator{nodeImpl: newNodeImpl(NodeLoopStmtIterator), Decl: decl, Container: container}
}

type ReturnStmt struct {
	nodeImpl

	Exp Node
	// Function is the function the statement returns from; nil outside functions.
	Function *Func
}

func NewReturnStmt(exp Node, function *Func) *ReturnStmt {
	return &ReturnStmt{nodeImpl: newNodeImpl(NodeReturnStmt), Exp: exp, Function: function}
}

type ExpStmt struct {
	nodeImpl

	Exp Node
}

func NewExpStmt(exp Node) *ExpStmt {
	return &ExpStmt{nodeImpl: newNodeImpl(NodeExpStmt), Exp: exp}
}

type BreakStmt struct {
	nodeImpl

	// Entity is the enclosing loop; nil when the break is dangling.
	Entity Node
}

func NewBreakStmt(entity Node) *BreakStmt {
	return &BreakStmt{nodeImpl: newNodeImpl(NodeBreakStmt), Entity: entity}
}

type ContinueStmt struct {
	nodeImpl

	Entity Node
}

func NewContinueStmt(entity Node) *ContinueStmt {
	return &ContinueStmt{nodeImpl: newNodeImpl(NodeContinueStmt), Entity: entity}
}

type RaiseStmt struct {
	nodeImpl

	// Exp is the exception code; nil re-raises the generic error.
	Exp Node
}

func NewRaiseStmt(exp Node) *RaiseStmt {
	return &RaiseStmt{nodeImpl: newNodeImpl(NodeRaiseStmt), Exp: exp}
}

type PrintStmt struct {
	nodeImpl

	Exp Node
}

func NewPrintStmt(exp Node) *PrintStmt {
	return &PrintStmt{nodeImpl: newNodeImpl(NodePrintStmt), Exp: exp}
}

type TryCatchStmt struct {
	nodeImpl

	Code    Node
	Handler Node
	// Arg binds the caught exception code, if any.
	Arg *Decl
	// Cond filters the exceptions caught (`catch if cond`).
	Cond Node
}

func NewTryCatchStmt(code, handler Node, arg *Decl, cond Node) *TryCatchStmt {
	return &TryCatchStmt{nodeImpl: newNodeImpl(NodeTryCatchStmt), Code: code, Handler: handler, Arg: arg, Cond: cond}
}

// IsStatement reports whether n is a statement node.
func IsStatement(n Node) bool {
	switch n.(type) {
	case *CompStmt, *NullStmt, *AssStmt, *IfStmt, *LoopStmt, *ReturnStmt, *ExpStmt,
		*BreakStmt, *ContinueStmt, *RaiseStmt, *PrintStmt, *TryCatchStmt:
		return true
	}
	return false
}

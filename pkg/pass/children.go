package pass

import (
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
)

// walkChildren visits the children of n in their fixed order. Identifiers,
// the declarations referenced by variables and the types attached to nodes
// are not children.
func (p *Pass) walkChildren(w window, n ast.Node) error {
	switch n := n.(type) {
	case *ast.Program:
		return visitList(p, w, n, n.Elems)
	case *ast.Identifier, *ast.Integer, *ast.String, *ast.Var,
		*ast.NullStmt, *ast.BreakStmt, *ast.ContinueStmt:
		return nil
	case *ast.Exp:
		return visitList(p, w, n, n.Operands)
	case *ast.CondExp:
		return visitAll(p, w, n, &n.Cond, &n.Then, &n.Else)
	case *ast.Array:
		return visitList(p, w, n, n.Initializers)
	case *ast.ArrayInitializer:
		return visitAll(p, w, n, &n.Index, &n.Exp)
	case *ast.Indexer:
		return visitAll(p, w, n, &n.Entity, &n.Index)
	case *ast.Trimmer:
		return visitAll(p, w, n, &n.Entity, &n.From, &n.To)
	case *ast.Struct:
		return visitList(p, w, n, n.Fields)
	case *ast.StructField:
		return visitSlot(p, w, n, &n.Exp)
	case *ast.StructRef:
		return visitSlot(p, w, n, &n.Struct)
	case *ast.Offset:
		return visitAll(p, w, n, &n.Magnitude, &n.Unit)
	case *ast.Cast:
		if err := visitSlot(p, w, n, &n.CastType); err != nil {
			return err
		}
		return visitSlot(p, w, n, &n.Exp)
	case *ast.Isa:
		if err := visitSlot(p, w, n, &n.IsaType); err != nil {
			return err
		}
		return visitSlot(p, w, n, &n.Exp)
	case *ast.Map:
		if err := visitSlot(p, w, n, &n.MapType); err != nil {
			return err
		}
		return visitAll(p, w, n, &n.IOS, &n.Offset)
	case *ast.Scons:
		if err := visitSlot(p, w, n, &n.SconsType); err != nil {
			return err
		}
		return visitSlot(p, w, n, &n.Value)
	case *ast.Funcall:
		if err := visitSlot(p, w, n, &n.Function); err != nil {
			return err
		}
		return visitList(p, w, n, n.Args)
	case *ast.FuncallArg:
		return visitSlot(p, w, n, &n.Exp)
	case *ast.Lambda:
		return visitSlot(p, w, n, &n.Function)
	case *ast.Decl:
		return visitSlot(p, w, n, &n.Initial)
	case *ast.Func:
		if err := visitSlot(p, w, n, &n.RetType); err != nil {
			return err
		}
		if err := visitList(p, w, n, n.Args); err != nil {
			return err
		}
		return visitSlot(p, w, n, &n.Body)
	case *ast.FuncArg:
		if err := visitSlot(p, w, n, &n.ArgType); err != nil {
			return err
		}
		return visitSlot(p, w, n, &n.Initial)
	case *ast.Type:
		return p.walkType(w, n)
	case *ast.StructTypeField:
		if err := visitSlot(p, w, n, &n.FieldType); err != nil {
			return err
		}
		return visitAll(p, w, n, &n.Constraint, &n.Label)
	case *ast.FuncTypeArg:
		return visitSlot(p, w, n, &n.ArgType)
	case *ast.CompStmt:
		return visitList(p, w, n, n.Stmts)
	case *ast.AssStmt:
		return visitAll(p, w, n, &n.LValue, &n.Exp)
	case *ast.IfStmt:
		return visitAll(p, w, n, &n.Cond, &n.Then, &n.Else)
	case *ast.LoopStmt:
		if err := visitSlot(p, w, n, &n.Iterator); err != nil {
			return err
		}
		return visitAll(p, w, n, &n.Cond, &n.Body)
	case *ast.LoopStmtIterator:
		if err := visitSlot(p, w, n, &n.Decl); err != nil {
			return err
		}
		return visitSlot(p, w, n, &n.Container)
	case *ast.ReturnStmt:
		return visitSlot(p, w, n, &n.Exp)
	case *ast.ExpStmt:
		return visitSlot(p, w, n, &n.Exp)
	case *ast.RaiseStmt:
		return visitSlot(p, w, n, &n.Exp)
	case *ast.PrintStmt:
		return visitSlot(p, w, n, &n.Exp)
	case *ast.TryCatchStmt:
		if err := visitSlot(p, w, n, &n.Code); err != nil {
			return err
		}
		if err := visitSlot(p, w, n, &n.Arg); err != nil {
			return err
		}
		return visitAll(p, w, n, &n.Cond, &n.Handler)
	}
	return diag.ICE(n, "no child layout for node kind %s", n.NodeType())
}

func (p *Pass) walkType(w window, t *ast.Type) error {
	switch t.Code {
	case ast.TypeArray:
		if err := visitSlot(p, w, t, &t.Elem); err != nil {
			return err
		}
		return visitSlot(p, w, t, &t.Bound)
	case ast.TypeStruct:
		return visitList(p, w, t, t.Fields)
	case ast.TypeOffset:
		if err := visitSlot(p, w, t, &t.Base); err != nil {
			return err
		}
		return visitSlot(p, w, t, &t.Unit)
	case ast.TypeFunction:
		if err := visitSlot(p, w, t, &t.Return); err != nil {
			return err
		}
		return visitList(p, w, t, t.Args)
	}
	return nil
}

func visitAll(p *Pass, w window, parent ast.Node, slots ...*ast.Node) error {
	for _, slot := range slots {
		if err := visitSlot(p, w, parent, slot); err != nil {
			return err
		}
	}
	return nil
}

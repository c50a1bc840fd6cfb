package fold

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/pass"
	"pkl/compiler-go/pkg/promo"
	"pkl/compiler-go/pkg/typify"
)

func run(root ast.Node) (ast.Node, *diag.Collector, error) {
	sink := diag.NewCollector(nil)
	phases := []*pass.Phase{typify.Phase1(), promo.Phase(), Phase(), typify.Phase2()}
	payloads := []any{diag.NewReporter(sink), nil, diag.NewReporter(sink), diag.NewReporter(sink)}
	root, err := pass.Run(root, phases, payloads)
	return root, sink, err
}

// foldExp folds exp as the expression of a statement and returns what is
// left of it.
func foldExp(t *testing.T, exp ast.Node) ast.Node {
	t.Helper()
	stmt := ast.NewExpStmt(exp)
	_, sink, err := run(stmt)
	be.Err(t, err, nil)
	be.Equal(t, len(sink.Diagnostics()), 0)
	return stmt.Exp
}

func literal(t *testing.T, n ast.Node) *ast.Integer {
	t.Helper()
	lit, ok := n.(*ast.Integer)
	if !ok {
		t.Fatalf("expected an integer literal, got %s", n.NodeType())
	}
	return lit
}

func offset(t *testing.T, n ast.Node) (int64, uint64) {
	t.Helper()
	off, ok := n.(*ast.Offset)
	if !ok {
		t.Fatalf("expected an offset literal, got %s", n.NodeType())
	}
	return literal(t, off.Magnitude).Int64(), literal(t, off.Unit).Value
}

func TestFoldKeepsType(t *testing.T) {
	lit := literal(t, foldExp(t, ast.Bin(ast.OpAdd, ast.Int(2), ast.Int(3))))
	be.Equal(t, lit.Int64(), int64(5))
	be.Equal(t, lit.Type().String(), "int<32>")
}

func TestFoldAfterPromotion(t *testing.T) {
	lit := literal(t, foldExp(t, ast.Bin(ast.OpAdd, ast.Long(1), ast.Int(2))))
	be.Equal(t, lit.Int64(), int64(3))
	be.Equal(t, lit.Type().String(), "int<64>")
}

func TestIntegralOperators(t *testing.T) {
	tests := []struct {
		name string
		exp  ast.Node
		want int64
		typ  string
	}{
		{"signed wrap", ast.Bin(ast.OpAdd, ast.IntTyped(127, 8, true), ast.IntTyped(1, 8, true)), -128, "int<8>"},
		{"unsigned wrap", ast.Bin(ast.OpSub, ast.UInt(0), ast.UInt(1)), 0xFFFFFFFF, "uint<32>"},
		{"mul", ast.Bin(ast.OpMul, ast.Int(-6), ast.Int(7)), -42, "int<32>"},
		{"div truncates", ast.Bin(ast.OpDiv, ast.Int(-7), ast.Int(2)), -3, "int<32>"},
		{"ceildiv", ast.Bin(ast.OpCeilDiv, ast.Int(7), ast.Int(2)), 4, "int<32>"},
		{"ceildiv negative", ast.Bin(ast.OpCeilDiv, ast.Int(-7), ast.Int(2)), -3, "int<32>"},
		{"unsigned ceildiv", ast.Bin(ast.OpCeilDiv, ast.UInt(9), ast.UInt(3)), 3, "uint<32>"},
		{"mod", ast.Bin(ast.OpMod, ast.Int(-7), ast.Int(2)), -1, "int<32>"},
		{"pow", ast.Bin(ast.OpPow, ast.Int(3), ast.Int(4)), 81, "int<32>"},
		{"shift left", ast.Bin(ast.OpSl, ast.Long(1), ast.Int(40)), 1 << 40, "int<64>"},
		{"arithmetic shift right", ast.Bin(ast.OpSr, ast.Int(-8), ast.Int(1)), -4, "int<32>"},
		{"logical shift right", ast.Bin(ast.OpSr, ast.UInt(0x80000000), ast.Int(4)), 0x08000000, "uint<32>"},
		{"bitwise", ast.Bin(ast.OpXor, ast.Bin(ast.OpBand, ast.Int(12), ast.Int(10)), ast.Int(1)), 9, "int<32>"},
		{"bit concatenation", ast.Bin(ast.OpBconc, ast.IntTyped(1, 8, false), ast.IntTyped(2, 8, false)), 0x0102, "uint<16>"},
		{"and", ast.Bin(ast.OpAnd, ast.Int(2), ast.Int(0)), 0, "int<32>"},
		{"or", ast.Bin(ast.OpOr, ast.Int(0), ast.Long(5)), 1, "int<32>"},
		{"neg", ast.Un(ast.OpNeg, ast.IntTyped(-128, 8, true)), -128, "int<8>"},
		{"bnot", ast.Un(ast.OpBnot, ast.IntTyped(0, 4, false)), 15, "uint<4>"},
		{"not", ast.Un(ast.OpNot, ast.Int(0)), 1, "int<32>"},
		{"signed less", ast.Bin(ast.OpLt, ast.Int(-1), ast.Int(1)), 1, "int<32>"},
		{"unsigned less", ast.Bin(ast.OpLt, ast.UInt(1), ast.Int(-1)), 1, "int<32>"},
		{"equal after cast", ast.Bin(ast.OpEq, ast.IntTyped(-1, 8, true), ast.Long(-1)), 1, "int<32>"},
		{"cast truncates", ast.NewCast(ast.IntTy(8), ast.Int(300)), 44, "int<8>"},
		{"conditional", ast.NewCondExp(ast.Int(0), ast.Int(1), ast.Int(2)), 2, "int<32>"},
		{"signed attribute", ast.Attr(ast.AttrSigned, ast.UInt(1)), 0, "int<32>"},
		{"unit attribute", ast.Attr(ast.AttrUnit, ast.Off(3, 8)), 8, "uint<64>"},
		{"magnitude attribute", ast.Attr(ast.AttrMagnitude, ast.Off(3, 8)), 3, "int<32>"},
		{"string length", ast.Attr(ast.AttrLength, ast.Str("abc")), 3, "uint<64>"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lit := literal(t, foldExp(t, tc.exp))
			be.Equal(t, lit.Int64(), tc.want)
			be.Equal(t, lit.Type().String(), tc.typ)
		})
	}
}

func TestStrings(t *testing.T) {
	s, ok := foldExp(t, ast.Bin(ast.OpAdd, ast.Str("foo"), ast.Str("bar"))).(*ast.String)
	be.True(t, ok)
	be.Equal(t, s.Value, "foobar")
	be.Equal(t, s.Type().String(), "string")

	lit := literal(t, foldExp(t, ast.Bin(ast.OpGe, ast.Str("a"), ast.Str("b"))))
	be.Equal(t, lit.Value, uint64(0))
}

func TestOffsets(t *testing.T) {
	tests := []struct {
		name string
		exp  ast.Node
		mag  int64
		unit uint64
	}{
		{"add retargets unit", ast.Bin(ast.OpAdd, ast.Off(1, 8), ast.Off(3, 1)), 11, 1},
		{"sub", ast.Bin(ast.OpSub, ast.Off(1, 8), ast.Off(3, 8)), -2, 8},
		{"mul", ast.Bin(ast.OpMul, ast.Off(2, 8), ast.Int(3)), 6, 8},
		{"mul commutes", ast.Bin(ast.OpMul, ast.Int(3), ast.Off(2, 8)), 6, 8},
		{"neg", ast.Un(ast.OpNeg, ast.Off(2, 4)), -2, 4},
		{"exact cast", ast.NewCast(ast.OffTy(ast.IntTy(32), 8), ast.Off(16, 1)), 2, 8},
		{"sizeof", ast.Sizeof(ast.ArrTy(ast.IntTy(8), 4)), 32, 1},
		{"size attribute", ast.Attr(ast.AttrSize, ast.Long(0)), 64, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mag, unit := offset(t, foldExp(t, tc.exp))
			be.Equal(t, mag, tc.mag)
			be.Equal(t, unit, tc.unit)
		})
	}
}

func TestOffsetDivision(t *testing.T) {
	lit := literal(t, foldExp(t, ast.Bin(ast.OpDiv, ast.Off(16, 1), ast.Off(1, 8))))
	be.Equal(t, lit.Int64(), int64(2))
	be.Equal(t, lit.Type().String(), "int<32>")
}

func TestLeftUntouched(t *testing.T) {
	tests := []struct {
		name string
		exp  ast.Node
		kind ast.NodeType
	}{
		{"inexact offset cast", ast.NewCast(ast.OffTy(ast.IntTy(32), 8), ast.Off(12, 1)), ast.NodeCast},
		{"membership", ast.Bin(ast.OpIn, ast.Int(1), ast.Arr(ast.Int(1), ast.Int(2))), ast.NodeExp},
		{"shift past width", ast.Bin(ast.OpSl, ast.Int(1), ast.Int(40)), ast.NodeExp},
		{"variable operand", ast.Bin(ast.OpAdd, typed("x", ast.IntTy(32)), ast.Int(1)), ast.NodeExp},
		{"sizeof incomplete", ast.Sizeof(ast.ArrTy(ast.IntTy(8), -1)), ast.NodeExp},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stmt := ast.NewExpStmt(tc.exp)
			_, _, err := run(stmt)
			if tc.name == "sizeof incomplete" {
				be.Err(t, err, pass.ErrFailed)
			} else {
				be.Err(t, err, nil)
			}
			be.Equal(t, stmt.Exp.NodeType(), tc.kind)
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, op := range []ast.Operator{ast.OpDiv, ast.OpCeilDiv, ast.OpMod} {
		t.Run(string(op), func(t *testing.T) {
			_, sink, err := run(ast.NewExpStmt(ast.Bin(op, ast.Int(1), ast.Bin(ast.OpSub, ast.Int(2), ast.Int(2)))))
			be.Err(t, err, pass.ErrFailed)
			be.Equal(t, sink.Errors(), 1)
			be.True(t, strings.Contains(sink.Diagnostics()[0].Message, "division by zero"))
		})
	}
}

func TestFoldedArrayBoundCompletesType(t *testing.T) {
	arr := ast.NewArrayType(ast.IntTy(8), ast.Bin(ast.OpAdd, ast.Int(1), ast.Int(2)))
	stmt := ast.NewExpStmt(ast.Sizeof(arr))
	_, _, err := run(stmt)
	be.Err(t, err, nil)
	be.Equal(t, arr.Complete, ast.CompleteYes)
	n, ok := arr.BoundValue()
	be.True(t, ok)
	be.Equal(t, n, uint64(3))
}

func typed(name string, typ *ast.Type) *ast.Var {
	decl := ast.NewDecl(ast.DeclVar, ast.ID(name), nil)
	decl.SetType(typ)
	return ast.NewVar(ast.ID(name), decl, 0, 0)
}

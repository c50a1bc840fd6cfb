package compiler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/env"
	"pkl/compiler-go/pkg/fixtures"
)

type recordingBackend struct {
	programs []*ast.Program
	err      error
}

func (b *recordingBackend) Generate(prog *ast.Program, e *env.Env) error {
	b.programs = append(b.programs, prog)
	return b.err
}

func parse(t *testing.T, c *Compiler, src string) (*Unit, *ast.Program) {
	t.Helper()
	unit := c.NewUnit()
	prog, err := fixtures.DecodeProgram([]byte(src), unit.Builder())
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	return unit, prog
}

func lastExp(prog *ast.Program) ast.Node {
	return prog.Elems[len(prog.Elems)-1].(*ast.ExpStmt).Exp
}

func hasDiagnostic(c *Compiler, severity diag.Severity, substr string) bool {
	for _, d := range c.Diagnostics() {
		if d.Severity == severity && strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}

func TestCompileMixedWidthArithmetic(t *testing.T) {
	backend := &recordingBackend{}
	c := New(DefaultConfig(), WithBackend(backend))
	unit, prog := parse(t, c, `- {kind: exp, exp: {kind: bin, op: "+", left: {kind: int, value: 1, size: 64}, right: 2}}`)

	res, err := c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, nil)
	be.Equal(t, len(backend.programs), 1)
	be.True(t, res.Restarts > 0)

	lit, ok := lastExp(res.Program).(*ast.Integer)
	be.True(t, ok)
	be.Equal(t, lit.Value, uint64(3))
	be.Equal(t, lit.Type().String(), "int<64>")
	be.Equal(t, len(c.Diagnostics()), 0)
}

func TestTooFewArgumentsFailsWithoutCodegen(t *testing.T) {
	backend := &recordingBackend{}
	c := New(DefaultConfig(), WithBackend(backend))
	unit, prog := parse(t, c, `
- kind: func
  name: f
  ret: int
  args: [{name: a, type: int}, {name: b, type: int}]
  body: [{kind: return, exp: a}]
- {kind: exp, exp: {kind: call, fn: f, args: [1]}}
`)
	res, err := c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, ErrCompile)
	be.Equal(t, res.Errors["typify1"], 1)
	be.Equal(t, len(backend.programs), 0)
	be.True(t, hasDiagnostic(c, diag.SeverityError, "too few arguments passed to function"))
	be.Equal(t, len(c.Declarations(env.NSMain)), 0)
}

func TestErrorOnWarning(t *testing.T) {
	src := `
- kind: func
  name: f
  body:
    - {kind: return}
    - {kind: print, exp: {kind: str, value: never}}
`
	c := New(DefaultConfig())
	unit, prog := parse(t, c, src)
	_, err := c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, nil)
	be.True(t, hasDiagnostic(c, diag.SeverityWarning, "unreachable statement"))

	c = New(Config{Fold: true, ErrorOnWarning: true})
	unit, prog = parse(t, c, src)
	res, err := c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, ErrCompile)
	be.Equal(t, res.Errors["anal1"], 1)
	be.True(t, hasDiagnostic(c, diag.SeverityError, "unreachable statement"))
}

func TestFoldDisabled(t *testing.T) {
	c := New(Config{})
	unit, prog := parse(t, c, `- {kind: exp, exp: {kind: bin, op: "+", left: 2, right: 3}}`)
	res, err := c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, nil)
	_, folded := lastExp(res.Program).(*ast.Integer)
	be.True(t, !folded)
	_, ran := res.Errors["fold"]
	be.True(t, !ran)
}

func TestInternalErrorAborts(t *testing.T) {
	backend := &recordingBackend{}
	c := New(DefaultConfig(), WithBackend(backend))
	unit := c.NewUnit()
	ghost := ast.NewVar(ast.ID("ghost"), nil, 0, 0)
	prog := ast.NewProgram([]ast.Node{ast.NewExpStmt(ghost)})

	_, err := c.CompileUnit(context.Background(), unit, prog)
	var ice *diag.InternalError
	be.True(t, errors.As(err, &ice))
	be.Equal(t, ice.Node, ast.NodeVar)
	be.True(t, !errors.Is(err, ErrCompile))
	be.Equal(t, len(backend.programs), 0)
}

func TestCancelledContext(t *testing.T) {
	c := New(DefaultConfig())
	unit, prog := parse(t, c, `- {kind: var, name: x, value: 1}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.CompileUnit(ctx, unit, prog)
	be.Err(t, err, context.Canceled)
	be.Equal(t, len(c.Declarations(env.NSMain)), 0)
}

func TestBackendFailureDoesNotCommit(t *testing.T) {
	backend := &recordingBackend{err: errors.New("disk full")}
	c := New(DefaultConfig(), WithBackend(backend))
	unit, prog := parse(t, c, `- {kind: var, name: x, value: 1}`)
	_, err := c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, "disk full")
	be.Equal(t, len(c.Declarations(env.NSMain)), 0)
}

func TestIncrementalUnits(t *testing.T) {
	c := New(DefaultConfig())
	unit, prog := parse(t, c, `- {kind: var, name: x, value: {kind: int, value: 7, size: 16}}`)
	_, err := c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, nil)

	// A failed unit declaring y leaves the committed environment alone.
	unit, prog = parse(t, c, `
- {kind: var, name: y, value: x}
- {kind: exp, exp: {kind: bin, op: "+", left: x, right: {kind: str, value: s}}}
`)
	_, err = c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, ErrCompile)

	unit, prog = parse(t, c, `- {kind: var, name: y, value: {kind: bin, op: "*", left: x, right: 2}}`)
	_, err = c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, nil)

	decls := c.Declarations(env.NSMain)
	be.Equal(t, len(decls), 2)
	be.Equal(t, decls[0].Name, "x")
	be.Equal(t, decls[0].Type, "int<16>")
	be.Equal(t, decls[1].Name, "y")
	be.Equal(t, decls[1].Over, 1)
	be.Equal(t, decls[1].Type, "int<32>")
	be.Equal(t, decls[1].Span.Start.Line, 1)
}

func TestStaleUnit(t *testing.T) {
	c := New(DefaultConfig())
	first, firstProg := parse(t, c, `- {kind: var, name: a, value: 1}`)
	second, secondProg := parse(t, c, `- {kind: var, name: b, value: 2}`)

	_, err := c.CompileUnit(context.Background(), second, secondProg)
	be.Err(t, err, nil)
	_, err = c.CompileUnit(context.Background(), first, firstProg)
	be.Err(t, err, ErrStaleUnit)
}

func TestMaxErrorsCapsDiagnostics(t *testing.T) {
	c := New(Config{Fold: true, MaxErrors: 1})
	unit, prog := parse(t, c, `
- {kind: break}
- {kind: continue}
`)
	_, err := c.CompileUnit(context.Background(), unit, prog)
	be.Err(t, err, ErrCompile)
	be.Equal(t, len(c.Diagnostics()), 1)
	be.True(t, hasDiagnostic(c, diag.SeverityError, "`break' statement without a containing loop"))
}

func TestReturnOutsideFunctionIsAUserError(t *testing.T) {
	for _, src := range []string{
		`- {kind: return}`,
		`- {kind: return, exp: 1}`,
	} {
		t.Run(src, func(t *testing.T) {
			backend := &recordingBackend{}
			c := New(DefaultConfig(), WithBackend(backend))
			unit, prog := parse(t, c, src)

			res, err := c.CompileUnit(context.Background(), unit, prog)
			be.Err(t, err, ErrCompile)
			var ice *diag.InternalError
			be.True(t, !errors.As(err, &ice))
			be.Equal(t, res.Errors["anal1"], 1)
			be.True(t, hasDiagnostic(c, diag.SeverityError, "`return' statement outside of a function"))
			be.Equal(t, len(backend.programs), 0)
		})
	}
}

package driver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/compiler"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/fixtures"
)

// CaseResult is the outcome of one markdown test case.
type CaseResult struct {
	Name     string
	Line     int
	Failures []string
}

func (r CaseResult) Passed() bool { return len(r.Failures) == 0 }

// RunCases runs every test case of a markdown document, each with a fresh
// compiler.
func RunCases(ctx context.Context, cfg compiler.Config, source []byte) ([]CaseResult, error) {
	cases, err := fixtures.ExtractCases(source)
	if err != nil {
		return nil, err
	}
	results := make([]CaseResult, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, RunCase(ctx, cfg, c))
	}
	return results, nil
}

// RunCase compiles the program of a case and checks its assertions.
func RunCase(ctx context.Context, cfg compiler.Config, c fixtures.Case) CaseResult {
	result := CaseResult{Name: c.Name, Line: c.Line}
	fail := func(format string, args ...any) {
		result.Failures = append(result.Failures, fmt.Sprintf(format, args...))
	}

	comp := compiler.New(cfg)
	unit := comp.NewUnit()
	prog, err := fixtures.DecodeProgram([]byte(c.Program), unit.Builder())
	if err != nil {
		fail("decode program: %v", err)
		return result
	}
	res, err := comp.CompileUnit(ctx, unit, prog)
	diags := comp.Diagnostics()

	for _, a := range c.Assertions {
		want := strings.TrimSpace(a.Content)
		switch a.Kind {
		case fixtures.AssertCompileError:
			if !errors.Is(err, compiler.ErrCompile) {
				fail("line %d: expected a compile error, got %v", a.Line, err)
			} else if !hasDiagnostic(diags, diag.SeverityError, want) {
				fail("line %d: no error containing %q in:\n%s", a.Line, want, listDiagnostics(diags))
			}
		case fixtures.AssertWarning:
			if !hasDiagnostic(diags, diag.SeverityWarning, want) {
				fail("line %d: no warning containing %q in:\n%s", a.Line, want, listDiagnostics(diags))
			}
		case fixtures.AssertType, fixtures.AssertLiteral:
			if err != nil {
				fail("line %d: compilation failed: %s\n%s", a.Line, DescribeError("", err), listDiagnostics(diags))
				continue
			}
			exp, ok := lastExpression(res.Program)
			if !ok {
				fail("line %d: the program does not end with an expression statement", a.Line)
				continue
			}
			var got string
			if a.Kind == fixtures.AssertType {
				got = exp.Type().String()
			} else if got, ok = FormatLiteral(exp); !ok {
				fail("line %d: expected a literal, got %s", a.Line, exp.NodeType())
				continue
			}
			if got != want {
				fail("line %d: %s: got %s, want %s", a.Line, a.Kind, got, want)
			}
		}
	}
	return result
}

func lastExpression(prog *ast.Program) (ast.Node, bool) {
	if prog == nil || len(prog.Elems) == 0 {
		return nil, false
	}
	stmt, ok := prog.Elems[len(prog.Elems)-1].(*ast.ExpStmt)
	if !ok {
		return nil, false
	}
	return stmt.Exp, true
}

func hasDiagnostic(diags []diag.Diagnostic, severity diag.Severity, substr string) bool {
	for _, d := range diags {
		if d.Severity == severity && strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}

func listDiagnostics(diags []diag.Diagnostic) string {
	if len(diags) == 0 {
		return "  (no diagnostics)"
	}
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = "  " + DescribeDiagnostic("", d)
	}
	return strings.Join(lines, "\n")
}

var offsetUnitNames = map[uint64]string{1: "b", 4: "N", 8: "B"}

// FormatLiteral renders a literal the way the language spells it: 42, 0xff
// as 255, "str", and offsets as magnitude#unit.
func FormatLiteral(n ast.Node) (string, bool) {
	switch lit := n.(type) {
	case *ast.Integer:
		if t := lit.Type(); t.IsIntegral() && !t.Signed {
			return strconv.FormatUint(lit.Value, 10), true
		}
		return strconv.FormatInt(lit.Int64(), 10), true
	case *ast.String:
		return strconv.Quote(lit.Value), true
	case *ast.Offset:
		if !ast.IsLiteral(lit) {
			return "", false
		}
		unit := lit.Unit.(*ast.Integer).Value
		name, ok := offsetUnitNames[unit]
		if !ok {
			name = strconv.FormatUint(unit, 10)
		}
		mag := "1"
		if lit.Magnitude != nil {
			mag, _ = FormatLiteral(lit.Magnitude)
		}
		return mag + "#" + name, true
	}
	return "", false
}

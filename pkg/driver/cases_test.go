package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/compiler"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/fixtures"
)

func TestMarkdownCases(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.md"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatalf("no markdown documents in testdata")
	}
	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		cases, err := fixtures.ExtractCases(source)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		for _, c := range cases {
			t.Run(filepath.Base(path)+"/"+c.Name, func(t *testing.T) {
				res := RunCase(context.Background(), compiler.DefaultConfig(), c)
				for _, f := range res.Failures {
					t.Errorf("%s:%d: %s", path, c.Line, f)
				}
			})
		}
	}
}

func TestRunCasesReportsFailures(t *testing.T) {
	doc := "## Test: wrong\n\n```pkl-program\n- {kind: exp, exp: 1}\n```\n\n```type\nint<8>\n```\n\n```compile-error\nanything\n```\n"
	results, err := RunCases(context.Background(), compiler.DefaultConfig(), []byte(doc))
	if err != nil {
		t.Fatalf("RunCases: %v", err)
	}
	if len(results) != 1 || results[0].Passed() {
		t.Fatalf("expected one failing case, got %+v", results)
	}
	if len(results[0].Failures) != 2 {
		t.Fatalf("expected 2 failures, got %v", results[0].Failures)
	}
	if !strings.Contains(results[0].Failures[0], "got int<32>, want int<8>") {
		t.Fatalf("unexpected failure: %s", results[0].Failures[0])
	}
}

func TestFormatLiteral(t *testing.T) {
	tests := []struct {
		node ast.Node
		want string
	}{
		{ast.Int(-5), "-5"},
		{ast.UInt(0xFFFFFFFF), "4294967295"},
		{ast.Str("a\"b"), `"a\"b"`},
		{ast.Off(3, 8), "3#B"},
		{ast.Off(3, 16), "3#16"},
	}
	for _, tc := range tests {
		got, ok := FormatLiteral(tc.node)
		if !ok || got != tc.want {
			t.Fatalf("FormatLiteral = %q, %v; want %q", got, ok, tc.want)
		}
	}
	if _, ok := FormatLiteral(ast.Bin(ast.OpAdd, ast.Int(1), ast.Int(2))); ok {
		t.Fatalf("expressions are not literals")
	}
}

func TestDescribeDiagnostic(t *testing.T) {
	d := diag.Diagnostic{
		Severity: diag.SeverityError,
		Message:  "too few arguments passed to function ",
		Span:     ast.Span{Start: ast.Position{Line: 3, Column: 7}},
	}
	if got := DescribeDiagnostic("prog.yml", d); got != "prog.yml:3:7: error: too few arguments passed to function" {
		t.Fatalf("unexpected description: %q", got)
	}
	d.Span = ast.Span{}
	d.Severity = diag.SeverityWarning
	if got := DescribeDiagnostic("", d); got != "warning: too few arguments passed to function" {
		t.Fatalf("unexpected description: %q", got)
	}

	ice := diag.ICE(ast.WithSpan(ast.Int(1), ast.Span{Start: ast.Position{Line: 2, Column: 1}}), "node has no type")
	got := DescribeError("prog.yml", ice)
	if !strings.HasPrefix(got, "prog.yml:2:1: internal compiler error: node has no type") {
		t.Fatalf("unexpected ICE description: %q", got)
	}
	if !strings.HasSuffix(got, BugReportHint) {
		t.Fatalf("missing bug report hint: %q", got)
	}
}

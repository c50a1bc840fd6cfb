package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

func captureCLI(t *testing.T, args []string) (int, string, string) {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatalf("stderr pipe: %v", err)
	}

	os.Stdout = wOut
	os.Stderr = wErr

	code := run(args)

	if err := wOut.Close(); err != nil {
		t.Fatalf("stdout close: %v", err)
	}
	if err := wErr.Close(); err != nil {
		t.Fatalf("stderr close: %v", err)
	}

	os.Stdout = stdout
	os.Stderr = stderr

	outBytes, err := io.ReadAll(rOut)
	if err != nil {
		t.Fatalf("stdout read: %v", err)
	}
	errBytes, err := io.ReadAll(rErr)
	if err != nil {
		t.Fatalf("stderr read: %v", err)
	}
	rOut.Close()
	rErr.Close()

	return code, string(outBytes), string(errBytes)
}

func TestVersion(t *testing.T) {
	code, out, _ := captureCLI(t, []string{"version"})
	if code != 0 || strings.TrimSpace(out) != cliToolVersion {
		t.Fatalf("version: code %d, output %q", code, out)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := captureCLI(t, []string{"frobnicate"})
	if code != 1 || !strings.Contains(stderr, `unknown command "frobnicate"`) {
		t.Fatalf("code %d, stderr %q", code, stderr)
	}
}

func TestCheckListsDeclarations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.yml")
	writeFile(t, path, `
- kind: var
  name: total
  value: {kind: bin, op: "+", left: {kind: int, value: 1, size: 64}, right: 2}
`)
	code, out, stderr := captureCLI(t, []string{"check", path})
	if code != 0 {
		t.Fatalf("check returned %d: %s", code, stderr)
	}
	if !strings.Contains(out, "var total: int<64>") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCheckReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.yml")
	writeFile(t, path, `
- {kind: var, name: x, value: 1}
- kind: exp
  exp: {kind: call, fn: x}
`)
	code, _, stderr := captureCLI(t, []string{"check", path})
	if code != 1 {
		t.Fatalf("check returned %d, want 1", code)
	}
	want := path + ":3:25: error: invalid callee: expected a function, got int<32>"
	if !strings.Contains(stderr, want) {
		t.Fatalf("stderr %q does not contain %q", stderr, want)
	}
	if !strings.Contains(stderr, "compilation failed") {
		t.Fatalf("missing failure summary in %q", stderr)
	}
}

func TestCheckHonoursConfiguration(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pklc.yml"), "error_on_warning: true")
	path := filepath.Join(dir, "prog.yml")
	writeFile(t, path, `
- kind: func
  name: f
  body:
    - {kind: return}
    - {kind: print, exp: {kind: str, value: never}}
`)
	code, _, stderr := captureCLI(t, []string{"check", path})
	if code != 1 || !strings.Contains(stderr, "error: unreachable statement") {
		t.Fatalf("code %d, stderr %q", code, stderr)
	}

	writeFile(t, filepath.Join(dir, "lenient.yml"), "error_on_warning: false")
	code, _, stderr = captureCLI(t, []string{"check", "-config", filepath.Join(dir, "lenient.yml"), path})
	if code != 0 || !strings.Contains(stderr, "warning: unreachable statement") {
		t.Fatalf("code %d, stderr %q", code, stderr)
	}
}

func TestCheckJSONReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.yml")
	writeFile(t, path, "- {kind: var, name: s, value: {kind: str, value: hi}}")
	code, out, stderr := captureCLI(t, []string{"check", "-json", path})
	if code != 0 {
		t.Fatalf("check returned %d: %s", code, stderr)
	}
	var report checkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Declarations) != 1 || report.Declarations[0].Type != "string" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestCheckDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.yml")
	writeFile(t, path, "- {kind: exp, exp: nowhere}")
	code, _, stderr := captureCLI(t, []string{"check", path})
	if code != 1 || !strings.Contains(stderr, "undefined variable `nowhere'") {
		t.Fatalf("code %d, stderr %q", code, stderr)
	}
}

func TestDocRunsCases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.md")
	writeFile(t, path, "## Test: folds\n\n```pkl-program\n- {kind: exp, exp: {kind: bin, op: \"*\", left: 6, right: 7}}\n```\n\n```literal\n42\n```\n\n"+
		"## Test: wrong\n\n```pkl-program\n- {kind: exp, exp: 1}\n```\n\n```literal\n2\n```\n")
	code, out, _ := captureCLI(t, []string{"doc", path})
	if code != 1 {
		t.Fatalf("doc returned %d, want 1", code)
	}
	for _, want := range []string{"PASS folds", "FAIL wrong", "literal: got 1, want 2", "1 passed, 1 failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q does not contain %q", out, want)
		}
	}
}

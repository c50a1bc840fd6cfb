package driver

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"pkl/compiler-go/pkg/diag"
)

// BugReportHint follows internal compiler errors on the command line.
const BugReportHint = "this is a bug in the compiler; please report it along with the program that triggered it"

// DescribeDiagnostic formats a compiler diagnostic for CLI output.
func DescribeDiagnostic(path string, d diag.Diagnostic) string {
	message := strings.TrimSpace(d.Message)
	location := formatDiagnosticLocation(path, d.Span.Start.Line, d.Span.Start.Column)
	if location != "" {
		return fmt.Sprintf("%s: %s: %s", location, d.Severity, message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, message)
}

// DescribeError formats an error returned by the compiler. Internal
// compiler errors carry their location and the bug report hint.
func DescribeError(path string, err error) string {
	var ice *diag.InternalError
	if errors.As(err, &ice) {
		location := formatDiagnosticLocation(path, ice.Span.Start.Line, ice.Span.Start.Column)
		if location != "" {
			location += ": "
		}
		return fmt.Sprintf("%s%s\n%s", location, ice.Error(), BugReportHint)
	}
	return err.Error()
}

// WriteDiagnostics prints every diagnostic, one per line.
func WriteDiagnostics(w io.Writer, path string, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, DescribeDiagnostic(path, d))
	}
}

func formatDiagnosticLocation(path string, line, column int) string {
	path = strings.TrimSpace(path)
	switch {
	case path != "" && line > 0 && column > 0:
		return fmt.Sprintf("%s:%d:%d", path, line, column)
	case path != "" && line > 0:
		return fmt.Sprintf("%s:%d", path, line)
	case path != "":
		return path
	case line > 0 && column > 0:
		return fmt.Sprintf("line %d, column %d", line, column)
	case line > 0:
		return fmt.Sprintf("line %d", line)
	default:
		return ""
	}
}

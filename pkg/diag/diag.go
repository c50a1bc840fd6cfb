// Package diag collects compiler diagnostics. User errors and warnings are
// recorded with their source span; internal consistency failures are
// returned as *InternalError values and always abort compilation.
package diag

import (
	"fmt"
	"log/slog"

	"pkl/compiler-go/pkg/ast"
)

// Severity conveys the diagnostic level.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a user-facing error or warning.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     ast.Span
}

func (d Diagnostic) String() string {
	if d.Span.Start.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", d.Span.Start.Line, d.Span.Start.Column, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Sink receives diagnostics from the compiler phases.
type Sink interface {
	Error(span ast.Span, format string, args ...any)
	// Warning records a warning. It returns true when the warning was
	// escalated to an error and must be counted as one.
	Warning(span ast.Span, format string, args ...any) bool
}

// Collector is a Sink that keeps diagnostics in memory.
type Collector struct {
	// ErrorOnWarning turns every warning into an error.
	ErrorOnWarning bool
	// MaxErrors caps the number of errors recorded; zero means no cap.
	MaxErrors int

	diagnostics []Diagnostic
	errors      int
	warnings    int
	logger      *slog.Logger
}

// NewCollector returns an empty collector. A nil logger disables logging.
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{logger: logger}
}

func (c *Collector) Error(span ast.Span, format string, args ...any) {
	c.errors++
	if c.MaxErrors > 0 && c.errors > c.MaxErrors {
		return
	}
	c.add(Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...), Span: span})
}

func (c *Collector) Warning(span ast.Span, format string, args ...any) bool {
	if c.ErrorOnWarning {
		c.Error(span, format, args...)
		return true
	}
	c.warnings++
	c.add(Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Span: span})
	return false
}

func (c *Collector) add(d Diagnostic) {
	c.diagnostics = append(c.diagnostics, d)
	if c.logger != nil {
		c.logger.Debug("diagnostic", "severity", d.Severity, "line", d.Span.Start.Line, "message", d.Message)
	}
}

// Diagnostics returns the recorded diagnostics in report order.
func (c *Collector) Diagnostics() []Diagnostic {
	return c.diagnostics
}

// Errors returns the number of errors reported, including those past the cap.
func (c *Collector) Errors() int { return c.errors }

func (c *Collector) Warnings() int { return c.warnings }

// Reset forgets every recorded diagnostic.
func (c *Collector) Reset() {
	c.diagnostics = nil
	c.errors = 0
	c.warnings = 0
}

// InternalError reports a violated compiler invariant. It is never caused by
// user input accepted by the grammar.
type InternalError struct {
	Message string
	Span    ast.Span
	Node    ast.NodeType
	NodeID  uint64
}

func (e *InternalError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("internal compiler error: %s (node %s #%d at %d:%d)",
			e.Message, e.Node, e.NodeID, e.Span.Start.Line, e.Span.Start.Column)
	}
	return "internal compiler error: " + e.Message
}

// ICE builds an InternalError about node n, which may be nil.
func ICE(n ast.Node, format string, args ...any) *InternalError {
	err := &InternalError{Message: fmt.Sprintf(format, args...)}
	if n != nil {
		err.Span = n.Span()
		err.Node = n.NodeType()
		err.NodeID = n.ID()
	}
	return err
}

// Reporter is the payload the compiler phases share: it forwards diagnostics
// about nodes to a sink and counts the errors the phase reported.
type Reporter struct {
	Sink   Sink
	Errors int
}

func NewReporter(sink Sink) *Reporter {
	return &Reporter{Sink: sink}
}

func (r *Reporter) Error(n ast.Node, format string, args ...any) {
	r.Errors++
	r.Sink.Error(n.Span(), format, args...)
}

// Warning reports a warning about n, counting it as an error when the sink
// escalated it.
func (r *Reporter) Warning(n ast.Node, format string, args ...any) {
	if r.Sink.Warning(n.Span(), format, args...) {
		r.Errors++
	}
}

// Package compiler drives the semantic pipeline over compilation units.
//
// A Compiler owns the top-level environment shared by the units it compiles.
// Each unit is built against a private copy of that environment; the copy
// replaces the compiler's own only after the unit compiled cleanly and the
// backend accepted it, so a failed unit leaves no trace.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pkl/compiler-go/pkg/anal"
	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/build"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/env"
	"pkl/compiler-go/pkg/fold"
	"pkl/compiler-go/pkg/logger"
	"pkl/compiler-go/pkg/pass"
	"pkl/compiler-go/pkg/promo"
	"pkl/compiler-go/pkg/typify"
)

var (
	// ErrCompile is returned when the unit has compile errors. The
	// diagnostics are available from the compiler.
	ErrCompile = errors.New("compilation failed")
	// ErrStaleUnit is returned for a unit created before another unit was
	// committed.
	ErrStaleUnit = errors.New("stale compilation unit")
)

// Config holds the compiler-wide settings.
type Config struct {
	// ErrorOnWarning turns warnings into errors.
	ErrorOnWarning bool
	// Fold enables constant folding.
	Fold bool
	// MaxErrors caps the diagnostics kept per unit; zero keeps them all.
	MaxErrors int
}

func DefaultConfig() Config {
	return Config{Fold: true}
}

// Backend generates code for a unit that compiled cleanly.
type Backend interface {
	Generate(prog *ast.Program, e *env.Env) error
}

type Option func(*Compiler)

func WithBackend(b Backend) Option {
	return func(c *Compiler) { c.backend = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithEnv starts the compiler from an existing top-level environment instead
// of the predefined one.
func WithEnv(e *env.Env) Option {
	return func(c *Compiler) { c.toplevel = e }
}

type Compiler struct {
	cfg      Config
	toplevel *env.Env
	diags    *diag.Collector
	backend  Backend
	logger   *slog.Logger
	units    int
}

func New(cfg Config, opts ...Option) *Compiler {
	c := &Compiler{cfg: cfg, logger: logger.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.toplevel == nil {
		c.toplevel = env.NewToplevel()
	}
	c.diags = diag.NewCollector(c.logger)
	c.diags.ErrorOnWarning = cfg.ErrorOnWarning
	c.diags.MaxErrors = cfg.MaxErrors
	return c
}

// Unit is a compilation unit being built.
type Unit struct {
	ID int
	// Env is the private top-level environment the unit declares into.
	Env  *env.Env
	base *env.Env
}

// Builder returns a builder declaring into the unit environment.
func (u *Unit) Builder() *build.Builder {
	return build.New(u.Env)
}

// NewUnit starts a compilation unit on a copy of the committed top-level
// environment.
func (c *Compiler) NewUnit() *Unit {
	c.units++
	return &Unit{ID: c.units, Env: c.toplevel.DupToplevel(), base: c.toplevel}
}

// Result describes a compiled unit.
type Result struct {
	Program *ast.Program
	// Errors counts the errors each phase reported, by phase name.
	Errors   map[string]int
	Restarts int
}

type phaseReporter struct {
	name     string
	reporter *diag.Reporter
}

func (c *Compiler) phases() ([]*pass.Phase, []any, []phaseReporter) {
	var (
		phases    []*pass.Phase
		payloads  []any
		reporters []phaseReporter
	)
	add := func(ph *pass.Phase, reports bool) {
		var payload any
		if reports {
			r := diag.NewReporter(c.diags)
			reporters = append(reporters, phaseReporter{name: ph.Name(), reporter: r})
			payload = r
		}
		phases = append(phases, ph)
		payloads = append(payloads, payload)
	}
	add(anal.Phase1(), true)
	add(typify.Phase1(), true)
	add(promo.Phase(), false)
	if c.cfg.Fold {
		add(fold.Phase(), true)
	}
	add(typify.Phase2(), true)
	add(anal.Phase2(), true)
	return phases, payloads, reporters
}

// CompileUnit runs the semantic phases over prog, hands the result to the
// backend and commits the unit environment. On ErrCompile the diagnostics
// explain the failure. Internal compiler errors are returned as
// *diag.InternalError.
func (c *Compiler) CompileUnit(ctx context.Context, unit *Unit, prog *ast.Program) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if unit.base != c.toplevel {
		return nil, fmt.Errorf("unit %d: %w", unit.ID, ErrStaleUnit)
	}
	if !unit.Env.IsToplevel() {
		return nil, fmt.Errorf("unit %d: environment has %d open frames", unit.ID, unit.Env.Depth()-1)
	}
	c.diags.Reset()
	log := c.logger.With("unit", unit.ID)
	log.Debug("compiling unit", "statements", len(prog.Elems), "fold", c.cfg.Fold)

	phases, payloads, reporters := c.phases()
	p, err := pass.New(phases, payloads)
	if err != nil {
		return nil, err
	}
	root, err := p.Run(prog)
	if errors.Is(err, pass.ErrExit) {
		err = nil
	}

	res := &Result{Errors: make(map[string]int, len(reporters)), Restarts: p.Restarts()}
	total := 0
	for _, r := range reporters {
		res.Errors[r.name] = r.reporter.Errors
		total += r.reporter.Errors
	}

	var ice *diag.InternalError
	switch {
	case errors.As(err, &ice):
		log.Error("internal compiler error", "err", err)
		return res, err
	case err != nil && !errors.Is(err, pass.ErrFailed):
		return res, fmt.Errorf("unit %d: %w", unit.ID, err)
	case err != nil || total > 0:
		log.Info("unit failed", "errors", max(total, c.diags.Errors()), "restarts", res.Restarts)
		return res, fmt.Errorf("unit %d: %w with %d errors", unit.ID, ErrCompile, max(total, c.diags.Errors()))
	}

	out, ok := root.(*ast.Program)
	if !ok {
		return res, diag.ICE(root, "pass replaced the program root")
	}
	res.Program = out

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if c.backend != nil {
		if err := c.backend.Generate(out, unit.Env); err != nil {
			return res, fmt.Errorf("unit %d: generate: %w", unit.ID, err)
		}
	}
	c.toplevel = unit.Env
	log.Debug("unit compiled", "restarts", res.Restarts, "warnings", c.diags.Warnings())
	return res, nil
}

// Diagnostics returns the diagnostics of the last compiled unit.
func (c *Compiler) Diagnostics() []diag.Diagnostic {
	return c.diags.Diagnostics()
}

// Declaration describes a committed top-level declaration.
type Declaration struct {
	Name string
	Kind ast.DeclKind
	// Type is empty for declarations that were never typed.
	Type string
	// Over is the slot of the declaration in the top-level frame.
	Over int
	Span ast.Span
}

// Declarations lists the committed top-level declarations of namespace ns in
// declaration order.
func (c *Compiler) Declarations(ns env.Namespace) []Declaration {
	var out []Declaration
	c.toplevel.Each(ns, func(decl *ast.Decl) bool {
		d := Declaration{
			Name: decl.DeclName(),
			Kind: decl.Kind,
			Over: decl.Order,
			Span: decl.Span(),
		}
		if t := typify.DeclType(decl); t != nil {
			d.Type = t.String()
		}
		out = append(out, d)
		return true
	})
	return out
}

// Toplevel returns the committed top-level environment.
func (c *Compiler) Toplevel() *env.Env {
	return c.toplevel
}

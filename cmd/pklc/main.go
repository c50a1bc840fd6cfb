package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkl/compiler-go/pkg/compiler"
	"pkl/compiler-go/pkg/diag"
	"pkl/compiler-go/pkg/driver"
	"pkl/compiler-go/pkg/env"
	"pkl/compiler-go/pkg/fixtures"
	"pkl/compiler-go/pkg/logger"
)

const cliToolVersion = "pklc 0.0.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "check":
		return runCheck(args[1:])
	case "doc":
		return runDoc(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage()
		return 1
	}
}

type commonFlags struct {
	config    string
	verbose   bool
	logFormat string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "path to pklc.yml (default: searched upwards from the input)")
	fs.BoolVar(&f.verbose, "v", false, "log at debug level")
	fs.StringVar(&f.logFormat, "log-format", "", "log format (text|json)")
}

// setup loads the configuration for input and installs the logger.
func (f *commonFlags) setup(input string) (*driver.Config, error) {
	var (
		cfg *driver.Config
		err error
	)
	if f.config != "" {
		cfg, err = driver.LoadConfig(f.config)
	} else {
		cfg, err = driver.FindConfig(filepath.Dir(input))
	}
	if err != nil {
		return nil, err
	}
	lc := cfg.LoggerConfig()
	if f.verbose {
		lc.Level = logger.LevelDebug
	}
	if f.logFormat != "" {
		lc.Format = f.logFormat
	}
	if _, err := logger.Init(lc); err != nil {
		return nil, err
	}
	return cfg, nil
}

type checkReport struct {
	Declarations []declarationReport `json:"declarations,omitempty"`
	Diagnostics  []string            `json:"diagnostics,omitempty"`
	Error        string              `json:"error,omitempty"`
}

type declarationReport struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Type string `json:"type,omitempty"`
	Line int    `json:"line,omitempty"`
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	jsonFlag := fs.Bool("json", false, "print a JSON report on stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "check requires exactly one program file")
		return 1
	}
	path := fs.Arg(0)

	cfg, err := common.setup(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	defer logger.Close()
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read program: %v\n", err)
		return 1
	}

	comp := compiler.New(cfg.CompilerConfig(), compiler.WithLogger(logger.With("program", path)))
	unit := comp.NewUnit()
	prog, err := fixtures.DecodeProgram(source, unit.Builder())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}
	_, compileErr := comp.CompileUnit(context.Background(), unit, prog)

	if *jsonFlag {
		report := checkReport{}
		for _, d := range comp.Diagnostics() {
			report.Diagnostics = append(report.Diagnostics, driver.DescribeDiagnostic(path, d))
		}
		if compileErr != nil {
			report.Error = driver.DescribeError(path, compileErr)
		} else {
			report.Declarations = declarations(comp)
		}
		writeJSON(os.Stdout, report)
	} else {
		driver.WriteDiagnostics(os.Stderr, path, comp.Diagnostics())
		if compileErr == nil {
			for _, d := range declarations(comp) {
				fmt.Fprintf(os.Stdout, "%s %s: %s\n", d.Kind, d.Name, d.Type)
			}
		}
	}

	if compileErr != nil {
		var ice *diag.InternalError
		switch {
		case errors.As(compileErr, &ice):
			fmt.Fprintln(os.Stderr, driver.DescribeError(path, compileErr))
		case errors.Is(compileErr, compiler.ErrCompile):
			fmt.Fprintf(os.Stderr, "%s: compilation failed\n", path)
		default:
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, compileErr)
		}
		return 1
	}
	return 0
}

func declarations(comp *compiler.Compiler) []declarationReport {
	var out []declarationReport
	for _, d := range comp.Declarations(env.NSMain) {
		out = append(out, declarationReport{
			Name: d.Name,
			Kind: string(d.Kind),
			Type: d.Type,
			Line: d.Span.Start.Line,
		})
	}
	return out
}

func runDoc(args []string) int {
	fs := flag.NewFlagSet("doc", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "doc requires at least one markdown document")
		return 1
	}

	defer logger.Close()

	failed := 0
	passed := 0
	for _, path := range fs.Args() {
		cfg, err := common.setup(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
			return 1
		}
		source, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", path, err)
			return 1
		}
		results, err := driver.RunCases(context.Background(), cfg.CompilerConfig(), source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			return 1
		}
		for _, r := range results {
			if r.Passed() {
				passed++
				fmt.Fprintf(os.Stdout, "PASS %s\n", r.Name)
				continue
			}
			failed++
			fmt.Fprintf(os.Stdout, "FAIL %s (%s:%d)\n", r.Name, path, r.Line)
			for _, f := range r.Failures {
				fmt.Fprintf(os.Stdout, "    %s\n", strings.ReplaceAll(f, "\n", "\n    "))
			}
		}
	}
	fmt.Fprintf(os.Stdout, "%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  pklc check [-config pklc.yml] [-v] [-log-format text|json] [-json] <program.yml>")
	fmt.Fprintln(os.Stderr, "  pklc doc [-config pklc.yml] [-v] <cases.md> ...")
	fmt.Fprintln(os.Stderr, "  pklc version")
}

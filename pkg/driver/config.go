package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pkl/compiler-go/pkg/compiler"
	"pkl/compiler-go/pkg/logger"
)

// ConfigFileName is the configuration file searched for by FindConfig.
const ConfigFileName = "pklc.yml"

// Config represents the parsed contents of pklc.yml.
type Config struct {
	Path           string
	ErrorOnWarning bool
	Fold           bool
	MaxErrors      int
	Log            LogConfig
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

type configFile struct {
	ErrorOnWarning bool          `yaml:"error_on_warning"`
	Fold           *bool         `yaml:"fold"`
	MaxErrors      int           `yaml:"max_errors"`
	Log            logConfigFile `yaml:"log"`
}

type logConfigFile struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ValidationError aggregates configuration validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// DefaultConfig is the configuration used when no pklc.yml exists.
func DefaultConfig() *Config {
	return &Config{
		Fold: true,
		Log:  LogConfig{Level: "warn", Format: "text"},
	}
}

// LoadConfig parses a configuration file from disk and validates it.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	cfg, err := ParseConfig(file)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", absPath, err)
	}
	cfg.Path = absPath
	return cfg, nil
}

// ParseConfig decodes and validates a configuration document. An empty
// document yields the defaults.
func ParseConfig(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	cfg := raw.toConfig()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (raw configFile) toConfig() *Config {
	cfg := DefaultConfig()
	cfg.ErrorOnWarning = raw.ErrorOnWarning
	if raw.Fold != nil {
		cfg.Fold = *raw.Fold
	}
	cfg.MaxErrors = raw.MaxErrors
	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}
	if raw.Log.Format != "" {
		cfg.Log.Format = raw.Log.Format
	}
	cfg.Log.File = raw.Log.File
	return cfg
}

func (c *Config) validate() error {
	var errs ValidationError
	if c.MaxErrors < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("max_errors must not be negative, got %d", c.MaxErrors))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs.Issues = append(errs.Issues, fmt.Sprintf("log.level: %v", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// FindConfig walks up from start looking for pklc.yml. It returns the
// defaults when no configuration file exists.
func FindConfig(start string) (*Config, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %q: %w", start, err)
	}
	dir := filepath.Clean(abs)
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return LoadConfig(candidate)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return DefaultConfig(), nil
}

// CompilerConfig returns the compiler settings of the configuration.
func (c *Config) CompilerConfig() compiler.Config {
	return compiler.Config{
		ErrorOnWarning: c.ErrorOnWarning,
		Fold:           c.Fold,
		MaxErrors:      c.MaxErrors,
	}
}

// LoggerConfig returns the logger settings of the configuration. Relative
// log files are resolved against the directory of the configuration file.
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	if level, err := logger.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.Log.Format
	cfg.LogFile = c.Log.File
	if cfg.LogFile != "" && c.Path != "" && !filepath.IsAbs(cfg.LogFile) {
		cfg.LogFile = filepath.Join(filepath.Dir(c.Path), cfg.LogFile)
	}
	return cfg
}

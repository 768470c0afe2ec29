// Package config loads tablegen settings from a YAML file. Command-line
// flags override individual fields after loading.
package config

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joomcode/errorx"
	"gopkg.in/yaml.v3"

	"github.com/patsak/tablegen"
)

// DefaultPath is read when no config file is named explicitly. A missing
// default file is not an error.
const DefaultPath = "tablegen.yaml"

type Config struct {
	// Package overrides the (package NAME) form of every source.
	Package string `yaml:"package,omitempty"`
	// Suffix replaces the source extension to form the output file name.
	Suffix string `yaml:"suffix,omitempty"`
	// FixImports adds missing and drops unused imports in generated files.
	FixImports bool      `yaml:"fix_imports"`
	Log        LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Suffix:     "_gen.go",
		FixImports: true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. When explicit is false a missing file
// yields the defaults.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, errorx.Decorate(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errorx.IllegalFormat.Wrap(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errorx.Decorate(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Suffix == "" || !strings.HasSuffix(c.Suffix, ".go") {
		return errorx.IllegalArgument.New("suffix %q must end in .go", c.Suffix)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errorx.IllegalArgument.New("unknown log format %q, want text or json", c.Log.Format)
	}
	return nil
}

// Options turns the config into generator options.
func (c *Config) Options() []tablegen.Option {
	opts := []tablegen.Option{tablegen.FixImports(c.FixImports)}
	if c.Package != "" {
		opts = append(opts, tablegen.PackageName(c.Package))
	}
	return opts
}

// NewLogger builds the logger described by the log section.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errorx.IllegalArgument.New("unknown log level %q, want debug, info, warn or error", s)
}

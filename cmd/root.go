package main

import (
	"context"
	"io"
	"os"

	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"

	"github.com/patsak/tablegen"
	"github.com/patsak/tablegen/internal/config"
	"github.com/patsak/tablegen/internal/ctxlog"
)

type flags struct {
	configPath string
	pkg        string
	suffix     string
	fixImports bool
	stdout     bool
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "tablegen [flags] FILE...",
		Short: "Generate Go nested-loop code from .tbl table definitions",
		Long: `tablegen expands table, array and fold forms in .tbl files into Go source.

Each FILE is written next to itself with the .tbl extension replaced by the
configured suffix (default _gen.go). FILE "-" reads stdin and writes stdout.

Typical use is a go:generate directive:

	//go:generate go run github.com/patsak/tablegen/cmd demo.tbl`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := ctxlog.WithLogger(cmd.Context(), logger)
			cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			for _, path := range args {
				if err := generateFile(ctx, cfg, path, f.stdout, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", config.DefaultPath, "path to the YAML config file")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	cmd.Flags().StringVarP(&f.pkg, "package", "p", "", "package name of the generated files")
	cmd.Flags().StringVar(&f.suffix, "suffix", "_gen.go", "output file suffix replacing the source extension")
	cmd.Flags().BoolVar(&f.fixImports, "fix-imports", true, "add missing and drop unused imports")
	cmd.Flags().BoolVar(&f.stdout, "stdout", false, "write generated code to stdout instead of files")

	cmd.AddCommand(newExpandCommand())
	return cmd
}

type configKey struct{}

func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed
	if changed("package") {
		cfg.Package = f.pkg
	}
	if changed("suffix") {
		cfg.Suffix = f.suffix
	}
	if changed("fix-imports") {
		cfg.FixImports = f.fixImports
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	return cfg, cfg.Validate()
}

func generateFile(ctx context.Context, cfg *config.Config, path string, toStdout bool, stdin io.Reader, stdout io.Writer) error {
	logger := ctxlog.FromContext(ctxlog.With(ctx, "source", path))

	var (
		src []byte
		err error
	)
	if path == "-" {
		src, err = io.ReadAll(stdin)
		toStdout = true
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return errorx.Decorate(err, "read %s", path)
	}

	opts := append(cfg.Options(), tablegen.Logger(logger))
	if path != "-" {
		opts = append(opts, tablegen.SourceName(path))
	}
	out, err := tablegen.Generate(string(src), opts...)
	if err != nil {
		return err
	}

	if toStdout {
		_, err = stdout.Write(out)
		return err
	}
	target := tablegen.OutputPath(path, cfg.Suffix)
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return errorx.Decorate(err, "write %s", target)
	}
	logger.Info("generated", "output", target, "bytes", len(out))
	return nil
}

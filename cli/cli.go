// Package cli implements the grnconv command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opal-lang/grnconv/internal/config"
	"github.com/opal-lang/grnconv/internal/logging"
	"github.com/opal-lang/grnconv/runtime/converter"
	"github.com/opal-lang/grnconv/runtime/reconciler"
	"github.com/opal-lang/grnconv/runtime/suite"
)

// app is the state shared by the subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	logLevel   string
	logJSON    bool
	noColor    bool

	useColor bool
	cfg      *config.Config
	logger   *zap.Logger
}

// Execute runs grnconv with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err != nil {
		FormatError(stderr, err, a.useColor)
		return ExitCode(err)
	}
	return ExitSuccess
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "grnconv",
		Short:         "Convert groonga grntest transcripts into Go tests",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.useColor = ShouldUseColor(a.stdout, a.noColor)
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to the configuration file (default "+config.DefaultFile+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Log as JSON")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		a.convertCommand(),
		a.checkCommand(),
		a.cleanCommand(),
		a.initCommand(),
	)
	return root
}

// setup loads the configuration and builds the logger. Flags of cmd that
// were set explicitly override the configuration.
func (a *app) setup(cmd *cobra.Command, override func(*config.Config)) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = a.logJSON
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.logger.Debug("configuration loaded",
		zap.String("source", cfg.Source),
		zap.String("out", cfg.Out),
		zap.String("dialect", cfg.Dialect))
	return nil
}

// newSuite builds the suite converter the configuration describes.
func (a *app) newSuite(metrics *suite.Metrics) (*suite.Suite, error) {
	if info, err := os.Stat(a.cfg.Source); err != nil || !info.IsDir() {
		return nil, &CLIError{
			Code:    ExitIOError,
			Message: fmt.Sprintf("source %q is not a directory", a.cfg.Source),
			Hint:    "Point --source at the groonga test root that contains suite/",
			Err:     err,
		}
	}
	fsys := os.DirFS(a.cfg.Source)
	cache, err := reconciler.NewIncludeCache(reconciler.DefaultIncludeCacheSize)
	if err != nil {
		return nil, err
	}
	conv := converter.New(append(a.cfg.ConverterOptions(), converter.WithIncludes(fsys, cache))...)
	return suite.New(fsys, conv,
		suite.WithLogger(a.logger),
		suite.WithConcurrency(a.cfg.Concurrency),
		suite.WithKeepGoing(a.cfg.KeepGoing),
		suite.WithMetrics(metrics),
	), nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.stdout, format, args...)
}

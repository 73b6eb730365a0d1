package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opal-lang/grnconv/internal/config"
	"github.com/opal-lang/grnconv/runtime/suite"
)

type convertFlags struct {
	source       string
	out          string
	dialect      string
	clientImport string
	concurrency  int
	keepGoing    bool
	report       string
	metrics      string
	watch        bool
}

func (a *app) convertCommand() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert [test pattern...]",
		Short: "Convert transcripts into Go tests",
		Long: `Convert pairs every suite/**/*.test script with its .expected transcript
and writes one Go test per pair below the output directory. Patterns
restrict conversion to matching test paths, e.g. 'suite/select/**'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, f.apply(cmd, args)); err != nil {
				return err
			}
			return a.convert(cmd.Context(), f.watch)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.source, "source", "s", "", "Groonga test root containing suite/")
	flags.StringVarP(&f.out, "out", "o", "", "Output directory for generated tests")
	flags.StringVar(&f.dialect, "dialect", "", "Assertion dialect: testify or go-cmp")
	flags.StringVar(&f.clientImport, "client-import", "", "Import path of the groonga client package")
	flags.IntVarP(&f.concurrency, "concurrency", "j", 0, "Transcripts converted at once (0 uses all CPUs)")
	flags.BoolVarP(&f.keepGoing, "keep-going", "k", false, "Report failed conversions instead of stopping")
	flags.StringVar(&f.report, "report", "", "Write the YAML conversion report to this file")
	flags.StringVar(&f.metrics, "metrics", "", "Write Prometheus metrics to this textfile")
	flags.BoolVarP(&f.watch, "watch", "w", false, "Reconvert tests whenever their transcripts change")
	return cmd
}

func (f *convertFlags) apply(cmd *cobra.Command, patterns []string) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		set := func(name string, dst *string, v string) {
			if flags.Changed(name) {
				*dst = v
			}
		}
		set("source", &cfg.Source, f.source)
		set("out", &cfg.Out, f.out)
		set("dialect", &cfg.Dialect, f.dialect)
		set("client-import", &cfg.ClientImport, f.clientImport)
		set("report", &cfg.Report, f.report)
		set("metrics", &cfg.Metrics, f.metrics)
		if flags.Changed("concurrency") {
			cfg.Concurrency = f.concurrency
		}
		if flags.Changed("keep-going") {
			cfg.KeepGoing = f.keepGoing
		}
		if len(patterns) > 0 {
			cfg.Tests = patterns
		}
	}
}

func (a *app) convert(ctx context.Context, watch bool) error {
	var metrics *suite.Metrics
	if a.cfg.Metrics != "" {
		metrics = suite.NewMetrics()
	}
	s, err := a.newSuite(metrics)
	if err != nil {
		return err
	}

	idx, err := suite.Discover(os.DirFS(a.cfg.Source), a.cfg.Tests...)
	if err != nil {
		return &CLIError{Code: ExitInvalidArguments, Message: "cannot discover transcripts", Details: err.Error(), Err: err}
	}
	if len(idx.Complete) == 0 && !watch {
		return &CLIError{
			Code:    ExitInvalidArguments,
			Message: "no transcripts found",
			Hint:    fmt.Sprintf("Check that %s contains %s/**/*.test files matching the given patterns", a.cfg.Source, suite.Root),
		}
	}

	run := func(ctx context.Context, idx *suite.Index) error {
		sum, err := s.Convert(ctx, idx)
		if err != nil {
			return &CLIError{
				Code:    ExitConversionError,
				Message: "conversion failed",
				Details: err.Error(),
				Hint:    "Use --keep-going to convert the remaining transcripts anyway",
				Err:     err,
			}
		}
		if err := s.Write(a.cfg.Out, sum); err != nil {
			return &CLIError{Code: ExitIOError, Message: "cannot write generated tests", Details: err.Error(), Err: err}
		}
		if err := a.writeOutputs(sum, metrics); err != nil {
			return err
		}
		a.printSummary(sum)
		if len(sum.Failures) > 0 {
			var details []string
			for _, f := range sum.Failures {
				details = append(details, "  "+f.Err.Error())
			}
			return &CLIError{
				Code:    ExitConversionError,
				Message: fmt.Sprintf("%d transcripts could not be converted", len(sum.Failures)),
				Details: strings.Join(details, "\n"),
			}
		}
		return nil
	}

	if err := run(ctx, idx); err != nil {
		if !watch {
			return err
		}
		FormatError(a.stderr, err, a.useColor)
	}
	if !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	debounce, err := a.cfg.Debounce()
	if err != nil {
		return err
	}
	a.printf("%s\n", Colorize("Watching "+filepath.Join(a.cfg.Source, suite.Root)+" for changes", ColorCyan, a.useColor))
	return s.Watch(ctx, a.cfg.Source, debounce, func(ctx context.Context, idx *suite.Index) error {
		if err := run(ctx, idx); err != nil {
			FormatError(a.stderr, err, a.useColor)
		}
		return nil
	}, a.cfg.Tests...)
}

func (a *app) writeOutputs(sum *suite.Summary, metrics *suite.Metrics) error {
	if a.cfg.Report != "" {
		f, err := os.Create(a.cfg.Report)
		if err != nil {
			return &CLIError{Code: ExitIOError, Message: "cannot write report", Details: err.Error(), Err: err}
		}
		err = sum.Report.WriteYAML(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return &CLIError{Code: ExitIOError, Message: "cannot write report", Details: err.Error(), Err: err}
		}
		a.logger.Debug("wrote report", zap.String("file", a.cfg.Report))
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics); err != nil {
		return &CLIError{Code: ExitIOError, Message: "cannot write metrics", Details: err.Error(), Err: err}
	}
	return nil
}

func (a *app) printSummary(sum *suite.Summary) {
	isolated := 0
	for _, res := range sum.Results {
		if res.Isolated {
			isolated++
		}
	}
	status := Colorize("ok", ColorGreen, a.useColor)
	if len(sum.Failures) > 0 {
		status = Colorize("FAIL", ColorRed, a.useColor)
	}
	a.printf("%s converted %d tests (%d isolated) into %s", status, len(sum.Results), isolated, a.cfg.Out)
	if len(sum.Skipped) > 0 {
		a.printf(", %s", Colorize(fmt.Sprintf("%d skipped", len(sum.Skipped)), ColorYellow, a.useColor))
	}
	if len(sum.Failures) > 0 {
		a.printf(", %s", Colorize(fmt.Sprintf("%d failed", len(sum.Failures)), ColorRed, a.useColor))
	}
	a.printf(" %s\n", Colorize("run "+sum.RunID, ColorGray, a.useColor))
}

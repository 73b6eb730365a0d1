package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opal-lang/grnconv/internal/config"
	"github.com/opal-lang/grnconv/runtime/suite"
)

func (a *app) checkCommand() *cobra.Command {
	var source, out string
	return withSourceFlags(&cobra.Command{
		Use:   "check [test pattern...]",
		Short: "Report generated tests that are missing or out of date",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd, func(cfg *config.Config) {
				overrideSource(cmd, cfg, source, out)
				if len(args) > 0 {
					cfg.Tests = args
				}
			})
			if err != nil {
				return err
			}
			return a.check()
		},
	}, &source, &out)
}

func (a *app) check() error {
	s, err := a.newSuite(nil)
	if err != nil {
		return err
	}
	idx, err := suite.Discover(os.DirFS(a.cfg.Source), a.cfg.Tests...)
	if err != nil {
		return &CLIError{Code: ExitInvalidArguments, Message: "cannot discover transcripts", Details: err.Error(), Err: err}
	}
	stale, err := s.Check(idx, a.cfg.Out)
	if err != nil {
		return &CLIError{Code: ExitIOError, Message: "cannot check generated tests", Details: err.Error(), Err: err}
	}
	for _, st := range stale {
		a.printf("%s %s\n", Colorize(fmt.Sprintf("%-8s", st.Reason), ColorYellow, a.useColor), st.TestPath)
	}
	if len(stale) > 0 {
		return &CLIError{
			Code:    ExitStale,
			Message: fmt.Sprintf("%d of %d generated tests are stale", len(stale), len(idx.Complete)),
			Hint:    "Run 'grnconv convert' to regenerate them",
		}
	}
	a.printf("%s %d generated tests are up to date\n", Colorize("ok", ColorGreen, a.useColor), len(idx.Complete))
	return nil
}

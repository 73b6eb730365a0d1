package cli

import (
	"github.com/spf13/cobra"

	"github.com/opal-lang/grnconv/internal/config"
	"github.com/opal-lang/grnconv/runtime/suite"
)

func (a *app) cleanCommand() *cobra.Command {
	var source, out string
	return withSourceFlags(&cobra.Command{
		Use:   "clean",
		Short: "Remove generated tests from the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd, func(cfg *config.Config) {
				overrideSource(cmd, cfg, source, out)
			})
			if err != nil {
				return err
			}
			removed, err := suite.Clean(a.cfg.Out)
			if err != nil {
				return &CLIError{Code: ExitIOError, Message: "cannot clean generated tests", Details: err.Error(), Err: err}
			}
			for _, name := range removed {
				a.printf("%s %s\n", Colorize("removed", ColorGray, a.useColor), name)
			}
			a.printf("%s removed %d generated tests\n", Colorize("ok", ColorGreen, a.useColor), len(removed))
			return nil
		},
	}, &source, &out)
}

func withSourceFlags(cmd *cobra.Command, source, out *string) *cobra.Command {
	cmd.Flags().StringVarP(source, "source", "s", "", "Groonga test root containing suite/")
	cmd.Flags().StringVarP(out, "out", "o", "", "Output directory of generated tests")
	return cmd
}

func overrideSource(cmd *cobra.Command, cfg *config.Config, source, out string) {
	if cmd.Flags().Changed("source") {
		cfg.Source = source
	}
	if cmd.Flags().Changed("out") {
		cfg.Out = out
	}
}

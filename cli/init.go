package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opal-lang/grnconv/internal/config"
)

func (a *app) initCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.configFile
			if name == "" {
				name = config.DefaultFile
			}
			if _, err := os.Stat(name); err == nil && !force {
				return &CLIError{
					Code:    ExitInvalidArguments,
					Message: fmt.Sprintf("%s already exists", name),
					Hint:    "Use --force to overwrite it",
				}
			}
			data, err := config.Default().Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return &CLIError{Code: ExitIOError, Message: "cannot write configuration", Details: err.Error(), Err: err}
			}
			a.printf("%s wrote %s\n", Colorize("ok", ColorGreen, a.useColor), name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/teal/internal/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit [values.yaml]",
	Short: "Open the parameter editor",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadSet(cmd, optionalArg(args))
		if err != nil {
			return err
		}
		dialog, err := tui.Run(cfg, book, set)
		if err != nil {
			return err
		}
		if dialog.Outcome() == tui.OutcomeCanceled {
			fmt.Fprintln(cmd.OutOrStdout(), "canceled")
			return nil
		}
		return printParams(cmd.OutOrStdout(), dialog.Set())
	},
}

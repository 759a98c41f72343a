package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the most recent editor log entries",
	Long: `Print the tail of ~/.teal/logs/teal.log: rule firings, loads, saves and
the errors the dialog reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, _ := cmd.Flags().GetInt("lines")
		if lines <= 0 {
			return fmt.Errorf("--lines must be positive, got %d", lines)
		}
		out := cmd.OutOrStdout()
		entries := book.Tail(lines)
		if len(entries) == 0 {
			fmt.Fprintf(out, "no entries in %s\n", cfg.LogPath())
			return nil
		}
		for _, line := range entries {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().IntP("lines", "n", 20, "number of entries to print")
}

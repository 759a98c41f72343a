package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kingrea/teal/internal/taskpars"
	"github.com/kingrea/teal/internal/trigger"
)

var showCmd = &cobra.Command{
	Use:   "show [values.yaml]",
	Short: "Print parameters and their active states",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadSet(cmd, optionalArg(args))
		if err != nil {
			return err
		}
		engine, err := trigger.New(set, set, trigger.WithLogger(book.WithPrefix(set.Task())))
		if err != nil {
			return err
		}
		if err := engine.Refresh(); err != nil {
			return err
		}
		for _, w := range set.Warnings() {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		return printParams(cmd.OutOrStdout(), set)
	},
}

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Write a value file holding the schema defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		set, err := loadSet(cmd, "")
		if err != nil {
			return err
		}
		if output == "" {
			data, err := set.Marshal("")
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := set.Save(output, "Defaults for "+set.Task()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
		return nil
	},
}

func init() {
	defaultsCmd.Flags().StringP("output", "o", "", "file to write (default: stdout)")
}

var inactiveCell = lipgloss.NewStyle().Faint(true).Padding(0, 1)
var cell = lipgloss.NewStyle().Padding(0, 1)

func printParams(w io.Writer, set *taskpars.Set) error {
	params := set.Params()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PARAMETER", "TYPE", "VALUE", "STATE", "TRIGGER").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row >= 0 && row < len(params) && !params[row].Active {
				return inactiveCell
			}
			return cell
		})
	for _, p := range params {
		state := "active"
		if !p.Active {
			state = "inactive"
		}
		t.Row(p.AbsName(), string(p.Spec.Type), taskpars.FormatValue(p.Value), state, p.Spec.Triggers)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

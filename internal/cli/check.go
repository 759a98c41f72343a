package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kingrea/teal/internal/trigger"
)

var checkCmd = &cobra.Command{
	Use:   "check [values.yaml]",
	Short: "Validate a schema's rules and dependencies",
	Long: `Compile every rule for the fields that fire it and verify that every
active_if/inactive_if declaration names a rule or canned trigger whose
targets exist. Nothing is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadSet(cmd, optionalArg(args))
		if err != nil {
			return err
		}
		engine, err := trigger.New(set, set, trigger.WithLogger(book.WithPrefix(set.Task())))
		if err != nil {
			return err
		}
		if err := engine.Validate(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		bindings := set.TriggerBindings()
		names := make([]string, 0, len(bindings))
		for name := range bindings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%s fired by %v, %d dependents\n", name, bindings[name], len(set.DependentsOf(name)))
		}
		fmt.Fprintf(out, "%s: ok\n", set.Task())
		return nil
	},
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/teal/internal/config"
	"github.com/kingrea/teal/internal/logbook"
	"github.com/kingrea/teal/internal/taskpars"
)

var (
	cfg     *config.Config
	book    *logbook.Logbook
	rootCmd = &cobra.Command{
		Use:   "teal",
		Short: "TEAL: Task Editor And Launcher",
		Long: `TEAL edits task parameters in a parameter-dependent way.

A task is described by a schema (<task>.spec.yaml) declaring its parameters,
their types and defaults, and rules that turn fields on and off as values
change. Values live in plain YAML files naming their task with _task_name_.

  teal edit my.yaml          open the editor
  teal check --schema s.yaml validate a schema's rules
  teal show my.yaml          print values and active states
  teal log -n 50             print recent rule firings and errors`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("schema", "s", "", "schema file (default: <task>.spec.yaml next to the value file)")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(defaultsCmd)
	rootCmd.AddCommand(logCmd)
}

func initConfig() {
	var err error
	cfg, err = config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	book, err = logbook.New(cfg.LogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
}

// loadSet resolves the schema for valuesPath and loads both. With no value
// file, the schema's defaults are loaded.
func loadSet(cmd *cobra.Command, valuesPath string) (*taskpars.Set, error) {
	schemaPath, _ := cmd.Flags().GetString("schema")
	if valuesPath == "" {
		if schemaPath == "" {
			return nil, fmt.Errorf("a value file or --schema is required")
		}
		return taskpars.LoadDefaults(schemaPath)
	}
	if schemaPath == "" {
		found, err := taskpars.FindSchema(valuesPath, cfg.SchemasDir())
		if err != nil {
			return nil, err
		}
		schemaPath = found
	}
	return taskpars.Load(schemaPath, valuesPath)
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

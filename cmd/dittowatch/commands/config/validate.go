package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittowatch/internal/cli/output"
	"github.com/marmos91/dittowatch/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the DittoWatch configuration file.

Checks for syntax errors, missing required fields and invalid values,
then prints the configured mirrors.

Examples:
  dittowatch config validate
  dittowatch config validate --config /etc/dittowatch/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if !cfg.API.IsEnabled() {
		warnings = append(warnings, "API server disabled - 'dittowatch status' will not work")
	}
	if !cfg.Metrics.Enabled {
		warnings = append(warnings, "Metrics disabled - mirror state will not be exported")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nMirrors:")
	table := output.NewTableData("Name", "Store", "Probe Interval", "Latency SLO", "Window", "Min Samples")
	for _, m := range cfg.Mirrors {
		w := cfg.Watcher.Merge(m.Watcher)
		table.AddRow(m.Name, m.Store.Type, m.ProbeInterval.String(), m.LatencySLO.String(), w.Window.String(), fmt.Sprint(w.MinSamples))
	}
	return output.PrintTable(out, table)
}

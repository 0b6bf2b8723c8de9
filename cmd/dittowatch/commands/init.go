package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittowatch/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample DittoWatch configuration file.

By default the file is created at $XDG_CONFIG_HOME/dittowatch/config.yaml.
Use --config to choose another path.

Examples:
  dittowatch init
  dittowatch init --config /etc/dittowatch/config.yaml
  dittowatch init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Add your mirrors and their latency SLOs")
	_, _ = fmt.Fprintf(out, "  2. Check the file with: dittowatch config validate --config %s\n", configPath)
	_, _ = fmt.Fprintf(out, "  3. Start watching with: dittowatch start --config %s\n", configPath)
	return nil
}

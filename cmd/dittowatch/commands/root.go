// Package commands implements the dittowatch CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittowatch/cmd/dittowatch/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "dittowatch",
	Short: "DittoWatch - storage mirror latency watcher",
	Long: `DittoWatch probes storage mirrors (memory, filesystem, BadgerDB, S3),
keeps a sliding window of probe latencies per mirror and marks a mirror
failed when too many samples in the window exceed its latency SLO.

Use "dittowatch [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/dittowatch/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}

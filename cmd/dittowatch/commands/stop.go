package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	stopPidFile string
	stopForce   bool

	errProcessDone = errors.New("process already finished")
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running DittoWatch server",
	Long: `Stop a DittoWatch server started with --pid-file.

By default the server is asked to shut down gracefully. Use --force for
immediate termination.

Examples:
  dittowatch stop --pid-file /run/dittowatch.pid
  dittowatch stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/dittowatch/dittowatch.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Force kill instead of graceful shutdown")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pid, err := readPidFile(pidPath)
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := stopProcess(process, pid, stopForce); err != nil {
		if errors.Is(err, errProcessDone) {
			fmt.Println("Server already stopped")
			_ = os.Remove(pidPath)
			return nil
		}
		return err
	}

	if stopForce {
		fmt.Println("Server terminated")
	} else {
		fmt.Println("Shutdown signal sent. Server will stop gracefully.")
	}
	return nil
}

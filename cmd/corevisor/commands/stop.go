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
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the supervisor",
	Long: `Stop a running corevisor supervisor.

By default a graceful shutdown is requested: the supervisor waits for an
in-flight lifecycle operation and, if core.stop_on_shutdown is set, stops
the core app. Use --force to kill it immediately.

Examples:
  corevisor stop
  corevisor stop --pid-file /run/corevisor.pid
  corevisor stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/corevisor/corevisor.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Kill immediately instead of shutting down gracefully")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := resolvePidFile(stopPidFile)
	pid, err := readPidFile(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("PID file not found: %s\n\nIs the supervisor running?", pidPath)
	}
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	sig, name := stopSignal(stopForce)
	fmt.Printf("Sending %s to process %d...\n", name, pid)
	err = process.Signal(sig)
	switch {
	case errors.Is(err, os.ErrProcessDone):
		fmt.Println("Supervisor already stopped")
		_ = os.Remove(pidPath)
		return nil
	case err != nil:
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	case stopForce:
		fmt.Println("Supervisor terminated")
	default:
		fmt.Println("Shutdown signal sent. Supervisor will stop gracefully.")
	}
	return nil
}

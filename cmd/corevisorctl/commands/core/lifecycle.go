package core

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/pkg/apiclient"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
)

var (
	opBackground bool
	opForce      bool
	opSafeMode   bool
	opBackup     bool
	opVersion    string
	opYes        bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the core app",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(lifecycle.OpStart, func(c *apiclient.Client) (*apiclient.OperationResponse, error) {
			return c.StartCore(opSafeMode, opBackground)
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the core app",
	Long: `Stop the core app. The operation is refused while the core app is
migrating its database unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunWithConfirmation("Stop the core app?", opYes, func() error {
			return runOperation(lifecycle.OpStop, func(c *apiclient.Client) (*apiclient.OperationResponse, error) {
				return c.StopCore(opForce, opBackground)
			})
		})
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the core app",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(lifecycle.OpRestart, func(c *apiclient.Client) (*apiclient.OperationResponse, error) {
			return c.RestartCore(opSafeMode, opForce, opBackground)
		})
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recreate the core app instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunWithConfirmation("Rebuild the core app?", opYes, func() error {
			return runOperation(lifecycle.OpRebuild, func(c *apiclient.Client) (*apiclient.OperationResponse, error) {
				return c.RebuildCore(opSafeMode, opForce, opBackground)
			})
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the core app",
	Long: `Update the core app to --version, or to the latest known version.
Updating to the installed version does nothing. Updates are never forced
past a running database migration.

Examples:
  corevisorctl core update
  corevisorctl core update --version 2024.6.1 --backup
  corevisorctl core update --background`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(lifecycle.OpUpdate, func(c *apiclient.Client) (*apiclient.OperationResponse, error) {
			return c.UpdateCore(opVersion, opBackup, opBackground)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{startCmd, stopCmd, restartCmd, rebuildCmd, updateCmd} {
		c.Flags().BoolVar(&opBackground, "background", false, "Return once the operation is accepted")
	}
	for _, c := range []*cobra.Command{stopCmd, restartCmd, rebuildCmd} {
		c.Flags().BoolVar(&opForce, "force", false, "Proceed even while a database migration runs")
	}
	for _, c := range []*cobra.Command{startCmd, restartCmd, rebuildCmd} {
		c.Flags().BoolVar(&opSafeMode, "safe-mode", false, "Start the core app in safe mode")
	}
	for _, c := range []*cobra.Command{stopCmd, rebuildCmd} {
		c.Flags().BoolVarP(&opYes, "yes", "y", false, "Skip confirmation prompt")
	}
	updateCmd.Flags().StringVar(&opVersion, "version", "", "Target version (default: latest)")
	updateCmd.Flags().BoolVar(&opBackup, "backup", false, "Back up the core app before updating")
}

func runOperation(op lifecycle.Operation, call func(*apiclient.Client) (*apiclient.OperationResponse, error)) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}
	if !opBackground {
		// Blocking operations outlive the default client timeout.
		client = client.WithTimeout(0)
	}

	res, err := call(client)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return cmdutil.PrintSuccess(os.Stdout, res, operationMessage(res, opBackground))
}

func operationMessage(res *apiclient.OperationResponse, background bool) string {
	if background {
		return fmt.Sprintf("%s accepted (job %s). Follow it with 'corevisorctl core job %s'", res.Operation, res.JobID, res.JobID)
	}
	return fmt.Sprintf("%s completed, core app is %s", res.Operation, res.State)
}

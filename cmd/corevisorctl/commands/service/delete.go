package service

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
)

var (
	deleteAddon string
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:     "delete <slug>",
	Aliases: []string{"del", "rm"},
	Short:   "Withdraw service data of an add-on",
	Long: `Withdraw the data an add-on published for a discovery service.
Deleting data that does not exist succeeds.

Examples:
  corevisorctl service delete mqtt --addon core_mosquitto
  corevisorctl service delete mysql --addon core_mariadb -f`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteAddon, "addon", "", "Add-on slug (required for admin tokens)")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	slug := args[0]
	label := fmt.Sprintf("Delete %s data", slug)
	if deleteAddon != "" {
		label += " of " + deleteAddon
	}

	return cmdutil.RunWithConfirmation(label+"?", deleteForce, func() error {
		client, err := cmdutil.GetAuthenticatedClient()
		if err != nil {
			return err
		}
		if err := client.DeleteServiceData(slug, deleteAddon); err != nil {
			return fmt.Errorf("failed to delete service data: %w", err)
		}
		return cmdutil.PrintSuccess(os.Stdout, map[string]string{"slug": slug, "addon": deleteAddon},
			fmt.Sprintf("Service data for %s deleted", slug))
	})
}

package service

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/pkg/apiclient"
)

var (
	setAddon string
	setData  string
	setFile  string
)

var setCmd = &cobra.Command{
	Use:   "set <slug>",
	Short: "Publish service data for an add-on",
	Long: `Publish the connection details of an add-on for a discovery service.
The payload replaces any previous data of the same add-on and must match the
service schema (see 'corevisorctl service schema <slug>').

Examples:
  corevisorctl service set mqtt --addon core_mosquitto \
    --data '{"host":"core-mosquitto","port":1883,"ssl":false,"protocol":"3.1.1"}'
  corevisorctl service set mysql --addon core_mariadb --file mysql.json
  cat mqtt.json | corevisorctl service set mqtt --file -`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVar(&setAddon, "addon", "", "Add-on slug (required for admin tokens)")
	setCmd.Flags().StringVar(&setData, "data", "", "Inline JSON payload")
	setCmd.Flags().StringVarP(&setFile, "file", "f", "", "Read the JSON payload from a file ('-' for stdin)")
	setCmd.MarkFlagsMutuallyExclusive("data", "file")
}

func runSet(cmd *cobra.Command, args []string) error {
	payload, err := cmdutil.ReadJSONObject(setData, setFile)
	if err != nil {
		return err
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	if err := client.SetServiceData(args[0], setAddon, payload); err != nil {
		if apiclient.IsValidationError(err) {
			return fmt.Errorf("payload rejected: %w", err)
		}
		return fmt.Errorf("failed to set service data: %w", err)
	}
	return cmdutil.PrintSuccess(os.Stdout, payload, fmt.Sprintf("Service data for %s published", args[0]))
}

package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/pkg/apiclient"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the core app configuration",
	Long: `Ask the core app to validate its own configuration. An invalid
configuration prints the validation log and exits non-zero.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	res, err := client.CheckCoreConfig()
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsConfigInvalid() {
			if apiErr.Detail != "" {
				_, _ = fmt.Fprintln(os.Stderr, apiErr.Detail)
			}
			return fmt.Errorf("core app configuration is invalid")
		}
		return fmt.Errorf("failed to check configuration: %w", err)
	}
	return cmdutil.PrintSuccess(os.Stdout, res, "Core app configuration is valid")
}

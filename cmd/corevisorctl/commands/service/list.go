package service

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovery services",
	RunE:  runList,
}

// ServiceList is a list of services for table rendering.
type ServiceList []apiclient.Service

// Headers implements TableRenderer.
func (sl ServiceList) Headers() []string {
	return []string{"SLUG", "ENABLED", "PROVIDERS", "ACTIVE"}
}

// Rows implements TableRenderer.
func (sl ServiceList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.Slug,
			output.YesNo(s.Enabled),
			output.OrDash(strings.Join(s.Providers, ", ")),
			output.OrDash(strings.Join(s.Active, ", ")),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	services, err := client.ListServices()
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}
	return cmdutil.PrintOutput(os.Stdout, services, len(services) == 0, "No services registered.", ServiceList(services))
}

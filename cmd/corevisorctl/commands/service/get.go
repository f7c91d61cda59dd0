package service

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/pkg/apiclient"
)

var getCmd = &cobra.Command{
	Use:   "get <slug>",
	Short: "Show a discovery service and its data",
	Long: `Show a discovery service and the provider data visible to the token.

Examples:
  corevisorctl service get mqtt
  corevisorctl service get mysql -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	svc, err := client.GetService(args[0])
	if err != nil {
		if apiclient.IsNotFound(err) {
			return fmt.Errorf("service %q does not exist", args[0])
		}
		return fmt.Errorf("failed to get service: %w", err)
	}
	return cmdutil.PrintKeyValues(os.Stdout, svc, servicePairs(svc))
}

// servicePairs lists the service followed by one line per provider payload,
// in provider name order.
func servicePairs(svc *apiclient.Service) [][2]string {
	pairs := [][2]string{
		{"Slug", svc.Slug},
		{"Enabled", output.YesNo(svc.Enabled)},
		{"Providers", output.OrDash(strings.Join(svc.Providers, ", "))},
		{"Active", output.OrDash(strings.Join(svc.Active, ", "))},
	}

	addons := make([]string, 0, len(svc.Data))
	for addon := range svc.Data {
		addons = append(addons, addon)
	}
	slices.Sort(addons)
	for _, addon := range addons {
		payload, err := json.Marshal(svc.Data[addon])
		if err != nil {
			payload = []byte("<unprintable>")
		}
		pairs = append(pairs, [2]string{"Data[" + addon + "]", string(payload)})
	}
	return pairs
}

package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <slug>",
	Short: "Print the JSON schema of a service payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetAuthenticatedClient()
		if err != nil {
			return err
		}

		schema, err := client.ServiceSchema(args[0])
		if err != nil {
			return fmt.Errorf("failed to get schema: %w", err)
		}

		var buf bytes.Buffer
		if err := json.Indent(&buf, schema, "", "  "); err != nil {
			return fmt.Errorf("server returned an invalid schema: %w", err)
		}
		buf.WriteByte('\n')
		_, err = buf.WriteTo(os.Stdout)
		return err
	},
}

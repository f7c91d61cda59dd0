// Package service implements the discovery service subcommands.
package service

import "github.com/spf13/cobra"

// Cmd is the service subcommand.
var Cmd = &cobra.Command{
	Use:     "service",
	Aliases: []string{"services", "svc"},
	Short:   "Manage discovery services",
	Long: `Manage the discovery services (mqtt, mysql) add-ons use to publish
connection details to the core app.

Admin tokens see every provider's data and must name the add-on with
--addon when writing. Add-on tokens only see and write their own data.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(schemaCmd)
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(deleteCmd)
}

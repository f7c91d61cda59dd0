// Package core implements the core app subcommands.
package core

import (
	"github.com/spf13/cobra"
)

// Cmd is the core subcommand.
var Cmd = &cobra.Command{
	Use:   "core",
	Short: "Inspect and operate the core app",
	Long: `Inspect and operate the supervised core app.

Subcommands:
  info      Show version, options and state
  options   Change core app options
  stats     Show resource usage
  check     Validate the core app configuration
  start, stop, restart, rebuild, update
            Run a lifecycle operation
  job       Show a lifecycle job`,
}

func init() {
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(optionsCmd)
	Cmd.AddCommand(statsCmd)
	Cmd.AddCommand(checkCmd)
	Cmd.AddCommand(startCmd)
	Cmd.AddCommand(stopCmd)
	Cmd.AddCommand(restartCmd)
	Cmd.AddCommand(rebuildCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(jobCmd)
}

package core

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show core app information",
	Long: `Show the installed and latest version, host identity, options and
lifecycle state of the core app.

Examples:
  corevisorctl core info
  corevisorctl core info -o json`,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	info, err := client.CoreInfo()
	if err != nil {
		return fmt.Errorf("failed to get core info: %w", err)
	}
	return cmdutil.PrintKeyValues(os.Stdout, info, infoPairs(info))
}

func infoPairs(info *lifecycle.Info) [][2]string {
	version := info.Version
	if info.UpdateAvailable {
		version = fmt.Sprintf("%s (update available: %s)", info.Version, info.VersionLatest)
	}
	pairs := [][2]string{
		{"State", string(info.State)},
		{"Version", output.OrDash(version)},
		{"Latest", output.OrDash(info.VersionLatest)},
		{"Image", output.OrDash(info.Image)},
		{"Machine", output.OrDash(info.Machine)},
		{"Arch", output.OrDash(info.Arch)},
		{"IP address", output.OrDash(info.IPAddress)},
		{"Port", fmt.Sprintf("%d", info.Port)},
		{"SSL", output.YesNo(info.SSL)},
		{"Boot", output.YesNo(info.Boot)},
		{"Watchdog", output.YesNo(info.Watchdog)},
		{"Audio input", output.OrDash(deref(info.AudioInput))},
		{"Audio output", output.OrDash(deref(info.AudioOutput))},
		{"Backups exclude DB", output.YesNo(info.BackupsExcludeDatabase)},
	}
	if info.LastError != "" {
		pairs = append(pairs, [2]string{"Last error", info.LastError})
	}
	if job := info.LastJob; job != nil {
		pairs = append(pairs, [2]string{"Last job", fmt.Sprintf("%s %s (%s)", job.Operation, job.Status, job.ID)})
	}
	return pairs
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

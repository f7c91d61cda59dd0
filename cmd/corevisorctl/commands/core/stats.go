package core

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/pkg/coreapp"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show core app resource usage",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	stats, err := client.CoreStats()
	if err != nil {
		return fmt.Errorf("failed to get core stats: %w", err)
	}
	return cmdutil.PrintKeyValues(os.Stdout, stats, statsPairs(stats))
}

func statsPairs(s *coreapp.Stats) [][2]string {
	return [][2]string{
		{"CPU", fmt.Sprintf("%.1f%%", s.CPUPercent)},
		{"Memory", fmt.Sprintf("%s / %s (%.1f%%)", output.Bytes(s.MemoryUsage), output.Bytes(s.MemoryLimit), s.MemoryPercent)},
		{"Network rx", output.Bytes(s.NetworkRx)},
		{"Network tx", output.Bytes(s.NetworkTx)},
		{"Block read", output.Bytes(s.BlkRead)},
		{"Block write", output.Bytes(s.BlkWrite)},
	}
}

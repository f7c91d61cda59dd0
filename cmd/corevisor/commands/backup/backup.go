// Package backup implements the backup and restore subcommands.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/internal/cli/prompt"
	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/config"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
)

var (
	backupOutput string
	restoreInput string
	restoreForce bool
)

// Cmd is the backup subcommand.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore the control plane state",
	Long: `Export the control plane state (core options, service data and job
history) to a portable JSON file, or restore it. Snapshots can be restored
into any database backend.

Subcommands:
  export   Write a snapshot
  restore  Load a snapshot`,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a snapshot of the control plane state",
	Long: `Write a JSON snapshot of the control plane state.

Examples:
  corevisor backup export --output /var/backups/corevisor.json`,
	RunE: runExport,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Load a snapshot into the control plane database",
	Long: `Load a JSON snapshot into the configured database.

IMPORTANT: stop the supervisor before restoring. Records with the same keys
are replaced; other records are kept.

Examples:
  corevisor backup restore --input /var/backups/corevisor.json`,
	RunE: runRestore,
}

func init() {
	exportCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Output file path (required)")
	_ = exportCmd.MarkFlagRequired("output")

	restoreCmd.Flags().StringVarP(&restoreInput, "input", "i", "", "Snapshot file path (required)")
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "Skip confirmation prompt")
	_ = restoreCmd.MarkFlagRequired("input")

	Cmd.AddCommand(exportCmd)
	Cmd.AddCommand(restoreCmd)
}

func openStore(cmd *cobra.Command) (*config.Config, store.Store, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s, err := store.Open(ctx(cmd), &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open control plane store: %w", err)
	}
	return cfg, s, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	snap, err := store.Export(ctx(cmd), s)
	if err != nil {
		return err
	}
	snap.DatabaseType = cfg.Database.Type

	if err := writeSnapshot(backupOutput, snap); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s (%d service payloads, %d jobs)\n",
		backupOutput, len(snap.ServiceData), len(snap.Jobs))
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	snap, err := readSnapshot(restoreInput)
	if err != nil {
		return err
	}

	ok, err := prompt.ConfirmWithForce(
		fmt.Sprintf("Restore snapshot from %s taken %s?", restoreInput, snap.CreatedAt.Format("2006-01-02 15:04:05")),
		restoreForce)
	if err != nil {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}
	if !ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	_, s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := store.Import(ctx(cmd), s, snap); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restored %d service payloads and %d jobs\n", len(snap.ServiceData), len(snap.Jobs))
	return nil
}

func writeSnapshot(path string, snap *store.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	// Service payloads carry credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func readSnapshot(path string) (*store.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot %s: %w", path, err)
	}
	return &snap, nil
}

func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}

package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/pkg/config"
)

var (
	showOutput        string
	showRevealSecrets bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective corevisor configuration, with defaults applied
and environment overrides resolved. Secrets are masked unless
--reveal-secrets is given.

Examples:
  corevisor config show
  corevisor config show --output json`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
	showCmd.Flags().BoolVar(&showRevealSecrets, "reveal-secrets", false, "Print the JWT secret and database password")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configPath(cmd))
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	if !showRevealSecrets {
		maskSecrets(cfg)
	}

	if format == output.FormatJSON {
		return output.PrintJSON(os.Stdout, cfg)
	}
	return output.PrintYAML(os.Stdout, cfg)
}

func maskSecrets(cfg *config.Config) {
	const masked = "********"
	if cfg.ControlPlane.JWT.Secret != "" {
		cfg.ControlPlane.JWT.Secret = masked
	}
	if cfg.Database.Postgres.Password != "" {
		cfg.Database.Postgres.Password = masked
	}
}

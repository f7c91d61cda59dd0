package config

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the corevisor configuration file.

Checks for syntax errors, missing required fields and invalid values, and
warns about settings that will fail at runtime.

Examples:
  corevisor config validate
  corevisor config validate --config /etc/corevisor/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	warnings := configWarnings(cfg)

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", path)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	_, _ = fmt.Fprintf(out, "  Database type:   %s\n", cfg.Database.Type)
	_, _ = fmt.Fprintf(out, "  API port:        %d\n", cfg.ControlPlane.Port)
	_, _ = fmt.Fprintf(out, "  Core command:    %s\n", cfg.Core.Command)
	_, _ = fmt.Fprintf(out, "  Default image:   %s\n", cfg.Core.DefaultImage)
	_, _ = fmt.Fprintf(out, "  Watchdog:        %s (threshold %d)\n", cfg.Watchdog.Schedule, cfg.Watchdog.Threshold)
	_, _ = fmt.Fprintf(out, "  Add-on registry: %s\n", cfg.Addons.RegistryPath)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}

// configWarnings lists settings that load fine but will not work.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if secret := cfg.ControlPlane.GetJWTSecret(); secret == "" {
		warnings = append(warnings, "JWT secret not configured - the API server will refuse to start")
	} else if len(secret) < 32 {
		warnings = append(warnings, "JWT secret is shorter than 32 characters - the API server will refuse to start")
	}

	if _, err := exec.LookPath(cfg.Core.Command); err != nil {
		warnings = append(warnings, fmt.Sprintf("core command %q not found in PATH", cfg.Core.Command))
	}
	if len(cfg.Core.CheckCommand) == 0 {
		warnings = append(warnings, "core.check_command not set - configuration checks will always pass")
	}
	if len(cfg.Core.UpdateCommand) == 0 {
		warnings = append(warnings, "core.update_command not set - updates will fail")
	}
	if cfg.Core.APIURL == "" {
		warnings = append(warnings, "core.api_url not set - health and migration probes are disabled")
	}
	if cfg.Core.LatestVersion == "" && cfg.Core.VersionURL == "" {
		warnings = append(warnings, "neither core.latest_version nor core.version_url set - latest version is unknown")
	}

	return warnings
}

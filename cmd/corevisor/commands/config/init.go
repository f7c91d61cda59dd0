package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/internal/cli/prompt"
	"github.com/marmos91/corevisor/pkg/config"
	"github.com/marmos91/corevisor/pkg/controlplane/api"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create a corevisor configuration file with a random JWT secret.

By default the file is created at $XDG_CONFIG_HOME/corevisor/config.yaml.
Use --config to choose another path.

Examples:
  corevisor config init
  corevisor config init --interactive
  corevisor config init --config /etc/corevisor/config.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the API port and core app command")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg := config.GetDefaultConfig()
	if initInteractive {
		if err := promptSettings(cfg); err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
	}

	if err := config.WriteNewConfig(cfg, path, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Review the core: section to match how your core app is run")
	_, _ = fmt.Fprintln(out, "  2. List installed add-ons in the add-on registry file")
	_, _ = fmt.Fprintf(out, "  3. Start the supervisor with: corevisor start --config %s\n", path)
	_, _ = fmt.Fprintln(out, "  4. Issue an admin token with: corevisor token --subject admin")
	_, _ = fmt.Fprintln(out, "\nSecurity note:")
	_, _ = fmt.Fprintln(out, "  A random JWT secret was written to the file (mode 0600).")
	_, _ = fmt.Fprintf(out, "  In production prefer the %s environment variable.\n", api.EnvControlPlaneSecret)
	return nil
}

func promptSettings(cfg *config.Config) error {
	port, err := prompt.InputPort("API port", cfg.ControlPlane.Port)
	if err != nil {
		return err
	}
	cfg.ControlPlane.Port = port

	command, err := prompt.Input("Core app command", cfg.Core.Command)
	if err != nil {
		return err
	}
	if command != cfg.Core.Command {
		// The hass defaults do not apply to another command.
		cfg.Core.Command = command
		cfg.Core.Args = nil
		cfg.Core.CheckCommand = nil
		cfg.Core.APIURL = ""
	}

	dbType, err := prompt.Select("Control plane database", []string{
		string(store.DatabaseTypeSQLite),
		string(store.DatabaseTypePostgres),
		string(store.DatabaseTypeBadger),
	})
	if err != nil {
		return err
	}
	cfg.Database = store.Config{Type: store.DatabaseType(dbType)}
	if cfg.Database.Type == store.DatabaseTypePostgres {
		if err := promptPostgres(&cfg.Database.Postgres); err != nil {
			return err
		}
	}
	cfg.Database.ApplyDefaults()
	return nil
}

func promptPostgres(pg *store.PostgresConfig) error {
	var err error
	if pg.Host, err = prompt.Input("PostgreSQL host", "localhost"); err != nil {
		return err
	}
	if pg.Port, err = prompt.InputPort("PostgreSQL port", 5432); err != nil {
		return err
	}
	if pg.Database, err = prompt.Input("PostgreSQL database", "corevisor"); err != nil {
		return err
	}
	if pg.User, err = prompt.Input("PostgreSQL user", "corevisor"); err != nil {
		return err
	}
	pg.Password, err = prompt.Input("PostgreSQL password", "")
	return err
}

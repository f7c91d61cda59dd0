package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/internal/controlplane/api/auth"
	"github.com/marmos91/corevisor/pkg/config"
	"github.com/marmos91/corevisor/pkg/controlplane/api"
)

var (
	tokenRole    string
	tokenSubject string
	tokenTTL     time.Duration
	tokenOutput  string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue API tokens",
	Long: `Issue bearer tokens for the control plane API.

Tokens are signed with the configured JWT secret. Admin tokens can call every
endpoint; add-on tokens can only manage the service data of the add-on named
by --subject.

Examples:
  # Token for an operator
  corevisor token --role admin --subject alice

  # Token for the mosquitto add-on
  corevisor token --role addon --subject core_mosquitto --ttl 720h`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(auth.RoleAdmin), "Token role (admin|addon)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject: the operator or add-on slug (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default: controlplane.jwt.token_duration)")
	tokenCmd.Flags().StringVarP(&tokenOutput, "output", "o", "", "Output format (json|yaml); default prints the bare token")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, args []string) error {
	role, err := auth.ParseRole(tokenRole)
	if err != nil {
		return err
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	svc, err := api.NewJWTService(cfg.ControlPlane)
	if err != nil {
		return err
	}

	token, err := svc.Issue(tokenSubject, role, tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	if tokenOutput == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), token.Token)
		return nil
	}
	format, err := output.ParseFormat(tokenOutput)
	if err != nil {
		return err
	}
	if format == output.FormatYAML {
		return output.PrintYAML(os.Stdout, token)
	}
	return output.PrintJSON(os.Stdout, token)
}

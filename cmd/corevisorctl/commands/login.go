package commands

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/credentials"
	"github.com/marmos91/corevisor/internal/cli/prompt"
	"github.com/marmos91/corevisor/pkg/apiclient"
)

var (
	loginServer  string
	loginToken   string
	loginContext string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a token for a corevisor server",
	Long: `Verify a token against a corevisor server and store it as a context.

Tokens are issued on the supervisor host with 'corevisor token'. On first
login the server URL is required; later logins reuse the current context's
server unless overridden.

Examples:
  # First login
  corevisorctl login --server http://supervisor:8080 --token "$(corevisor token --subject alice)"

  # Prompt for the token
  corevisorctl login --server http://supervisor:8080

  # Save under a custom context name
  corevisorctl login --server http://prod:8080 --name prod`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginServer, "server", "", "Server URL (required on first login)")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Bearer token (prompted when omitted)")
	loginCmd.Flags().StringVar(&loginContext, "name", "", "Context name (default: server host)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	serverURL := loginServer
	if serverURL == "" {
		current, err := store.GetCurrentContext()
		if err != nil || current.ServerURL == "" {
			return fmt.Errorf("no server URL specified and no saved context found\n\n" +
				"Specify server URL:\n" +
				"  corevisorctl login --server http://localhost:8080")
		}
		serverURL = current.ServerURL
	}
	serverURL, host, err := normalizeServerURL(serverURL)
	if err != nil {
		return err
	}

	token := loginToken
	if token == "" {
		if token, err = prompt.Secret("Token"); err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	ctx, err := credentials.NewContext(serverURL, token)
	if err != nil {
		return err
	}

	if err := verifyToken(cmdutil.NewClient(serverURL, token), ctx.Role); err != nil {
		return err
	}

	name := loginContext
	if name == "" {
		name = host
	}
	if err := store.SetContext(name, ctx); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("Logged in to %s as %s (%s)\n", serverURL, ctx.Subject, ctx.Role)
	fmt.Printf("Context: %s\n", name)
	if !ctx.ExpiresAt.IsZero() {
		fmt.Printf("Token expires: %s\n", ctx.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// normalizeServerURL defaults the scheme to http and returns the URL and
// its host.
func normalizeServerURL(raw string) (string, string, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	return strings.TrimSuffix(u.String(), "/"), u.Host, nil
}

// verifyToken calls an endpoint the token's role may use.
func verifyToken(client *apiclient.Client, role string) error {
	var err error
	if role == "addon" {
		_, err = client.ListServices()
	} else {
		_, err = client.CoreInfo()
	}
	switch {
	case err == nil:
		return nil
	case apiclient.IsAuthError(err):
		return fmt.Errorf("token rejected by server: %w", err)
	default:
		return fmt.Errorf("failed to reach server: %w", err)
	}
}

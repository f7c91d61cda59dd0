// Package cmdutil provides shared utilities for corevisorctl commands.
package cmdutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/corevisor/internal/cli/credentials"
	"github.com/marmos91/corevisor/internal/cli/output"
	"github.com/marmos91/corevisor/internal/cli/prompt"
	"github.com/marmos91/corevisor/pkg/apiclient"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
	Verbose   bool
}

// GetAuthenticatedClient returns an API client for the current context.
// The --server and --token flags override the stored values.
func GetAuthenticatedClient() (*apiclient.Client, error) {
	if Flags.ServerURL != "" && Flags.Token != "" {
		return NewClient(Flags.ServerURL, Flags.Token), nil
	}

	store, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	ctx, err := store.GetCurrentContext()
	if err != nil {
		return nil, fmt.Errorf("not logged in. Run 'corevisorctl login' first")
	}

	url := ctx.ServerURL
	if Flags.ServerURL != "" {
		url = Flags.ServerURL
	}
	if url == "" {
		return nil, fmt.Errorf("no server URL configured. Run 'corevisorctl login --server <url>' first")
	}

	tok := ctx.Token
	if Flags.Token != "" {
		tok = Flags.Token
	} else if ctx.IsExpired() {
		return nil, fmt.Errorf("token expired at %s. Issue a new one with 'corevisor token' and run 'corevisorctl login'",
			ctx.ExpiresAt.Format("2006-01-02 15:04"))
	}
	if tok == "" {
		return nil, fmt.Errorf("no token. Run 'corevisorctl login' first")
	}

	return NewClient(url, tok), nil
}

// UserAgent is sent with every request of corevisorctl.
const UserAgent = "corevisorctl"

// NewClient returns a client for serverURL authenticated with token.
func NewClient(serverURL, token string) *apiclient.Client {
	return apiclient.New(serverURL).WithToken(token).WithUserAgent(UserAgent)
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput prints data in the selected format. For table format it
// prints emptyMsg when isEmpty is set and uses table otherwise.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, table output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format == output.FormatTable && isEmpty {
		_, _ = fmt.Fprintln(w, emptyMsg)
		return nil
	}
	return output.Print(w, format, data, table)
}

// PrintKeyValues prints data as JSON or YAML, or pairs as an aligned list
// for table format.
func PrintKeyValues(w io.Writer, data any, pairs [][2]string) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintKeyValues(w, pairs)
	}
}

// PrintSuccess prints msg in table format and data otherwise.
func PrintSuccess(w io.Writer, data any, msg string) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		_, err := fmt.Fprintln(w, msg)
		return err
	}
}

// RunWithConfirmation prompts with label (unless force is set) and runs fn.
func RunWithConfirmation(label string, force bool, fn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(label, force)
	if err != nil {
		return HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}
	return fn()
}

// HandleAbort turns a Ctrl+C at a prompt into a clean exit.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

// ReadJSONObject decodes a JSON object from inline, or from the file named
// by path when inline is empty. A path of "-" reads stdin.
func ReadJSONObject(inline, path string) (map[string]any, error) {
	var data []byte
	switch {
	case inline != "":
		data = []byte(inline)
	case path == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		data = b
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		data = b
	default:
		return nil, fmt.Errorf("a JSON payload is required (--data or --file)")
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return obj, nil
}

package context

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/credentials"
	"github.com/marmos91/corevisor/internal/cli/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured contexts",
	Long: `List the saved contexts. The current context is marked with an
asterisk (*).

Examples:
  corevisorctl context list
  corevisorctl context list -o json`,
	RunE: runContextList,
}

// ContextInfo is a context as printed by list.
type ContextInfo struct {
	Name      string `json:"name" yaml:"name"`
	Current   bool   `json:"current" yaml:"current"`
	ServerURL string `json:"server_url" yaml:"server_url"`
	Subject   string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
	LoggedIn  bool   `json:"logged_in" yaml:"logged_in"`
}

// ContextList renders contexts as a table.
type ContextList []ContextInfo

func (cl ContextList) Headers() []string {
	return []string{"", "NAME", "SERVER", "SUBJECT", "ROLE", "LOGGED IN"}
}

func (cl ContextList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		current := ""
		if c.Current {
			current = "*"
		}
		rows = append(rows, []string{current, c.Name, c.ServerURL, output.OrDash(c.Subject), output.OrDash(c.Role), output.YesNo(c.LoggedIn)})
	}
	return rows
}

func listContexts(store *credentials.Store) ContextList {
	current := store.GetCurrentContextName()
	names := store.ListContexts()

	contexts := make(ContextList, 0, len(names))
	for _, name := range names {
		ctx, err := store.GetContext(name)
		if err != nil {
			continue
		}
		contexts = append(contexts, ContextInfo{
			Name:      name,
			Current:   name == current,
			ServerURL: ctx.ServerURL,
			Subject:   ctx.Subject,
			Role:      ctx.Role,
			LoggedIn:  ctx.Token != "" && !ctx.IsExpired(),
		})
	}
	return contexts
}

func runContextList(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	contexts := listContexts(store)
	return cmdutil.PrintOutput(os.Stdout, contexts, len(contexts) == 0,
		"No contexts configured. Use 'corevisorctl login --server <url>' to create one.", contexts)
}

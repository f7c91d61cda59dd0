package context

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/credentials"
	"github.com/marmos91/corevisor/internal/cli/output"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current context",
	RunE:  runContextCurrent,
}

func runContextCurrent(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	ctx, err := store.GetCurrentContext()
	if errors.Is(err, credentials.ErrNoCurrentContext) {
		return fmt.Errorf("no current context. Run 'corevisorctl login' first")
	}
	if err != nil {
		return err
	}

	name := store.GetCurrentContextName()
	info := ContextInfo{
		Name:      name,
		Current:   true,
		ServerURL: ctx.ServerURL,
		Subject:   ctx.Subject,
		Role:      ctx.Role,
		LoggedIn:  ctx.Token != "" && !ctx.IsExpired(),
	}
	return cmdutil.PrintKeyValues(os.Stdout, info, [][2]string{
		{"Name", name},
		{"Server", ctx.ServerURL},
		{"Subject", output.OrDash(ctx.Subject)},
		{"Role", output.OrDash(ctx.Role)},
		{"Expires", output.Time(ctx.ExpiresAt)},
		{"Logged in", output.YesNo(info.LoggedIn)},
	})
}

package context

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/cmd/corevisorctl/cmdutil"
	"github.com/marmos91/corevisor/internal/cli/credentials"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runContextDelete(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	name := args[0]
	return cmdutil.RunWithConfirmation(fmt.Sprintf("Delete context '%s'?", name), deleteForce, func() error {
		if err := store.DeleteContext(name); err != nil {
			if errors.Is(err, credentials.ErrContextNotFound) {
				return fmt.Errorf("context %q not found", name)
			}
			return err
		}
		fmt.Printf("Context %q deleted\n", name)
		return nil
	})
}

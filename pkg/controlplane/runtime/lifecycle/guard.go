package lifecycle

import (
	"context"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// MigrationChecker reports whether the core app is migrating its database.
type MigrationChecker interface {
	MigrationInProgress(ctx context.Context) (bool, error)
}

// Guard refuses lifecycle operations while the core app runs an offline
// database migration, unless forced.
type Guard struct {
	checker MigrationChecker
}

// NewGuard creates a Guard backed by checker.
func NewGuard(checker MigrationChecker) *Guard {
	return &Guard{checker: checker}
}

// Check returns models.ErrMigrationInProgress when a migration is running
// and force is false. A failed status query does not block the operation.
func (g *Guard) Check(ctx context.Context, force bool) error {
	if force {
		return nil
	}

	migrating, err := g.checker.MigrationInProgress(ctx)
	if err != nil {
		logger.WarnCtx(ctx, "Could not query migration status, assuming none", logger.Err(err))
		return nil
	}
	if migrating {
		return models.ErrMigrationInProgress
	}
	return nil
}

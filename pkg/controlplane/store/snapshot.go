package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// SnapshotVersion is the format version written by Export.
const SnapshotVersion = "1"

// Snapshot is a portable copy of the control plane state. It can be
// restored into any backend.
type Snapshot struct {
	Version      string                `json:"version"`
	CreatedAt    time.Time             `json:"created_at"`
	DatabaseType DatabaseType          `json:"database_type,omitempty"`
	CoreOptions  *models.CoreOptions   `json:"core_options,omitempty"`
	ServiceData  []*models.ServiceData `json:"service_data"`
	Jobs         []*models.Job         `json:"jobs"`
}

// Export reads the whole state of s.
func Export(ctx context.Context, s Store) (*Snapshot, error) {
	snap := &Snapshot{Version: SnapshotVersion, CreatedAt: time.Now().UTC()}

	opts, err := s.GetCoreOptions(ctx)
	switch {
	case err == nil:
		snap.CoreOptions = opts
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("failed to read core options: %w", err)
	}

	if snap.ServiceData, err = s.ListServiceData(ctx); err != nil {
		return nil, fmt.Errorf("failed to read service data: %w", err)
	}
	if snap.Jobs, err = s.ListJobs(ctx, 0); err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}
	return snap, nil
}

// Import writes snap into s. Existing options, payloads and jobs with the
// same keys are replaced; other records are kept.
func Import(ctx context.Context, s Store, snap *Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}

	if snap.CoreOptions != nil {
		if err := s.SaveCoreOptions(ctx, snap.CoreOptions); err != nil {
			return fmt.Errorf("failed to restore core options: %w", err)
		}
	}

	for _, d := range snap.ServiceData {
		if err := s.PutServiceData(ctx, d); err != nil {
			return fmt.Errorf("failed to restore %s data of %s: %w", d.Slug, d.Addon, err)
		}
	}

	for _, job := range snap.Jobs {
		err := s.UpdateJob(ctx, job)
		if errors.Is(err, models.ErrNotFound) {
			err = s.CreateJob(ctx, job)
		}
		if err != nil {
			return fmt.Errorf("failed to restore job %s: %w", job.ID, err)
		}
	}
	return nil
}

// Package store provides the supervisor persistence layer.
//
// It persists the core app options, the per-consumer service payloads and the
// history of supervised lifecycle jobs.
//
// Three backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL (schema managed by golang-migrate)
//   - Badger (embedded key-value store, no SQL engine required)
package store

import (
	"context"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// Store is the persistence interface consumed by the runtime.
//
// Thread Safety: implementations must be safe for concurrent use from multiple
// goroutines.
type Store interface {
	CoreOptionsStore
	ServiceDataStore
	JobStore

	// Healthcheck verifies the backend is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases the backend resources.
	Close() error
}

// CoreOptionsStore persists the single CoreOptions record.
type CoreOptionsStore interface {
	// GetCoreOptions returns the persisted options.
	// Returns models.ErrNotFound if options were never saved.
	GetCoreOptions(ctx context.Context) (*models.CoreOptions, error)

	// SaveCoreOptions creates or replaces the options record.
	SaveCoreOptions(ctx context.Context, opts *models.CoreOptions) error
}

// ServiceDataStore persists service payloads keyed by (slug, addon).
type ServiceDataStore interface {
	// ListServiceData returns every stored payload.
	ListServiceData(ctx context.Context) ([]*models.ServiceData, error)

	// PutServiceData creates or replaces the payload of addon for slug.
	PutServiceData(ctx context.Context, data *models.ServiceData) error

	// DeleteServiceData removes the payload of addon for slug.
	// Deleting a missing entry is not an error.
	DeleteServiceData(ctx context.Context, slug, addon string) error
}

// JobStore persists supervised lifecycle jobs.
type JobStore interface {
	// CreateJob inserts a new job. The ID must be set by the caller.
	CreateJob(ctx context.Context, job *models.Job) error

	// UpdateJob replaces an existing job.
	// Returns models.ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *models.Job) error

	// GetJob returns a job by ID.
	// Returns models.ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id string) (*models.Job, error)

	// ListJobs returns the most recent jobs, newest first. A limit <= 0
	// returns all jobs.
	ListJobs(ctx context.Context, limit int) ([]*models.Job, error)
}

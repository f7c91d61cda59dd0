// Package controlplane assembles the supervisor.
//
// The control plane owns:
//   - Persistent state (core options, service data, job history) via Store
//   - The supervision runtime (lifecycle controller, service directory,
//     watchdog) via Runtime
//   - The REST API via API Server
//
// Usage:
//
//	cp, err := controlplane.New(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cp.Close()
//
//	err = cp.Serve(ctx)
package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/api"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
)

// ControlPlane is the central management component of the supervisor.
type ControlPlane struct {
	store     store.Store
	runtime   *runtime.Runtime
	apiServer *api.Server
}

// Options configures the ControlPlane.
type Options struct {
	// Database configures persistent storage.
	Database *store.Config

	// API configures the REST API server.
	API *api.APIConfig

	// Runtime carries the supervision collaborators. Its Store is filled
	// in from Database.
	Runtime runtime.Deps
}

// New creates a new ControlPlane with the given options.
//
// This initializes:
//  1. Persistent store (SQLite, PostgreSQL or Badger)
//  2. Runtime, which loads options and service data from the store
//  3. API server
//
// Call Close() when done to release resources.
func New(ctx context.Context, opts *Options) (*ControlPlane, error) {
	if opts == nil {
		return nil, errors.New("options cannot be nil")
	}
	if opts.Database == nil {
		return nil, errors.New("database configuration is required")
	}
	if opts.API == nil {
		return nil, errors.New("API configuration is required")
	}

	cpStore, err := store.Open(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	deps := opts.Runtime
	deps.Store = cpStore
	rt, err := runtime.New(ctx, deps)
	if err != nil {
		_ = cpStore.Close()
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}

	apiServer, err := api.NewServer(*opts.API, rt)
	if err != nil {
		_ = cpStore.Close()
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}
	rt.SetAPIServer(apiServer)
	logger.Info("Control plane API server initialized", "port", apiServer.Port())

	return &ControlPlane{
		store:     cpStore,
		runtime:   rt,
		apiServer: apiServer,
	}, nil
}

// Store returns the persistent store.
func (cp *ControlPlane) Store() store.Store {
	return cp.store
}

// Runtime returns the supervision runtime.
func (cp *ControlPlane) Runtime() *runtime.Runtime {
	return cp.runtime
}

// APIServer returns the API server.
func (cp *ControlPlane) APIServer() *api.Server {
	return cp.apiServer
}

// Serve runs the supervisor until ctx is cancelled.
func (cp *ControlPlane) Serve(ctx context.Context) error {
	return cp.runtime.Serve(ctx)
}

// Close releases the store.
func (cp *ControlPlane) Close() error {
	return cp.store.Close()
}

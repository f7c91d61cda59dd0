// Package runtime composes the supervisor: the core app options, the
// lifecycle controller, the service directory and their background
// watchers, and orchestrates startup and graceful shutdown.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/addons"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/options"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/services"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/watchdog"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
	"github.com/marmos91/corevisor/pkg/coreapp"
	"github.com/marmos91/corevisor/pkg/metrics"
)

// DefaultShutdownTimeout bounds how long shutdown waits for an in-flight
// lifecycle operation.
const DefaultShutdownTimeout = 30 * time.Second

// AuxiliaryServer is an interface for auxiliary HTTP servers (API, Metrics)
// managed alongside the supervisor.
type AuxiliaryServer interface {
	// Start starts the HTTP server and blocks until context is cancelled or error.
	Start(ctx context.Context) error
	// Stop initiates graceful shutdown.
	Stop(ctx context.Context) error
	// Port returns the TCP port the server is listening on.
	Port() int
}

// RegistryWatcher is implemented by add-on registries that can report
// uninstalled add-ons.
type RegistryWatcher interface {
	Watch(ctx context.Context, onRemove addons.RemoveFunc) error
}

// Deps are the collaborators of a Runtime.
type Deps struct {
	// Store persists options, service data and jobs. Required.
	Store store.Store

	// Core physically runs the core app. Required.
	Core coreapp.Runtime

	// Registry lists the installed add-ons. Required.
	Registry addons.Registry

	// Services are the registered services. Default: services.Defaults.
	Services []services.Service

	// Options seeds the options store.
	Options options.Config

	// Watchdog configures the health watchdog.
	Watchdog watchdog.Config

	// PollInterval is how often options are reloaded from the database.
	// Zero disables reloading.
	PollInterval time.Duration

	// StopCoreOnShutdown stops the core app when the supervisor exits.
	StopCoreOnShutdown bool

	// ShutdownTimeout bounds graceful shutdown. Default: DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	LifecycleMetrics metrics.LifecycleMetrics
	ServiceMetrics   metrics.ServiceMetrics
}

// Runtime owns the supervisor components.
type Runtime struct {
	store     store.Store
	core      coreapp.Runtime
	registry  addons.Registry
	options   *options.Store
	lifecycle *lifecycle.Controller
	services  *services.Directory
	watchdog  *watchdog.Watchdog

	settingsWatcher    *SettingsWatcher
	stopCoreOnShutdown bool
	shutdownTimeout    time.Duration

	// Auxiliary servers
	apiServer AuxiliaryServer

	// serveOnce ensures Serve() is only called once
	serveOnce sync.Once
	mu        sync.Mutex
	served    bool
}

// New builds the runtime: it loads the persisted options and service data
// and creates the lifecycle controller.
func New(ctx context.Context, deps Deps) (*Runtime, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("runtime: store is required")
	}
	if deps.Core == nil {
		return nil, fmt.Errorf("runtime: core app runtime is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("runtime: add-on registry is required")
	}

	opts, err := options.New(ctx, deps.Store, deps.Options)
	if err != nil {
		return nil, err
	}

	ctrl, err := lifecycle.New(ctx, lifecycle.Deps{
		Runtime: deps.Core,
		Options: opts,
		Jobs:    deps.Store,
		Metrics: deps.LifecycleMetrics,
	})
	if err != nil {
		return nil, err
	}

	svcs := deps.Services
	if len(svcs) == 0 {
		svcs = services.Defaults(deps.Registry)
	}
	dir, err := services.NewDirectory(ctx, deps.Store, deps.ServiceMetrics, svcs...)
	if err != nil {
		return nil, err
	}

	wd, err := watchdog.New(ctrl, deps.Core, opts, deps.Watchdog)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		store:              deps.Store,
		core:               deps.Core,
		registry:           deps.Registry,
		options:            opts,
		lifecycle:          ctrl,
		services:           dir,
		watchdog:           wd,
		stopCoreOnShutdown: deps.StopCoreOnShutdown,
		shutdownTimeout:    deps.ShutdownTimeout,
	}
	if rt.shutdownTimeout <= 0 {
		rt.shutdownTimeout = DefaultShutdownTimeout
	}
	if deps.PollInterval > 0 {
		rt.settingsWatcher = NewSettingsWatcher(opts, deps.PollInterval)
	}
	return rt, nil
}

// Store returns the persistence backend.
func (r *Runtime) Store() store.Store {
	return r.store
}

// Options returns the core app options store.
func (r *Runtime) Options() *options.Store {
	return r.options
}

// Lifecycle returns the lifecycle controller.
func (r *Runtime) Lifecycle() *lifecycle.Controller {
	return r.lifecycle
}

// Services returns the service directory.
func (r *Runtime) Services() *services.Directory {
	return r.services
}

// Registry returns the add-on registry.
func (r *Runtime) Registry() addons.Registry {
	return r.registry
}

// Watchdog returns the health watchdog.
func (r *Runtime) Watchdog() *watchdog.Watchdog {
	return r.watchdog
}

// SetAPIServer sets the REST API HTTP server.
// Must be called before Serve().
func (r *Runtime) SetAPIServer(server AuxiliaryServer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.served {
		panic("cannot set API server after Serve() has been called")
	}
	r.apiServer = server
	if server != nil {
		logger.Info("API server registered", "port", server.Port())
	}
}

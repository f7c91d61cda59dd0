package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
)

// Serve starts all components and blocks until shutdown.
// It boots the core app, starts the watchers and the API server, and shuts
// everything down gracefully once ctx is cancelled or the API server fails.
func (r *Runtime) Serve(ctx context.Context) error {
	err := fmt.Errorf("runtime already served")
	r.serveOnce.Do(func() {
		r.mu.Lock()
		r.served = true
		r.mu.Unlock()
		err = r.serve(ctx)
	})
	return err
}

func (r *Runtime) serve(ctx context.Context) error {
	logger.Info("Starting corevisor runtime")

	// 1. Boot the core app
	r.boot(ctx)

	// 2. Background watchers
	var watchers sync.WaitGroup
	if r.settingsWatcher != nil {
		r.settingsWatcher.Start(ctx)
	}
	if err := r.watchdog.Start(ctx); err != nil {
		logger.Warn("Failed to start watchdog", logger.Err(err))
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if w, ok := r.registry.(RegistryWatcher); ok {
		watchers.Add(1)
		go func() {
			defer watchers.Done()
			if err := w.Watch(watchCtx, r.removeAddon); err != nil {
				logger.Warn("Add-on registry watcher failed", logger.Err(err))
			}
		}()
	}

	// 3. Start API server if configured
	apiErrChan := make(chan error, 1)
	if r.apiServer != nil {
		go func() {
			if err := r.apiServer.Start(ctx); err != nil {
				logger.Error("API server error", logger.Err(err))
				apiErrChan <- err
			}
		}()
	}

	// 4. Wait for shutdown signal or server error
	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", "reason", ctx.Err())
		shutdownErr = ctx.Err()

	case err := <-apiErrChan:
		logger.Error("API server failed - initiating shutdown", logger.Err(err))
		shutdownErr = fmt.Errorf("API server error: %w", err)
	}

	// 5. Graceful shutdown
	stopWatch()
	watchers.Wait()
	r.shutdown()

	logger.Info("corevisor runtime stopped")
	return shutdownErr
}

// boot starts the core app when the boot option is set and it is not
// already running.
func (r *Runtime) boot(ctx context.Context) {
	if !r.options.Get().Boot {
		logger.Info("Core app boot disabled")
		return
	}
	if r.core.Running(ctx) {
		logger.Info("Core app already running")
		return
	}

	logger.Info("Booting core app")
	if _, err := r.lifecycle.Submit(ctx, lifecycle.Request{Operation: lifecycle.OpStart}); err != nil {
		logger.Warn("Failed to boot core app", logger.Err(err))
	}
}

// removeAddon drops the service data of an uninstalled add-on.
func (r *Runtime) removeAddon(ctx context.Context, addon string) {
	if err := r.services.RemoveAddon(ctx, addon); err != nil {
		logger.Warn("Failed to remove service data of add-on", logger.KeyAddon, addon, logger.Err(err))
	}
}

// shutdown performs graceful shutdown of all components.
func (r *Runtime) shutdown() {
	// Stop watchers first (no more polling or restarts)
	if r.settingsWatcher != nil {
		logger.Debug("Stopping settings watcher")
		r.settingsWatcher.Stop()
	}
	r.watchdog.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), r.shutdownTimeout)
	defer cancel()

	// Let an in-flight operation finish
	if err := r.lifecycle.Wait(ctx); err != nil {
		logger.Warn("Core operation still running at shutdown", logger.Err(err))
	}

	if r.stopCoreOnShutdown && r.core.Running(ctx) {
		logger.Info("Stopping core app")
		if err := r.lifecycle.Stop(ctx, true); err != nil {
			logger.Warn("Failed to stop core app", logger.Err(err))
		}
	}

	// Stop API server
	if r.apiServer != nil {
		logger.Debug("Stopping API server")
		apiCtx, apiCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer apiCancel()
		if err := r.apiServer.Stop(apiCtx); err != nil {
			logger.Error("API server shutdown error", logger.Err(err))
		}
	}
}

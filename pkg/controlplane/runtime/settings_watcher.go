package runtime

import (
	"context"
	"time"

	"github.com/marmos91/corevisor/internal/logger"
)

// DefaultPollInterval is the default interval for polling the DB for option changes.
const DefaultPollInterval = 10 * time.Second

// OptionsReloader reloads options persisted by someone else.
type OptionsReloader interface {
	Reload(ctx context.Context) (bool, error)
}

// SettingsWatcher polls the database for core options written by another
// supervisor sharing it and swaps them into the options store.
//
// Only rows saved after the in-memory state are picked up, so local writes
// never bounce back.
type SettingsWatcher struct {
	options      OptionsReloader
	pollInterval time.Duration
	stopCh       chan struct{}
	stopped      chan struct{} // closed when polling goroutine exits
}

// NewSettingsWatcher creates a SettingsWatcher. If pollInterval is 0,
// DefaultPollInterval is used.
func NewSettingsWatcher(options OptionsReloader, pollInterval time.Duration) *SettingsWatcher {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &SettingsWatcher{
		options:      options,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// Start begins the background polling goroutine. It runs until Stop is
// called or ctx is cancelled.
func (w *SettingsWatcher) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		logger.Debug("Settings watcher started", "poll_interval", w.pollInterval)

		for {
			select {
			case <-ctx.Done():
				logger.Debug("Settings watcher stopping (context cancelled)")
				return
			case <-w.stopCh:
				logger.Debug("Settings watcher stopping (stop signal)")
				return
			case <-ticker.C:
				w.poll(ctx)
			}
		}
	}()
}

// Stop signals the polling goroutine to stop and waits for it to exit.
// It must only be called after Start.
func (w *SettingsWatcher) Stop() {
	select {
	case <-w.stopCh:
		return
	default:
		close(w.stopCh)
	}
	<-w.stopped
	logger.Debug("Settings watcher stopped")
}

func (w *SettingsWatcher) poll(ctx context.Context) {
	changed, err := w.options.Reload(ctx)
	if err != nil {
		logger.Warn("Settings watcher: failed to reload core options", logger.Err(err))
		return
	}
	if changed {
		logger.Info("Core options reloaded from database")
	}
}

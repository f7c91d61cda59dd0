// Package watchdog restarts the core app when it stops answering while the
// lifecycle controller believes it is running.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
)

// DefaultSchedule probes the core app every 30 seconds.
const DefaultSchedule = "@every 30s"

// Controller is the part of the lifecycle controller the watchdog drives.
type Controller interface {
	State() lifecycle.State
	Crashed() bool
	Restart(ctx context.Context, safeMode, force bool) error
}

// Prober reports whether the core app answers.
type Prober interface {
	Healthy(ctx context.Context) bool
}

// Options reports whether the watchdog option is enabled.
type Options interface {
	Get() models.CoreOptions
}

// Config configures the watchdog.
type Config struct {
	// Schedule is a robfig/cron spec. Default: DefaultSchedule.
	Schedule string `mapstructure:"schedule" yaml:"schedule"`

	// Threshold is the number of consecutive failed probes that trigger a
	// restart. Default: 1.
	Threshold int `mapstructure:"threshold" yaml:"threshold" validate:"min=0"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.Threshold <= 0 {
		c.Threshold = 1
	}
}

// Watchdog periodically probes the core app.
type Watchdog struct {
	ctrl   Controller
	probe  Prober
	opts   Options
	cfg    Config
	parser cron.Parser

	mu       sync.Mutex
	cron     *cron.Cron
	failures int
}

// New creates a Watchdog. The schedule is validated immediately.
func New(ctrl Controller, probe Prober, opts Options, cfg Config) (*Watchdog, error) {
	cfg.ApplyDefaults()
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid watchdog schedule %q: %w", cfg.Schedule, err)
	}
	return &Watchdog{ctrl: ctrl, probe: probe, opts: opts, cfg: cfg, parser: parser}, nil
}

// Start schedules the probe. Probes never overlap; a probe that is still
// running when the next one is due causes that one to be skipped.
func (w *Watchdog) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return nil
	}

	l := cronLogger{}
	c := cron.New(
		cron.WithParser(w.parser),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	if _, err := c.AddFunc(w.cfg.Schedule, func() { w.Tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule watchdog: %w", err)
	}
	c.Start()
	w.cron = c

	logger.Info("Watchdog started", "schedule", w.cfg.Schedule)
	return nil
}

// Stop unschedules the probe and waits for a running probe to return.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	logger.Debug("Watchdog stopped")
}

// Tick runs one probe and reports whether a restart was issued.
func (w *Watchdog) Tick(ctx context.Context) bool {
	if !w.opts.Get().Watchdog {
		w.reset()
		return false
	}
	switch w.ctrl.State() {
	case lifecycle.StateRunning:
	case lifecycle.StateError:
		if w.ctrl.Crashed() {
			logger.Warn("Core app crashed, restarting")
			w.reset()
			return w.restart(ctx)
		}
		w.reset()
		return false
	default:
		w.reset()
		return false
	}
	if w.probe.Healthy(ctx) {
		w.reset()
		return false
	}

	w.mu.Lock()
	w.failures++
	failures := w.failures
	w.mu.Unlock()

	if failures < w.cfg.Threshold {
		logger.Warn("Core app is not answering", logger.KeyCount, failures)
		return false
	}

	logger.Warn("Core app is not answering, restarting", logger.KeyCount, failures)
	w.reset()
	return w.restart(ctx)
}

func (w *Watchdog) restart(ctx context.Context) bool {
	err := w.ctrl.Restart(ctx, false, false)
	switch {
	case err == nil:
		logger.Info("Watchdog restarted the core app")
	case errors.Is(err, models.ErrMigrationInProgress), errors.Is(err, models.ErrOperationInProgress):
		logger.Info("Watchdog restart skipped", logger.Err(err))
	default:
		logger.Error("Watchdog restart failed", logger.Err(err))
	}
	return true
}

func (w *Watchdog) reset() {
	w.mu.Lock()
	w.failures = 0
	w.mu.Unlock()
}

// cronLogger routes robfig/cron logs to the global logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: "+msg, append(keysAndValues, logger.KeyError, err)...)
}

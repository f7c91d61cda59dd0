// Package process implements coreapp.Runtime by running the core app as a
// child process of the supervisor.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/pkg/coreapp"
)

// Runtime runs the core app as a child process.
//
// The child is not bound to any request context: once started it lives until
// Stop is called or it exits on its own.
type Runtime struct {
	cfg    Config
	client *http.Client

	// opMu serializes state-changing operations; mu guards current and onExit.
	opMu    sync.Mutex
	mu      sync.Mutex
	current *child
	onExit  func(error)
}

// child is one run of the core app. err is written before done is closed.
// stopping is guarded by Runtime.mu.
type child struct {
	cmd      *exec.Cmd
	done     chan struct{}
	err      error
	stopping bool
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// New validates cfg and returns a stopped Runtime.
func New(cfg Config) (*Runtime, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runtime{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

// Start launches the core app. Starting an already running app is a no-op.
func (r *Runtime) Start(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.startLocked(false)
}

// Stop terminates the core app: SIGTERM first, then SIGKILL once StopTimeout
// elapses or ctx is done. Stopping a stopped app is a no-op.
func (r *Runtime) Stop(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.stopLocked(ctx)
}

// Restart stops the core app if it is running and starts it again.
func (r *Runtime) Restart(ctx context.Context, safeMode bool) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if err := r.stopLocked(ctx); err != nil {
		return err
	}
	return r.startLocked(safeMode)
}

// Rebuild stops the core app, runs the rebuild command and starts it again.
func (r *Runtime) Rebuild(ctx context.Context, safeMode bool) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if err := r.stopLocked(ctx); err != nil {
		return err
	}
	if len(r.cfg.RebuildCommand) > 0 {
		if out, err := r.run(ctx, r.cfg.RebuildCommand, ""); err != nil {
			return fmt.Errorf("rebuild command failed: %w: %s", err, strings.TrimSpace(string(out)))
		}
	}
	return r.startLocked(safeMode)
}

// Update optionally takes a backup, installs version and restarts the core
// app if it was running.
func (r *Runtime) Update(ctx context.Context, version string, backup bool) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if len(r.cfg.UpdateCommand) == 0 {
		return fmt.Errorf("no update command configured")
	}

	if backup && len(r.cfg.BackupCommand) > 0 {
		logger.Info("Taking backup before update", logger.KeyVersion, version)
		if out, err := r.run(ctx, r.cfg.BackupCommand, version); err != nil {
			return fmt.Errorf("backup command failed: %w: %s", err, strings.TrimSpace(string(out)))
		}
	}

	if out, err := r.run(ctx, r.cfg.UpdateCommand, version); err != nil {
		return fmt.Errorf("update command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	if r.alive() == nil {
		return nil
	}
	if err := r.stopLocked(ctx); err != nil {
		return err
	}
	return r.startLocked(false)
}

// CheckConfig runs the check command. Without a check command every
// configuration is considered valid.
func (r *Runtime) CheckConfig(ctx context.Context) (coreapp.CheckResult, error) {
	if len(r.cfg.CheckCommand) == 0 {
		return coreapp.CheckResult{Valid: true}, nil
	}

	out, err := r.run(ctx, r.cfg.CheckCommand, "")
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return coreapp.CheckResult{Valid: true, Log: string(out)}, nil
	case errors.As(err, &exitErr):
		return coreapp.CheckResult{Valid: false, Log: string(out)}, nil
	default:
		return coreapp.CheckResult{}, fmt.Errorf("check command failed: %w", err)
	}
}

// Running reports whether the child process is alive.
func (r *Runtime) Running(ctx context.Context) bool {
	return r.alive() != nil
}

// Healthy reports whether the child is alive and, when an API URL is
// configured, answering its state endpoint.
func (r *Runtime) Healthy(ctx context.Context) bool {
	if !r.Running(ctx) {
		return false
	}
	if r.cfg.APIURL == "" {
		return true
	}
	state, err := r.apiState(ctx)
	if err != nil {
		logger.DebugCtx(ctx, "Core app API probe failed", logger.KeyError, err)
		return false
	}
	return state.State != ""
}

// OnExit registers fn to be called when the core app exits without being
// stopped by the runtime.
func (r *Runtime) OnExit(fn func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExit = fn
}

// alive returns the running child, or nil.
func (r *Runtime) alive() *child {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.exited() {
		return nil
	}
	return r.current
}

// startLocked requires opMu.
func (r *Runtime) startLocked(safeMode bool) error {
	if r.alive() != nil {
		return nil
	}

	args := append([]string(nil), r.cfg.Args...)
	if safeMode {
		args = append(args, r.cfg.SafeModeArg)
	}

	cmd := exec.Command(r.cfg.Command, args...)
	cmd.Dir = r.cfg.WorkDir
	cmd.Env = append(os.Environ(), r.cfg.Env...)
	cmd.Stdout = newLineLogger("stdout")
	cmd.Stderr = newLineLogger("stderr")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start core app: %w", err)
	}

	c := &child{cmd: cmd, done: make(chan struct{})}
	r.mu.Lock()
	r.current = c
	r.mu.Unlock()

	pid := cmd.Process.Pid
	logger.Info("Core app started", logger.KeyPID, pid, logger.KeySafeMode, safeMode)

	go func() {
		c.err = cmd.Wait()
		close(c.done)

		r.mu.Lock()
		notify := r.onExit
		if c.stopping {
			notify = nil
		}
		r.mu.Unlock()

		if notify == nil {
			logger.Info("Core app exited", logger.KeyPID, pid, logger.Err(c.err))
			return
		}
		logger.Warn("Core app exited unexpectedly", logger.KeyPID, pid, logger.Err(c.err))
		notify(c.err)
	}()

	return nil
}

// stopLocked requires opMu.
func (r *Runtime) stopLocked(ctx context.Context) error {
	c := r.alive()
	if c == nil {
		return nil
	}
	proc := c.cmd.Process

	r.mu.Lock()
	c.stopping = true
	r.mu.Unlock()

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		logger.Debug("SIGTERM failed, killing core app", logger.Err(err))
		_ = proc.Kill()
	}

	timer := time.NewTimer(r.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return nil
	case <-timer.C:
		logger.Warn("Core app did not stop in time, killing", logger.KeyPID, proc.Pid)
	case <-ctx.Done():
		logger.Warn("Stop interrupted, killing core app", logger.KeyPID, proc.Pid)
	}

	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill core app: %w", err)
	}
	<-c.done
	return nil
}

// run executes argv to completion and returns its combined output.
func (r *Runtime) run(ctx context.Context, argv []string, version string) ([]byte, error) {
	args := make([]string, len(argv))
	for i, a := range argv {
		args[i] = strings.ReplaceAll(a, VersionPlaceholder, version)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.cfg.WorkDir
	cmd.Env = append(os.Environ(), r.cfg.Env...)
	if version != "" {
		cmd.Env = append(cmd.Env, "COREVISOR_VERSION="+version)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	logger.Debug("Running command", "argv", strings.Join(args, " "))
	err := cmd.Run()
	return buf.Bytes(), err
}

// pid returns the child pid, or 0 when the core app is not running.
func (r *Runtime) pid() int {
	c := r.alive()
	if c == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

var (
	_ coreapp.Runtime      = (*Runtime)(nil)
	_ coreapp.ExitNotifier = (*Runtime)(nil)
)

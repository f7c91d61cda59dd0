package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/internal/telemetry"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/options"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
	"github.com/marmos91/corevisor/pkg/coreapp"
	"github.com/marmos91/corevisor/pkg/metrics"
)

var versionPattern = regexp.MustCompile(`^[\w.+-]+$`)

// Deps are the collaborators of a Controller.
type Deps struct {
	// Runtime executes operations on the core app. Required.
	Runtime coreapp.Runtime

	// Options is the core app ConfigStore. Required.
	Options *options.Store

	// Jobs records the operation history. Optional.
	Jobs store.JobStore

	// Metrics observes the controller. Optional.
	Metrics metrics.LifecycleMetrics
}

// Request describes a state-changing operation.
type Request struct {
	Operation Operation `json:"operation"`

	// SafeMode starts the core app in safe mode (restart, rebuild).
	SafeMode bool `json:"safe_mode,omitempty"`

	// Force skips the migration guard (stop, restart, rebuild).
	Force bool `json:"force,omitempty"`

	// Backup takes a backup before updating (update).
	Backup bool `json:"backup,omitempty"`

	// Version is the target of an update; defaults to the latest version.
	Version string `json:"version,omitempty"`
}

// Info is a read-only snapshot of the core app.
type Info struct {
	Version                string      `json:"version"`
	VersionLatest          string      `json:"version_latest"`
	UpdateAvailable        bool        `json:"update_available"`
	Machine                string      `json:"machine"`
	IPAddress              string      `json:"ip_address"`
	Arch                   string      `json:"arch"`
	Image                  string      `json:"image"`
	Boot                   bool        `json:"boot"`
	Port                   int         `json:"port"`
	SSL                    bool        `json:"ssl"`
	Watchdog               bool        `json:"watchdog"`
	AudioInput             *string     `json:"audio_input"`
	AudioOutput            *string     `json:"audio_output"`
	BackupsExcludeDatabase bool        `json:"backups_exclude_database"`
	State                  State       `json:"state"`
	LastError              string      `json:"last_error,omitempty"`
	LastJob                *models.Job `json:"last_job,omitempty"`
}

// Controller is the lifecycle controller of the core app.
//
// Thread Safety: All methods are safe for concurrent use. At most one
// state-changing operation executes at a time.
type Controller struct {
	rt      coreapp.Runtime
	opts    *options.Store
	jobs    store.JobStore
	metrics metrics.LifecycleMetrics
	guard   *Guard

	mu      sync.Mutex
	state   State
	lastErr error
	lastJob *models.Job
	crashed bool

	tasks sync.WaitGroup
}

// New creates a Controller. The initial state is running when the core app
// is already alive and stopped otherwise.
func New(ctx context.Context, deps Deps) (*Controller, error) {
	if deps.Runtime == nil {
		return nil, fmt.Errorf("lifecycle: runtime is required")
	}
	if deps.Options == nil {
		return nil, fmt.Errorf("lifecycle: options store is required")
	}

	c := &Controller{
		rt:      deps.Runtime,
		opts:    deps.Options,
		jobs:    deps.Jobs,
		metrics: deps.Metrics,
		guard:   NewGuard(deps.Runtime),
		state:   StateStopped,
	}
	if deps.Runtime.Running(ctx) {
		c.state = StateRunning
	}

	if c.jobs != nil {
		if recent, err := c.jobs.ListJobs(ctx, 1); err != nil {
			logger.Warn("Failed to load last job", logger.Err(err))
		} else if len(recent) > 0 {
			c.lastJob = recent[0]
		}
	}

	if n, ok := deps.Runtime.(coreapp.ExitNotifier); ok {
		n.OnExit(c.coreExited)
	}

	c.publishState(c.state)
	return c, nil
}

// coreExited moves a running controller to stopped after a clean exit of
// the core app, or to error otherwise. Exits observed while an operation
// executes are left to that operation.
func (c *Controller) coreExited(exitErr error) {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	if exitErr != nil {
		c.state = StateError
		c.lastErr = fmt.Errorf("core app exited: %w", exitErr)
		c.crashed = true
	} else {
		c.state = StateStopped
	}
	state := c.state
	c.mu.Unlock()

	logger.Warn("Core app is no longer running", logger.KeyState, string(state), logger.Err(exitErr))
	c.publishState(state)
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Crashed reports whether the error state was caused by the core app
// exiting on its own. It is cleared when the next operation is accepted.
func (c *Controller) Crashed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crashed
}

// LastError returns the failure that moved the controller into the error
// state, or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastJob returns a copy of the most recent job, or nil.
func (c *Controller) LastJob() *models.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyJob(c.lastJob)
}

// Job returns a job by id from the history.
func (c *Controller) Job(ctx context.Context, id string) (*models.Job, error) {
	c.mu.Lock()
	if c.lastJob != nil && c.lastJob.ID == id {
		j := copyJob(c.lastJob)
		c.mu.Unlock()
		return j, nil
	}
	c.mu.Unlock()

	if c.jobs == nil {
		return nil, models.ErrNotFound
	}
	return c.jobs.GetJob(ctx, id)
}

// Info returns a snapshot of versions, identity, options and state.
func (c *Controller) Info(ctx context.Context) Info {
	o := c.opts.Get()
	id := c.rt.Identity(ctx)

	latest, err := c.rt.LatestVersion(ctx)
	if err != nil {
		logger.DebugCtx(ctx, "Latest version unavailable", logger.Err(err))
		latest = ""
	}

	info := Info{
		Version:                o.Version,
		VersionLatest:          latest,
		UpdateAvailable:        updateAvailable(o.Version, latest),
		Machine:                id.Machine,
		IPAddress:              id.IPAddress,
		Arch:                   id.Arch,
		Image:                  c.opts.Image(),
		Boot:                   o.Boot,
		Port:                   o.Port,
		SSL:                    o.SSL,
		Watchdog:               o.Watchdog,
		AudioInput:             o.AudioInput,
		AudioOutput:            o.AudioOutput,
		BackupsExcludeDatabase: o.BackupsExcludeDatabase,
	}

	c.mu.Lock()
	info.State = c.state
	if c.lastErr != nil {
		info.LastError = c.lastErr.Error()
	}
	info.LastJob = copyJob(c.lastJob)
	c.mu.Unlock()

	return info
}

// SetOptions merges p into the core app options.
func (c *Controller) SetOptions(ctx context.Context, p options.Partial) (models.CoreOptions, error) {
	return c.opts.Apply(ctx, p)
}

// Stats returns a fresh resource snapshot of the core app.
func (c *Controller) Stats(ctx context.Context) (*coreapp.Stats, error) {
	stats, err := c.rt.Stats(ctx)
	if err != nil {
		if errors.Is(err, models.ErrStatsUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStatsUnavailable, err)
	}
	return stats, nil
}

// CheckConfig asks the core app to validate its configuration. An invalid
// configuration is reported as *models.ConfigInvalidError carrying the log.
func (c *Controller) CheckConfig(ctx context.Context) error {
	ctx, span := telemetry.StartLifecycleSpan(ctx, "check")
	defer span.End()

	res, err := c.rt.CheckConfig(ctx)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return &models.OperationError{Operation: "check", Err: err}
	}
	if !res.Valid {
		logger.WarnCtx(ctx, "Core configuration is invalid")
		return &models.ConfigInvalidError{Details: res.Log}
	}
	return nil
}

// Start starts the core app and waits for the outcome. It is never guarded.
func (c *Controller) Start(ctx context.Context) error {
	return c.submitAndWait(ctx, Request{Operation: OpStart})
}

// Stop stops the core app and waits for the outcome.
func (c *Controller) Stop(ctx context.Context, force bool) error {
	return c.submitAndWait(ctx, Request{Operation: OpStop, Force: force})
}

// Restart restarts the core app and waits for the outcome.
func (c *Controller) Restart(ctx context.Context, safeMode, force bool) error {
	return c.submitAndWait(ctx, Request{Operation: OpRestart, SafeMode: safeMode, Force: force})
}

// Rebuild rebuilds the core app and waits for the outcome.
func (c *Controller) Rebuild(ctx context.Context, safeMode, force bool) error {
	return c.submitAndWait(ctx, Request{Operation: OpRebuild, SafeMode: safeMode, Force: force})
}

// Update installs version (the latest when empty) and waits for the
// outcome. Updates are never forced past the migration guard.
func (c *Controller) Update(ctx context.Context, version string, backup bool) error {
	return c.submitAndWait(ctx, Request{Operation: OpUpdate, Version: version, Backup: backup})
}

func (c *Controller) submitAndWait(ctx context.Context, req Request) error {
	task, err := c.Submit(ctx, req)
	if err != nil {
		return err
	}
	return task.Wait(ctx)
}

// Submit admits req and starts it as a supervised task.
//
// Admission checks run synchronously in this order: request validation, the
// migration guard (skipped for start, never forced for update) and the
// transient state check. A rejected request leaves the state unchanged.
// Once accepted the operation runs on a context detached from ctx, so the
// caller may stop waiting without affecting it.
func (c *Controller) Submit(ctx context.Context, req Request) (*Task, error) {
	if err := c.prepare(ctx, &req); err != nil {
		return nil, err
	}

	if req.Operation != OpStart {
		force := req.Force && req.Operation != OpUpdate
		if err := c.guard.Check(ctx, force); err != nil {
			c.reject(ctx, req.Operation, "migration", err)
			return nil, err
		}
	}

	c.mu.Lock()
	if c.state.Transient() {
		current := c.state
		c.mu.Unlock()
		err := fmt.Errorf("%w: core is %s", models.ErrOperationInProgress, current)
		c.reject(ctx, req.Operation, "in_progress", err)
		return nil, err
	}

	from := c.state
	c.state = req.Operation.transient()
	c.crashed = false
	job := &models.Job{
		ID:        uuid.NewString(),
		Operation: string(req.Operation),
		Status:    models.JobRunning,
		Params:    req.params(),
		StartedAt: time.Now(),
	}
	c.lastJob = copyJob(job)
	c.tasks.Add(1)
	c.mu.Unlock()

	c.publishState(req.Operation.transient())

	detached := context.WithoutCancel(ctx)
	if c.jobs != nil {
		if err := c.jobs.CreateJob(detached, copyJob(job)); err != nil {
			logger.WarnCtx(ctx, "Failed to record job", logger.JobID(job.ID), logger.Err(err))
		}
	}

	task := newTask(job.ID, req.Operation)
	go c.run(detached, req, from, job, task)
	return task, nil
}

// Wait blocks until every accepted operation has finished or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// prepare validates req and resolves the update target version.
func (c *Controller) prepare(ctx context.Context, req *Request) error {
	if !req.Operation.Valid() {
		return models.NewValidationError("operation", fmt.Sprintf("unknown operation %q", req.Operation))
	}
	if req.Operation != OpUpdate {
		return nil
	}

	if req.Version == "" {
		latest, err := c.rt.LatestVersion(ctx)
		if err != nil || latest == "" {
			return models.NewValidationError("version", "no version given and the latest version is unknown")
		}
		req.Version = latest
	}
	if !versionPattern.MatchString(req.Version) {
		return models.NewValidationError("version", fmt.Sprintf("%q is not a valid version", req.Version))
	}
	return nil
}

func (c *Controller) reject(ctx context.Context, op Operation, reason string, err error) {
	logger.InfoCtx(ctx, "Core operation rejected", logger.Operation(string(op)), "reason", reason, logger.Err(err))
	if c.metrics != nil {
		c.metrics.RecordRejection(string(op), reason)
	}
}

// run executes an accepted operation and records its outcome.
func (c *Controller) run(ctx context.Context, req Request, from State, job *models.Job, task *Task) {
	defer c.tasks.Done()

	op := req.Operation
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithJob(job.ID, string(op)))
	ctx, span := telemetry.StartLifecycleSpan(ctx, string(op),
		telemetry.JobID(job.ID),
		telemetry.SafeMode(req.SafeMode),
		telemetry.Force(req.Force),
		telemetry.Version(req.Version),
		telemetry.Backup(req.Backup),
		telemetry.State(string(from)),
	)
	defer span.End()

	logger.InfoCtx(ctx, "Core operation started", logger.KeyFromState, string(from))

	start := time.Now()
	wasRunning := c.rt.Running(ctx)
	err := c.execute(ctx, req)
	duration := time.Since(start)

	finished := time.Now()
	c.mu.Lock()
	if err != nil {
		err = &models.OperationError{Operation: string(op), Err: err}
		c.state = StateError
		c.lastErr = err
		job.Status = models.JobFailed
		job.Error = err.Error()
	} else {
		c.state = successState(op, from, wasRunning)
		if c.state != StateError {
			c.lastErr = nil
		}
		job.Status = models.JobSucceeded
	}
	job.FinishedAt = &finished
	state := c.state
	c.lastJob = copyJob(job)
	c.mu.Unlock()

	c.publishState(state)
	ms := float64(duration.Microseconds()) / 1000
	outcome := "success"
	if err != nil {
		outcome = "failure"
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "Core operation failed", logger.State(string(state)), logger.DurationMs(ms), logger.Err(err))
	} else {
		logger.InfoCtx(ctx, "Core operation finished", logger.State(string(state)), logger.DurationMs(ms))
	}
	if c.metrics != nil {
		c.metrics.RecordOperation(string(op), outcome, duration)
	}

	if c.jobs != nil {
		if jerr := c.jobs.UpdateJob(ctx, copyJob(job)); jerr != nil {
			logger.WarnCtx(ctx, "Failed to record job outcome", logger.Err(jerr))
		}
	}

	task.finish(err)
}

func (c *Controller) execute(ctx context.Context, req Request) error {
	switch req.Operation {
	case OpStart:
		return c.rt.Start(ctx)
	case OpStop:
		return c.rt.Stop(ctx)
	case OpRestart:
		return c.rt.Restart(ctx, req.SafeMode)
	case OpRebuild:
		return c.rt.Rebuild(ctx, req.SafeMode)
	case OpUpdate:
		if req.Version == c.opts.Version() {
			logger.WarnCtx(ctx, "Version is already installed", logger.KeyVersion, req.Version)
			return nil
		}
		if err := c.rt.Update(ctx, req.Version, req.Backup); err != nil {
			return err
		}
		if err := c.opts.SetVersion(ctx, req.Version); err != nil {
			return fmt.Errorf("failed to record installed version: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown operation %q", req.Operation)
	}
}

func (c *Controller) publishState(s State) {
	if c.metrics != nil {
		c.metrics.SetState(string(s))
	}
}

// params encodes the operation arguments for the job record.
func (r Request) params() string {
	data, err := json.Marshal(struct {
		SafeMode bool   `json:"safe_mode,omitempty"`
		Force    bool   `json:"force,omitempty"`
		Backup   bool   `json:"backup,omitempty"`
		Version  string `json:"version,omitempty"`
	}{r.SafeMode, r.Force, r.Backup, r.Version})
	if err != nil {
		return ""
	}
	return string(data)
}

// updateAvailable compares versions semantically when both parse, and by
// inequality otherwise.
func updateAvailable(current, latest string) bool {
	if current == "" || latest == "" {
		return false
	}
	cv, cerr := semver.NewVersion(current)
	lv, lerr := semver.NewVersion(latest)
	if cerr == nil && lerr == nil {
		return lv.GreaterThan(cv)
	}
	return current != latest
}

func copyJob(j *models.Job) *models.Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

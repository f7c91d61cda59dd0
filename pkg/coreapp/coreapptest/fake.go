// Package coreapptest provides an in-memory coreapp.Runtime for tests.
package coreapptest

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
	"github.com/marmos91/corevisor/pkg/coreapp"
)

// Call records one invocation of a state-changing runtime method.
type Call struct {
	Op       string
	SafeMode bool
	Version  string
	Backup   bool
}

// Fake is a scriptable coreapp.Runtime. Operations honor context
// cancellation while blocked, which lets tests observe whether the caller's
// cancellation reached the runtime.
type Fake struct {
	mu        sync.Mutex
	running   bool
	healthy   bool
	migration bool
	stats     *coreapp.Stats
	check     coreapp.CheckResult
	latest    string
	identity  coreapp.Identity
	failures  map[string]error
	gate      chan struct{}
	calls     []Call
	started   chan string
	onExit    func(error)
}

// New returns a stopped Fake whose operations succeed immediately.
func New() *Fake {
	return &Fake{
		healthy:  true,
		check:    coreapp.CheckResult{Valid: true},
		latest:   "2024.6.1",
		identity: coreapp.Identity{Machine: "qemux86-64", Arch: "amd64", IPAddress: "172.30.32.1"},
		failures: map[string]error{},
		started:  make(chan string, 64),
		stats: &coreapp.Stats{
			CPUPercent: 1.5, MemoryUsage: 256 << 20, MemoryLimit: 1 << 30, MemoryPercent: 25,
		},
	}
}

// Block makes every subsequent operation wait until release is called.
func (f *Fake) Block() (release func()) {
	f.mu.Lock()
	gate := make(chan struct{})
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gate == gate {
				f.gate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Started delivers the name of each operation as it begins executing.
func (f *Fake) Started() <-chan string {
	return f.started
}

// Fail makes the next invocation of op return err.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// SetRunning forces the running flag.
func (f *Fake) SetRunning(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = v
}

// Exit simulates the core app exiting on its own with err, nil for a
// clean exit. The registered OnExit callback runs synchronously.
func (f *Fake) Exit(err error) {
	f.mu.Lock()
	f.running = false
	notify := f.onExit
	f.mu.Unlock()
	if notify != nil {
		notify(err)
	}
}

// OnExit registers the callback invoked by Exit.
func (f *Fake) OnExit(fn func(err error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onExit = fn
}

// SetHealthy controls the Healthy probe independently of Running.
func (f *Fake) SetHealthy(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = v
}

// SetMigration toggles the offline database migration flag.
func (f *Fake) SetMigration(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.migration = v
}

// SetCheckResult sets what CheckConfig returns.
func (f *Fake) SetCheckResult(r coreapp.CheckResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.check = r
}

// SetLatest sets the version returned by LatestVersion.
func (f *Fake) SetLatest(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = v
}

// Calls returns a copy of the recorded operations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Fake) exec(ctx context.Context, call Call, apply func()) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	gate := f.gate
	err := f.failures[call.Op]
	delete(f.failures, call.Op)
	f.mu.Unlock()

	select {
	case f.started <- call.Op:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	apply()
	f.mu.Unlock()
	return nil
}

func (f *Fake) Start(ctx context.Context) error {
	return f.exec(ctx, Call{Op: "start"}, func() { f.running = true })
}

func (f *Fake) Stop(ctx context.Context) error {
	return f.exec(ctx, Call{Op: "stop"}, func() { f.running = false })
}

func (f *Fake) Restart(ctx context.Context, safeMode bool) error {
	return f.exec(ctx, Call{Op: "restart", SafeMode: safeMode}, func() { f.running = true })
}

func (f *Fake) Rebuild(ctx context.Context, safeMode bool) error {
	return f.exec(ctx, Call{Op: "rebuild", SafeMode: safeMode}, func() { f.running = true })
}

func (f *Fake) Update(ctx context.Context, version string, backup bool) error {
	return f.exec(ctx, Call{Op: "update", Version: version, Backup: backup}, func() {})
}

func (f *Fake) CheckConfig(ctx context.Context) (coreapp.CheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["check"]; err != nil {
		delete(f.failures, "check")
		return coreapp.CheckResult{}, err
	}
	return f.check, nil
}

func (f *Fake) Stats(ctx context.Context) (*coreapp.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return nil, fmt.Errorf("core app is not running: %w", models.ErrStatsUnavailable)
	}
	s := *f.stats
	return &s, nil
}

func (f *Fake) MigrationInProgress(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["migration"]; err != nil {
		delete(f.failures, "migration")
		return false, err
	}
	return f.migration, nil
}

func (f *Fake) Running(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *Fake) Healthy(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running && f.healthy
}

func (f *Fake) LatestVersion(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["latest"]; err != nil {
		delete(f.failures, "latest")
		return "", err
	}
	return f.latest, nil
}

func (f *Fake) Identity(ctx context.Context) coreapp.Identity {
	return f.identity
}

var (
	_ coreapp.Runtime      = (*Fake)(nil)
	_ coreapp.ExitNotifier = (*Fake)(nil)
)
